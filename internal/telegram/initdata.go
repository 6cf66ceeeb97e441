// Package telegram deals with the init data a Telegram Mini App receives
// from the WebApp SDK and forwards to its backend.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HeaderInitData is the request header the backend reads the init data from.
const HeaderInitData = "x-telegram-init-data"

var (
	ErrMissingHash  = errors.New("telegram: init data has no hash")
	ErrBadSignature = errors.New("telegram: init data signature mismatch")
	ErrExpired      = errors.New("telegram: init data expired")
)

// User is the Telegram account that opened the Mini App
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// InitData is the parsed form of the init data query string
type InitData struct {
	Raw      string
	QueryID  string
	User     *User
	AuthDate time.Time
	Hash     string
}

// Parse decodes raw init data without checking its signature.
func Parse(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse init data: %w", err)
	}

	data := &InitData{
		Raw:     raw,
		QueryID: values.Get("query_id"),
		Hash:    values.Get("hash"),
	}

	if u := values.Get("user"); u != "" {
		var user User
		if err := json.Unmarshal([]byte(u), &user); err != nil {
			return nil, fmt.Errorf("parse init data user: %w", err)
		}
		data.User = &user
	}

	if ts := values.Get("auth_date"); ts != "" {
		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse init data auth_date: %w", err)
		}
		data.AuthDate = time.Unix(sec, 0)
	}

	return data, nil
}

// Validate parses raw and checks its HMAC signature against the bot token.
// A zero maxAge disables the freshness check.
func Validate(raw, botToken string, maxAge time.Duration) (*InitData, error) {
	data, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if data.Hash == "" {
		return nil, ErrMissingHash
	}

	values, _ := url.ParseQuery(raw)
	expected := signature(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(data.Hash))) {
		return nil, ErrBadSignature
	}

	if maxAge > 0 && time.Since(data.AuthDate) > maxAge {
		return nil, ErrExpired
	}

	return data, nil
}

// Sign returns values encoded as init data with a valid hash for botToken.
// The sandbox backend and tests use it to mint init data.
func Sign(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k == "hash" {
			continue
		}
		signed[k] = v
	}
	signed.Set("hash", signature(signed, botToken))
	return signed.Encode()
}

// NewInitData builds signed init data for user at authDate.
func NewInitData(user User, authDate time.Time, botToken string) (string, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	values := url.Values{}
	values.Set("user", string(body))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	return Sign(values, botToken), nil
}

// signature implements the WebApp scheme: the data-check string is every
// field except hash as key=value sorted by key and joined by newlines,
// signed with HMAC-SHA256 keyed by HMAC-SHA256("WebAppData", botToken).
func signature(values url.Values, botToken string) string {
	pairs := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		pairs = append(pairs, k+"="+values.Get(k))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
