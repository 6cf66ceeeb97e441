package telegram

import "strconv"

// Identity is who an order is placed for
type Identity struct {
	TelegramUserID string
	Username       string
	FirstName      string
}

// FallbackIdentity is used when the app runs outside Telegram and the init
// data carries no user.
var FallbackIdentity = Identity{
	TelegramUserID: "test_123456789",
	Username:       "test_user",
	FirstName:      "Test User",
}

// IdentityFrom derives the order identity from raw init data, falling back
// field by field to FallbackIdentity.
func IdentityFrom(raw string) Identity {
	id := FallbackIdentity
	if raw == "" {
		return id
	}

	data, err := Parse(raw)
	if err != nil || data.User == nil {
		return id
	}

	if data.User.ID != 0 {
		id.TelegramUserID = strconv.FormatInt(data.User.ID, 10)
	}
	if data.User.Username != "" {
		id.Username = data.User.Username
	}
	if data.User.FirstName != "" {
		id.FirstName = data.User.FirstName
	}
	return id
}
