// Package api is the storefront's gateway to the neuro-photo backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/metrics"
	"github.com/ashendes/neurophoto-storefront/internal/patterns"
	"github.com/ashendes/neurophoto-storefront/internal/telegram"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const serviceName = "storefront"

// Options configures a Client
type Options struct {
	BaseURL string
	// OrdersPrefix is prepended to every order route, e.g. "/api".
	OrdersPrefix string
	// InitData is sent verbatim in the x-telegram-init-data header.
	InitData      string
	Timeout       time.Duration
	RetryCount    int
	MaxConcurrent int
}

// Client talks to the backend with a circuit breaker, a bulkhead and
// retries for idempotent reads.
type Client struct {
	http         *resty.Client
	uploads      *resty.Client
	files        *resty.Client
	circuit      *patterns.CircuitBreakerWrapper
	bulkhead     *patterns.Bulkhead
	ordersPrefix string
}

// New builds a Client from opts.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = patterns.DefaultTimeout
	}

	return &Client{
		http:    newBackendClient(opts, timeout),
		uploads: newBackendClient(opts, patterns.UploadTimeout),
		// result images live on a CDN, so they are fetched without the
		// backend's base URL and without init data
		files:        resty.New().SetTimeout(patterns.UploadTimeout),
		circuit:      patterns.NewCircuitBreaker("Backend", serviceName),
		bulkhead:     patterns.NewBulkhead(opts.MaxConcurrent, "backend", serviceName),
		ordersPrefix: "/" + strings.Trim(opts.OrdersPrefix, "/"),
	}
}

func newBackendClient(opts Options, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryIdempotent)
	if opts.InitData != "" {
		client.SetHeader(telegram.HeaderInitData, opts.InitData)
	}
	return client
}

// retryIdempotent retries GETs on transport errors, 5xx and 429.
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	return resp.StatusCode() >= http.StatusInternalServerError ||
		resp.StatusCode() == http.StatusTooManyRequests
}

// CircuitState reports the backend breaker state.
func (c *Client) CircuitState() string {
	return c.circuit.GetState()
}

func (c *Client) orderPath(format string, args ...interface{}) string {
	if c.ordersPrefix == "/" {
		return fmt.Sprintf(format, args...)
	}
	return c.ordersPrefix + fmt.Sprintf(format, args...)
}

// call runs one request through the bulkhead and the breaker and decodes a
// 2xx body into out. endpoint is the route template used as metric label.
// 4xx replies do not count against the breaker.
func (c *Client) call(ctx context.Context, method, endpoint, path string, prepare func(*resty.Request), out interface{}) error {
	return c.callWith(ctx, c.http, method, endpoint, path, prepare, out)
}

func (c *Client) callWith(ctx context.Context, client *resty.Client, method, endpoint, path string, prepare func(*resty.Request), out interface{}) error {
	start := time.Now()
	status := 0

	err := c.bulkhead.Execute(ctx, func() error {
		result, cbErr := c.circuit.Execute(func() (interface{}, error) {
			req := client.R().SetContext(ctx)
			if prepare != nil {
				prepare(req)
			}

			resp, httpErr := req.Execute(method, path)
			if httpErr != nil {
				return nil, fmt.Errorf("HTTP error: %w", httpErr)
			}
			status = resp.StatusCode()

			if status >= http.StatusInternalServerError {
				return nil, newError(method, path, resp)
			}
			return resp, nil
		})
		if cbErr != nil {
			return cbErr
		}

		resp := result.(*resty.Response)
		if !resp.IsSuccess() {
			return newError(method, path, resp)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("failed to parse response from %s: %w", endpoint, err)
		}
		return nil
	})

	metrics.ObserveClientRequest(endpoint, status, time.Since(start))

	if err != nil {
		log.WithFields(log.Fields{
			"method":   method,
			"endpoint": endpoint,
			"status":   status,
		}).Debug("Backend request failed: ", err)
	}
	return err
}

func newError(method, path string, resp *resty.Response) *Error {
	body := strings.TrimSpace(resp.String())
	if len(body) > 512 {
		body = body[:512]
	}
	return &Error{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode(),
		Body:       body,
	}
}
