package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Upload modes decide when staged photos reach the backend
const (
	UploadAfterPayment = "after_payment"
	UploadImmediate    = "immediate"
)

type Config struct {
	Environment Environment
	Log         Log
	API         API      `envPrefix:"STOREFRONT_API_"`
	Telegram    Telegram `envPrefix:"TELEGRAM_"`
	Store       Store    `envPrefix:"STORE_"`
	Checkout    Checkout `envPrefix:"CHECKOUT_"`
	Sandbox     Sandbox  `envPrefix:"SANDBOX_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type API struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"https://neuro-photo-backend-production.up.railway.app"`
	OrdersPrefix  string        `env:"ORDERS_PREFIX" envDefault:"/api"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
	RetryCount    int           `env:"RETRY_COUNT" envDefault:"2"`
	MaxConcurrent int           `env:"MAX_CONCURRENT" envDefault:"4"`
}

type Telegram struct {
	InitData string `env:"INIT_DATA"`
	BotToken string `env:"BOT_TOKEN"`
}

type Store struct {
	Path      string `env:"PATH" envDefault:"storefront.db"`
	SessionID string `env:"SESSION_ID"`
}

type Checkout struct {
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	PollMaxInterval time.Duration `env:"POLL_MAX_INTERVAL" envDefault:"30s"`
	PollTimeout     time.Duration `env:"POLL_TIMEOUT" envDefault:"15m"`
	PollMaxErrors   int           `env:"POLL_MAX_ERRORS" envDefault:"20"`
	UploadMode      string        `env:"UPLOAD_MODE" envDefault:"after_payment"`
}

type Sandbox struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8090"`
	// AutoPayAfter marks an order paid after this many status polls; 0 waits
	// for an explicit call to the sandbox control endpoint.
	AutoPayAfter int `env:"AUTO_PAY_AFTER" envDefault:"2"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("STOREFRONT_API_BASE_URL is required")
	}
	if c.Checkout.PollInterval <= 0 {
		return errors.New("CHECKOUT_POLL_INTERVAL must be positive")
	}
	if c.Checkout.PollMaxInterval < c.Checkout.PollInterval {
		return errors.New("CHECKOUT_POLL_MAX_INTERVAL must not be below CHECKOUT_POLL_INTERVAL")
	}
	if c.Checkout.PollMaxErrors < 1 {
		return errors.New("CHECKOUT_POLL_MAX_ERRORS must be at least 1")
	}
	switch c.Checkout.UploadMode {
	case UploadAfterPayment, UploadImmediate:
	default:
		return fmt.Errorf("unknown CHECKOUT_UPLOAD_MODE %q", c.Checkout.UploadMode)
	}
	return nil
}

// Addr is the sandbox listen address.
func (s Sandbox) Addr() string {
	return s.Host + ":" + s.Port
}
