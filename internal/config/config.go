// Package config loads settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvProduction = "production"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type MercadoPago struct {
	BaseURL       string `envconfig:"BASE_URL" default:"https://api.mercadopago.com"`
	AccessToken   string `envconfig:"ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	Sandbox       bool   `envconfig:"SANDBOX"`
}

type Resend struct {
	BaseURL string `envconfig:"BASE_URL" default:"https://api.resend.com"`
	APIKey  string `envconfig:"API_KEY"`
}

type Twilio struct {
	BaseURL      string `envconfig:"BASE_URL" default:"https://api.twilio.com"`
	AccountSID   string `envconfig:"ACCOUNT_SID"`
	AuthToken    string `envconfig:"AUTH_TOKEN"`
	WhatsAppFrom string `envconfig:"WHATSAPP_FROM"`
}

type Kafka struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"TOPIC" default:"artesano.orders"`
}

type Config struct {
	AppEnv   string     `envconfig:"APP_ENV" default:"development"`
	Port     int        `envconfig:"PORT" default:"3000"`
	LogLevel slog.Level `envconfig:"LOG_LEVEL" default:"info"`
	NodeID   int64      `envconfig:"NODE_ID" default:"1"`

	StoreDriver   string `envconfig:"STORE_DRIVER" default:"memory"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	CatalogSource string `envconfig:"CATALOG_SOURCE" default:"seed"`

	ClientURL      string   `envconfig:"CLIENT_URL" default:"http://localhost:3000"`
	WebhookBaseURL string   `envconfig:"WEBHOOK_BASE_URL" default:"http://localhost:3000"`
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	PaymentIntentTTL time.Duration `envconfig:"PAYMENT_INTENT_TTL" default:"24h"`
	AccessGrantTTL   time.Duration `envconfig:"ACCESS_GRANT_TTL" default:"8760h"`
	MaxInstallments  int           `envconfig:"MAX_INSTALLMENTS" default:"12"`
	PriceTolerance   string        `envconfig:"PRICE_TOLERANCE" default:"0.01"`
	GatewayTimeout   time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"5s"`
	NotifyTimeout    time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	EmailFrom     string `envconfig:"EMAIL_FROM" default:"El Artesano <pedidos@elartesano.com.ar>"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminWhatsApp string `envconfig:"ADMIN_WHATSAPP"`

	MP     MercadoPago `envconfig:"MP"`
	Resend Resend      `envconfig:"RESEND"`
	Twilio Twilio      `envconfig:"TWILIO"`
	Kafka  Kafka       `envconfig:"KAFKA"`
}

// Load reads the given .env files when present, then the environment.
// Variables already set in the environment take precedence over the files.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("godotenv.Load[%s]: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("envconfig.Process: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("cfg.Validate: %w", err)
	}

	return cfg, nil
}

func (c Config) Production() bool {
	return c.AppEnv == EnvProduction
}

func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of memory, postgres", c.StoreDriver))
	}

	switch c.CatalogSource {
	case "store":
		if c.StoreDriver != StorePostgres {
			errs = append(errs, errors.New("CATALOG_SOURCE=store requires STORE_DRIVER=postgres"))
		}
	case "seed":
	default:
		errs = append(errs, fmt.Errorf("CATALOG_SOURCE %q is not one of store, seed", c.CatalogSource))
	}

	if c.Production() {
		if c.MP.WebhookSecret == "" {
			errs = append(errs, errors.New("MP_WEBHOOK_SECRET is required in production"))
		}
		if c.MP.AccessToken == "" {
			errs = append(errs, errors.New("MP_ACCESS_TOKEN is required in production"))
		}
	}

	if _, err := c.Tolerance(); err != nil {
		errs = append(errs, err)
	}

	for name, raw := range map[string]string{"CLIENT_URL": c.ClientURL, "WEBHOOK_BASE_URL": c.WebhookBaseURL} {
		if u, err := url.ParseRequestURI(raw); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s %q is not an absolute URL", name, raw))
		}
	}

	for name, d := range map[string]time.Duration{
		"PAYMENT_INTENT_TTL": c.PaymentIntentTTL,
		"ACCESS_GRANT_TTL":   c.AccessGrantTTL,
		"GATEWAY_TIMEOUT":    c.GatewayTimeout,
		"NOTIFY_TIMEOUT":     c.NotifyTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.MaxInstallments <= 0 {
		errs = append(errs, errors.New("MAX_INSTALLMENTS must be positive"))
	}

	return errors.Join(errs...)
}

func (c Config) Tolerance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.PriceTolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("PRICE_TOLERANCE %q: %w", c.PriceTolerance, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("PRICE_TOLERANCE %q is negative", c.PriceTolerance)
	}
	return d, nil
}

func (c Config) clientPage(page string) string {
	return strings.TrimRight(c.ClientURL, "/") + "/" + page
}

func (c Config) SuccessURL() string { return c.clientPage("pago-exitoso.html") }
func (c Config) FailureURL() string { return c.clientPage("pago-fallido.html") }
func (c Config) PendingURL() string { return c.clientPage("pago-pendiente.html") }

func (c Config) NotificationURL() string {
	return strings.TrimRight(c.WebhookBaseURL, "/") + "/api/pagos/webhook"
}
