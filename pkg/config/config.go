package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	Site        SiteConfig
	Catalog     CatalogConfig
	Cart        CartConfig
	Redis       RedisConfig
	DB          DBConfig
	MercadoPago MercadoPagoConfig
	Checkout    CheckoutConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Site.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// SiteConfig holds the public origin used to build provider callback URLs.
type SiteConfig struct {
	URL string `envconfig:"STOREFRONT_SITE_URL"`
}

// BaseURL returns the site URL without a trailing slash.
func (s SiteConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(s.URL), "/")
}

func (s SiteConfig) validate() error {
	base := s.BaseURL()
	if base == "" {
		return nil
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", EnvSiteURL)
	}
	return nil
}

type CatalogConfig struct {
	// Source is a file path or an absolute http(s) URL.
	Source  string        `envconfig:"STOREFRONT_CATALOG_SOURCE" default:"data/products.json"`
	Timeout time.Duration `envconfig:"STOREFRONT_CATALOG_TIMEOUT" default:"10s"`
}

type CartConfig struct {
	Storage       string        `envconfig:"STOREFRONT_CART_STORAGE" default:"memory"`
	BoltPath      string        `envconfig:"STOREFRONT_CART_BOLT_PATH" default:"storefront-cart.db"`
	SessionCookie string        `envconfig:"STOREFRONT_CART_SESSION_COOKIE" default:"sf_cart"`
	SessionMaxAge time.Duration `envconfig:"STOREFRONT_CART_SESSION_MAX_AGE" default:"720h"`
	SecureCookie  bool          `envconfig:"STOREFRONT_CART_SECURE_COOKIE" default:"false"`
	RedisExpiry   time.Duration `envconfig:"STOREFRONT_CART_REDIS_EXPIRY" default:"0s"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case CartStorageMemory, CartStorageRedis, CartStorageBolt:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvCartStorage, CartStorageMemory, CartStorageRedis, CartStorageBolt)
	}
}

// Backend returns the normalized storage backend name.
func (c CartConfig) Backend() string {
	return strings.ToLower(strings.TrimSpace(c.Storage))
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// DBConfig configures the optional payment record store.
type DBConfig struct {
	DSN         string `envconfig:"STOREFRONT_DB_DSN"`
	Driver      string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`
	AutoMigrate bool   `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Enabled reports whether payment records should be persisted.
func (d DBConfig) Enabled() bool {
	return strings.TrimSpace(d.DSN) != ""
}

// DriverName returns the normalized driver (postgres or sqlite).
func (d DBConfig) DriverName() string {
	driver := strings.ToLower(strings.TrimSpace(d.Driver))
	if driver == "" {
		return DBDriverPostgres
	}
	return driver
}

type MercadoPagoConfig struct {
	AccessToken         string `envconfig:"STOREFRONT_MP_ACCESS_TOKEN"`
	BaseURL             string `envconfig:"STOREFRONT_MP_BASE_URL" default:"https://api.mercadopago.com"`
	StatementDescriptor string `envconfig:"STOREFRONT_MP_STATEMENT_DESCRIPTOR" default:"ABSOLUTASTORE"`
	FallbackWebhookURL  string `envconfig:"STOREFRONT_MP_FALLBACK_WEBHOOK_URL" default:"https://webhook.site/your-webhook-url"`
	ReferencePrefix     string `envconfig:"STOREFRONT_MP_REFERENCE_PREFIX" default:"absoluta"`
}

type CheckoutConfig struct {
	// PreferenceEndpoint posts checkout payloads to an external preference
	// function. When empty checkout calls the in-process preference service.
	PreferenceEndpoint string        `envconfig:"STOREFRONT_CHECKOUT_PREFERENCE_ENDPOINT"`
	SubmitTTL          time.Duration `envconfig:"STOREFRONT_CHECKOUT_SUBMIT_TTL" default:"2m"`
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit      int           `envconfig:"STOREFRONT_RATE_LIMIT_IP_LIMIT" default:"30"`
	SessionLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_SESSION_LIMIT" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS"`
}
