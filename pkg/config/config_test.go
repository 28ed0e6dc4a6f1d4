package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.App.Port)
	}
	if cfg.Cart.Backend() != CartStorageRedis {
		t.Fatalf("unexpected cart storage %q", cfg.Cart.Backend())
	}
	if cfg.Site.BaseURL() != "https://absoluta.example" {
		t.Fatalf("unexpected site url %q", cfg.Site.BaseURL())
	}
	if got := cfg.Checkout.SubmitTTL; got != 2*time.Minute {
		t.Fatalf("expected submit ttl 2m, got %v", got)
	}
	if cfg.MercadoPago.StatementDescriptor != "ABSOLUTASTORE" {
		t.Fatalf("unexpected statement descriptor %q", cfg.MercadoPago.StatementDescriptor)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://absoluta.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.DB.Enabled() {
		t.Fatalf("expected payment record store disabled without a DSN")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsUnknownCartStorage(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvCartStorage, "cookies")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown cart storage to be rejected")
	}
}

func TestLoad_RejectsRelativeSiteURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvSiteURL, "/shop")

	if _, err := Load(); err == nil {
		t.Fatal("expected relative site url to be rejected")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvSiteURL, "https://absoluta.example/")
	t.Setenv(EnvCartStorage, "REDIS")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvMPAccessToken, "TEST-token")
	t.Setenv(EnvCORSOrigins, "http://localhost:3000,https://absoluta.example")
}

func TestAppConfigIsProd(t *testing.T) {
	if (AppConfig{Env: "DEV"}).IsProd() {
		t.Fatalf("expected IsProd false for dev")
	}
	if !(AppConfig{Env: "PROD"}).IsProd() {
		t.Fatalf("expected IsProd true for PROD")
	}
}

func TestDBConfigDriverName(t *testing.T) {
	if got := (DBConfig{}).DriverName(); got != DBDriverPostgres {
		t.Fatalf("expected default driver postgres, got %q", got)
	}
	if got := (DBConfig{Driver: " SQLite "}).DriverName(); got != DBDriverSQLite {
		t.Fatalf("expected sqlite, got %q", got)
	}
}
