package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": testSecret,
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.JWT.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %v", cfg.JWT.RefreshTTL)
	}
	if cfg.Cookie.Secure {
		t.Fatalf("expected insecure cookies by default")
	}
	if cfg.Storage.Driver != DriverPostgres {
		t.Fatalf("expected postgres driver by default, got %q", cfg.Storage.Driver)
	}
	if cfg.Redis.Addr != "" || cfg.Redis.CacheTTL != 5*time.Minute {
		t.Fatalf("unexpected redis defaults: %+v", cfg.Redis)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development env")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      testSecret,
		"JWT_ACCESS_TTL":  "5m",
		"JWT_REFRESH_TTL": "24h",
		"COOKIE_SECURE":   "true",
		"STORAGE_DRIVER":  "sqlite",
		"SQLITE_PATH":     ":memory:",
		"REDIS_ADDR":      "localhost:6379",
		"ENV":             "production",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute || cfg.JWT.RefreshTTL != 24*time.Hour {
		t.Fatalf("unexpected ttls: %+v", cfg.JWT)
	}
	if !cfg.Cookie.Secure || cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != ":memory:" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production env")
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"short secret":   {"JWT_SECRET": "short"},
		"bad driver":     {"JWT_SECRET": testSecret, "STORAGE_DRIVER": "cassandra"},
		"bad duration":   {"JWT_SECRET": testSecret, "JWT_ACCESS_TTL": "soon"},
	}
	for name, env := range cases {
		if _, err := load(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
