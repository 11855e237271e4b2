package config

import (
	"log/slog"
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("datachat-api", mapLookup(nil))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("profile = %q", cfg.Profile)
	}
	if cfg.HTTP.Address != ":5000" {
		t.Fatalf("address = %q", cfg.HTTP.Address)
	}
	if cfg.Database.Path != "data.db" {
		t.Fatalf("db path = %q", cfg.Database.Path)
	}
	if cfg.History.TTL != 24*time.Hour {
		t.Fatalf("history ttl = %v", cfg.History.TTL)
	}
	if cfg.Format.CurrencySymbol != "₹" {
		t.Fatalf("currency symbol = %q", cfg.Format.CurrencySymbol)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q", cfg.AI.Model)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("ai timeout = %v", cfg.AI.Timeout)
	}
	if cfg.Archive.Enabled {
		t.Fatal("archive must be disabled by default")
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("cors origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug || !cfg.Observability.LogJSON {
		t.Fatalf("observability = %+v", cfg.Observability)
	}
}

func TestLoadProfileOverrides(t *testing.T) {
	testCfg, err := Load("datachat-api", mapLookup(map[string]string{"DATACHAT_PROFILE": "test"}))
	if err != nil {
		t.Fatalf("Load(test) error = %v", err)
	}
	if testCfg.HTTP.Address != ":15000" {
		t.Fatalf("test address = %q", testCfg.HTTP.Address)
	}
	if testCfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("test log level = %v", testCfg.Observability.LogLevel)
	}

	prodCfg, err := Load("datachat-api", mapLookup(map[string]string{"DATACHAT_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load(prod) error = %v", err)
	}
	if prodCfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("prod log level = %v", prodCfg.Observability.LogLevel)
	}
	if !prodCfg.Archive.UseSSL || prodCfg.Archive.AutoCreateBucket {
		t.Fatalf("prod archive = %+v", prodCfg.Archive)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	cfg, err := Load("datachat-api", mapLookup(map[string]string{
		"DATACHAT_HTTP_ADDR":            ":8080",
		"DATACHAT_DB_PATH":              "/var/lib/datachat/data.db",
		"DATACHAT_HISTORY_TTL":          "48h",
		"DATACHAT_CURRENCY_SYMBOL":      "$",
		"GEMINI_API_KEY":                "test-key",
		"DATACHAT_AI_MODEL":             "gemini-1.5-pro",
		"DATACHAT_ARCHIVE_ENABLED":      "true",
		"DATACHAT_CORS_ALLOWED_ORIGINS": "http://localhost:3000, https://app.example.com",
		"DATACHAT_LOG_LEVEL":            "error",
		"DATACHAT_LOG_JSON":             "false",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("address = %q", cfg.HTTP.Address)
	}
	if cfg.Database.Path != "/var/lib/datachat/data.db" {
		t.Fatalf("db path = %q", cfg.Database.Path)
	}
	if cfg.History.TTL != 48*time.Hour {
		t.Fatalf("history ttl = %v", cfg.History.TTL)
	}
	if cfg.Format.CurrencySymbol != "$" {
		t.Fatalf("currency symbol = %q", cfg.Format.CurrencySymbol)
	}
	if cfg.AI.APIKey != "test-key" || cfg.AI.Model != "gemini-1.5-pro" {
		t.Fatalf("ai = %+v", cfg.AI)
	}
	if !cfg.Archive.Enabled {
		t.Fatal("archive should be enabled")
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://app.example.com" {
		t.Fatalf("cors origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Observability.LogLevel != slog.LevelError || cfg.Observability.LogJSON {
		t.Fatalf("observability = %+v", cfg.Observability)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"profile":  {"DATACHAT_PROFILE": "staging"},
		"duration": {"DATACHAT_HISTORY_TTL": "soon"},
		"bool":     {"DATACHAT_ARCHIVE_ENABLED": "maybe"},
		"level":    {"DATACHAT_LOG_LEVEL": "loud"},
		"ttl":      {"DATACHAT_HISTORY_TTL": "-1h"},
		"symbol":   {"DATACHAT_CURRENCY_SYMBOL": "  "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load("datachat-api", mapLookup(env)); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestLoadRequiresLookup(t *testing.T) {
	if _, err := Load("datachat-api", nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}
