package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	History       HistoryConfig
	Format        FormatConfig
	AI            AIConfig
	Archive       ArchiveConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Path string
}

type HistoryConfig struct {
	TTL time.Duration
}

type FormatConfig struct {
	CurrencySymbol string
}

type AIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ArchiveConfig controls the optional raw-upload archive in an
// S3-compatible object store. Disabled by default.
type ArchiveConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DATACHAT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DATACHAT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "DATACHAT_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATACHAT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATACHAT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATACHAT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_DB_PATH", &cfg.Database.Path); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATACHAT_HISTORY_TTL", &cfg.History.TTL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_CURRENCY_SYMBOL", &cfg.Format.CurrencySymbol); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GEMINI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATACHAT_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATACHAT_ARCHIVE_ENABLED", &cfg.Archive.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_ARCHIVE_REGION", &cfg.Archive.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_ARCHIVE_BUCKET", &cfg.Archive.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_ARCHIVE_SECRET_KEY", &cfg.Archive.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATACHAT_ARCHIVE_USE_SSL", &cfg.Archive.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATACHAT_ARCHIVE_PREFIX", &cfg.Archive.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATACHAT_ARCHIVE_AUTO_CREATE_BUCKET", &cfg.Archive.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyStringList(lookup, "DATACHAT_CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATACHAT_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "DATACHAT_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Database.Path == "" {
		return Config{}, fmt.Errorf("database path is required")
	}
	if cfg.History.TTL <= 0 {
		return Config{}, fmt.Errorf("history ttl must be positive")
	}
	if cfg.Format.CurrencySymbol == "" {
		return Config{}, fmt.Errorf("currency symbol is required")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "datachat-api"},
		HTTP: HTTPConfig{
			Address:      ":5000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data.db",
		},
		History: HistoryConfig{
			TTL: 24 * time.Hour,
		},
		Format: FormatConfig{
			CurrencySymbol: "₹",
		},
		AI: AIConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
		Archive: ArchiveConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "datachat",
			UseSSL:           false,
			Prefix:           "uploads",
			AutoCreateBucket: true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":15000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Archive.UseSSL = true
		cfg.Archive.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyStringList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		values = append(values, part)
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
