package config

import (
	"errors"
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

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

const (
	SchemaSourceDefault     = "default"
	SchemaSourcePostgres    = "postgres"
	SchemaSourceObjectStore = "objectstore"
)

var ErrMissingAPIKey = errors.New("AI API key is not configured: set SQLSCRIBE_AI_API_KEY (or API_KEY)")

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	AI            AIConfig
	Schema        SchemaConfig
	ObjectStore   ObjectStoreConfig
	SQLCheck      SQLCheckConfig
	UI            UIConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
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

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type SchemaConfig struct {
	Source         string
	PostgresDSN    string
	PostgresSchema string
	ObjectKeys     []string
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type SQLCheckConfig struct {
	Enabled bool
	Timeout time.Duration
}

type UIConfig struct {
	Enabled        bool
	SessionIdleTTL time.Duration
	HighlightStyle string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLSCRIBE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	// Plain API_KEY is accepted as a fallback; the prefixed key wins when both are set.
	if err := applyString(lookup, "API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "SQLSCRIBE_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SQLSCRIBE_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "SQLSCRIBE_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "SQLSCRIBE_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "SQLSCRIBE_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "SQLSCRIBE_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "SQLSCRIBE_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "SQLSCRIBE_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "SQLSCRIBE_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "SQLSCRIBE_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "SQLSCRIBE_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyString(lookup, "SQLSCRIBE_SCHEMA_SOURCE", &cfg.Schema.Source) },
		func() error { return applyString(lookup, "SQLSCRIBE_SCHEMA_POSTGRES_DSN", &cfg.Schema.PostgresDSN) },
		func() error { return applyString(lookup, "SQLSCRIBE_SCHEMA_POSTGRES_SCHEMA", &cfg.Schema.PostgresSchema) },
		func() error { return applyList(lookup, "SQLSCRIBE_SCHEMA_OBJECT_KEYS", &cfg.Schema.ObjectKeys) },
		func() error { return applyString(lookup, "SQLSCRIBE_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "SQLSCRIBE_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "SQLSCRIBE_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "SQLSCRIBE_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "SQLSCRIBE_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "SQLSCRIBE_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "SQLSCRIBE_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error { return applyBool(lookup, "SQLSCRIBE_SQLCHECK_ENABLED", &cfg.SQLCheck.Enabled) },
		func() error { return applyDuration(lookup, "SQLSCRIBE_SQLCHECK_TIMEOUT", &cfg.SQLCheck.Timeout) },
		func() error { return applyBool(lookup, "SQLSCRIBE_UI_ENABLED", &cfg.UI.Enabled) },
		func() error { return applyDuration(lookup, "SQLSCRIBE_UI_SESSION_IDLE_TTL", &cfg.UI.SessionIdleTTL) },
		func() error { return applyString(lookup, "SQLSCRIBE_UI_HIGHLIGHT_STYLE", &cfg.UI.HighlightStyle) },
		func() error { return applyBool(lookup, "SQLSCRIBE_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SQLSCRIBE_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "SQLSCRIBE_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "SQLSCRIBE_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	cfg.Schema.Source = strings.ToLower(cfg.Schema.Source)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.AI.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_AI_TEMPERATURE: %v (want 0..2)", cfg.AI.Temperature)
	}
	switch cfg.Schema.Source {
	case SchemaSourceDefault:
	case SchemaSourcePostgres:
		if cfg.Schema.PostgresDSN == "" {
			return Config{}, fmt.Errorf("SQLSCRIBE_SCHEMA_POSTGRES_DSN is required for schema source %q", cfg.Schema.Source)
		}
	case SchemaSourceObjectStore:
		if len(cfg.Schema.ObjectKeys) == 0 {
			return Config{}, fmt.Errorf("SQLSCRIBE_SCHEMA_OBJECT_KEYS is required for schema source %q", cfg.Schema.Source)
		}
		if cfg.ObjectStore.Endpoint == "" || cfg.ObjectStore.Bucket == "" {
			return Config{}, fmt.Errorf("object store endpoint and bucket are required for schema source %q", cfg.Schema.Source)
		}
	default:
		return Config{}, fmt.Errorf("invalid SQLSCRIBE_SCHEMA_SOURCE: %q", cfg.Schema.Source)
	}
	return cfg, nil
}

func (c Config) RequireCredentials() error {
	if strings.TrimSpace(c.AI.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlscribe-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		AI: AIConfig{
			Provider:    ProviderGemini,
			BaseURL:     "",
			Model:       "gemini-2.5-pro",
			Temperature: 0.2,
			Timeout:     90 * time.Second,
		},
		Schema: SchemaConfig{
			Source:         SchemaSourceDefault,
			PostgresSchema: "public",
		},
		ObjectStore: ObjectStoreConfig{
			Region: "us-east-1",
			UseSSL: false,
		},
		SQLCheck: SQLCheckConfig{
			Enabled: false,
			Timeout: 5 * time.Second,
		},
		UI: UIConfig{
			Enabled:        true,
			SessionIdleTTL: 30 * time.Minute,
			HighlightStyle: "github",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
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

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
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

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
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
