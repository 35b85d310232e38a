// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.onboard/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Models: the set of provider-qualified model names raced per turn
//   - Corpus: document directory and preferred file names
//   - Storage: PostgreSQL connection (optional; lexical retrieval and
//     in-memory profiles work without it)
//   - Observability: OTLP trace export
//
// Sensitive data (the database password) is masked in MarshalJSON and
// String. Validation uses sentinel errors checkable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrNoModels indicates no generation model is configured.
	ErrNoModels = errors.New("no models configured")

	// ErrInvalidModelName indicates a model name is not provider-qualified.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidDocsDir indicates the corpus directory is invalid.
	ErrInvalidDocsDir = errors.New("invalid docs directory")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultModel is raced when no models are configured explicitly.
	DefaultModel = "googleai/gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model. Its output
	// dimension must match the vector column in the pgvector schema.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxHistoryMessages bounds how much history is replayed per turn.
	DefaultMaxHistoryMessages int32 = 100

	// DefaultMaxTurns bounds the agentic tool-calling loop.
	DefaultMaxTurns = 5
)

// defaultDocFiles are the corpus documents looked for when doc_files is not
// configured and the docs directory scan finds nothing.
var defaultDocFiles = []string{
	"Catalogo_MemorAIz_v1.md",
	"Features_List_Assistente_AI.md",
}

// OtelConfig configures OTLP trace export to a local collector.
type OtelConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON().
type Config struct {
	// Models is the ordered set of provider-qualified model names that are
	// raced for every generation turn (e.g. "googleai/gemini-2.5-flash",
	// "openai/gpt-4o-mini"). At least one entry after defaulting.
	Models []string `mapstructure:"models" json:"models"`

	// MaxTurns bounds the agentic loop (tool round-trips) per generation.
	MaxTurns int `mapstructure:"max_turns" json:"max_turns"`

	// MaxHistoryMessages bounds conversation history replayed per turn.
	MaxHistoryMessages int32 `mapstructure:"max_history_messages" json:"max_history_messages"`

	// Corpus configuration
	DocsDir  string   `mapstructure:"docs_dir" json:"docs_dir"`
	DocFiles []string `mapstructure:"doc_files" json:"doc_files"`

	// Storage configuration. An empty PostgresHost means no durable store:
	// retrieval falls back to the lexical path and transcripts/profiles
	// live only in process memory.
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// RAG configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Observability configuration
	Otel OtelConfig `mapstructure:"otel" json:"otel"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".onboard")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.normalizeModels()

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("models", []string{DefaultModel})
	viper.SetDefault("max_turns", DefaultMaxTurns)
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	// Corpus defaults: scan the working directory, preferring the shipped
	// product documents.
	viper.SetDefault("docs_dir", ".")
	viper.SetDefault("doc_files", defaultDocFiles)

	// PostgreSQL defaults. Host intentionally empty: durable storage and the
	// vector retrieval path are opt-in.
	viper.SetDefault("postgres_host", "")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "onboard")
	viper.SetDefault("postgres_db_name", "onboard")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	viper.SetDefault("otel.endpoint", "localhost:4318")
	viper.SetDefault("otel.environment", "dev")
	viper.SetDefault("otel.service_name", "onboard")
}

// bindEnvVariables binds environment variables explicitly.
//
// NOTE: GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit
// provider plugins, not via Viper. DATABASE_URL is handled by
// parseDatabaseURL after unmarshalling.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("models", "ONBOARD_MODELS") // comma-separated list
	mustBind("docs_dir", "ONBOARD_DOCS_DIR")
	mustBind("embedder_model", "ONBOARD_EMBEDDER_MODEL")
	mustBind("otel.endpoint", "ONBOARD_OTEL_ENDPOINT")
}

// normalizeModels splits comma-separated model lists (as delivered by the
// ONBOARD_MODELS environment variable) and drops empty entries.
func (c *Config) normalizeModels() {
	var models []string
	for _, m := range c.Models {
		for _, part := range strings.Split(m, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				models = append(models, trimmed)
			}
		}
	}
	if len(models) == 0 {
		models = []string{DefaultModel}
	}
	c.Models = models
}

// HasPostgres reports whether a durable PostgreSQL store is configured.
func (c *Config) HasPostgres() bool {
	return c.PostgresHost != ""
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("%w: at least one model is required", ErrNoModels)
	}
	for _, m := range c.Models {
		// Genkit resolves models by "provider/name".
		if !strings.Contains(m, "/") {
			return fmt.Errorf("%w: %q must be provider-qualified (e.g. %q)",
				ErrInvalidModelName, m, DefaultModel)
		}
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.DocsDir == "" {
		return fmt.Errorf("%w: docs_dir cannot be empty", ErrInvalidDocsDir)
	}

	// PostgreSQL settings are only validated when a host is configured.
	if c.HasPostgres() {
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: must be between 1 and 65535, got %d",
				ErrInvalidPostgresPort, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
		}
		validSSLModes := map[string]bool{
			"disable": true, "require": true, "verify-ca": true, "verify-full": true,
		}
		if !validSSLModes[c.PostgresSSLMode] {
			return fmt.Errorf("%w: got %q, want one of disable, require, verify-ca, verify-full",
				ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
		}
	}

	return nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of eight or
// fewer characters are fully masked; longer ones keep two characters on
// each end for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
