// Package config loads courserag settings from defaults, an optional .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvFile is read when no env file is named and it exists.
const DefaultEnvFile = ".env"

// AnthropicConfig holds model provider settings.
type AnthropicConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the full application configuration.
type Config struct {
	Anthropic     AnthropicConfig `koanf:"anthropic"`
	HTTP          HTTPConfig      `koanf:"http"`
	ChunkSize     int             `koanf:"chunk_size"`
	ChunkOverlap  int             `koanf:"chunk_overlap"`
	MaxResults    int             `koanf:"max_results"`
	MaxHistory    int             `koanf:"max_history"`
	MaxTokens     int             `koanf:"max_tokens"`
	ParallelTools bool            `koanf:"parallel_tools"`
	SessionDB     string          `koanf:"session_db"` // empty keeps history in memory
	DocsPath      string          `koanf:"docs_path"`
	LogLevel      string          `koanf:"log_level"`
	LogFile       string          `koanf:"log_file"`
	CacheSize     int             `koanf:"cache_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		HTTP: HTTPConfig{
			Addr: ":8000",
		},
		ChunkSize:    800,
		ChunkOverlap: 100,
		MaxResults:   5,
		MaxHistory:   2,
		MaxTokens:    800,
		DocsPath:     "../docs",
		LogLevel:     "info",
		CacheSize:    256,
	}
}

// envMappings maps environment variables to config paths.
var envMappings = map[string]string{
	"ANTHROPIC_API_KEY":        "anthropic.api_key",
	"ANTHROPIC_MODEL":          "anthropic.model",
	"COURSERAG_HTTP_ADDR":      "http.addr",
	"COURSERAG_CHUNK_SIZE":     "chunk_size",
	"COURSERAG_CHUNK_OVERLAP":  "chunk_overlap",
	"COURSERAG_MAX_RESULTS":    "max_results",
	"COURSERAG_MAX_HISTORY":    "max_history",
	"COURSERAG_MAX_TOKENS":     "max_tokens",
	"COURSERAG_PARALLEL_TOOLS": "parallel_tools",
	"COURSERAG_SESSION_DB":     "session_db",
	"COURSERAG_DOCS_PATH":      "docs_path",
	"COURSERAG_LOG_LEVEL":      "log_level",
	"COURSERAG_LOG_FILE":       "log_file",
	"COURSERAG_CACHE_SIZE":     "cache_size",
}

// Load builds the configuration. envFile is loaded into the environment
// first without overriding variables that are already set; an empty envFile
// loads DefaultEnvFile when present.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envMappings[key]
			value = strings.TrimSpace(value)
			if !ok || value == "" {
				return "", nil
			}
			return path, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap))
	}
	if c.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("max_results must be positive, got %d", c.MaxResults))
	}
	if c.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("max_history cannot be negative, got %d", c.MaxHistory))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size cannot be negative, got %d", c.CacheSize))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", level)
	}
	return l, nil
}
