package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tolarian/deckforge/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Brewer     BrewerConfig     `yaml:"brewer" mapstructure:"brewer"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Wizard     WizardConfig     `yaml:"wizard" mapstructure:"wizard"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// BrewerConfig holds card-recommendation service settings.
type BrewerConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
}

// AnthropicConfig holds Anthropic API settings for commander suggestions.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NotionConfig holds Notion API credentials and the deck database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	DeckDB string `yaml:"deck_db" mapstructure:"deck_db"`
}

// GenerationConfig tunes the generation orchestrator.
type GenerationConfig struct {
	AnalyzeDelayMs   int `yaml:"analyze_delay_ms" mapstructure:"analyze_delay_ms"`
	AutoRetryLimit   int `yaml:"auto_retry_limit" mapstructure:"auto_retry_limit"`
	RetryBaseDelayMs int `yaml:"retry_base_delay_ms" mapstructure:"retry_base_delay_ms"`
}

// AnalyzeDelay returns the analyzing-phase delay as a duration.
func (c GenerationConfig) AnalyzeDelay() time.Duration {
	return time.Duration(c.AnalyzeDelayMs) * time.Millisecond
}

// RetryBaseDelay returns the first backoff interval as a duration.
func (c GenerationConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// WizardConfig configures consultation wizard persistence.
type WizardConfig struct {
	SnapshotKey string `yaml:"snapshot_key" mapstructure:"snapshot_key"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration carries everything the given
// command scope needs. Scopes: "generate", "suggest", "export-notion",
// "serve".
func (c *Config) Validate(scope string) error {
	var missing []string

	switch scope {
	case "generate":
		if c.Brewer.Key == "" {
			missing = append(missing, "brewer.key is required")
		}
	case "suggest":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
	case "export-notion":
		if c.Notion.Token == "" {
			missing = append(missing, "notion.token is required")
		}
		if c.Notion.DeckDB == "" {
			missing = append(missing, "notion.deck_db is required")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be between 1 and 65535")
		}
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DECKFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "deckforge.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("brewer.base_url", "https://api.brewery.cards/v1")
	v.SetDefault("brewer.rate_per_second", 2.0)
	v.SetDefault("brewer.burst", 2)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("generation.analyze_delay_ms", 750)
	v.SetDefault("generation.auto_retry_limit", 2)
	v.SetDefault("generation.retry_base_delay_ms", 2000)
	v.SetDefault("wizard.snapshot_key", "deckforge.wizard")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
