package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	ADSBDB    ADSBDBConfig    `yaml:"adsbdb" mapstructure:"adsbdb"`
	Receiver  ReceiverConfig  `yaml:"receiver" mapstructure:"receiver"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Summary   SummaryConfig   `yaml:"summary" mapstructure:"summary"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ADSBDBConfig holds settings for the external aircraft metadata API.
type ADSBDBConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ReceiverConfig holds settings for the local dump1090 receiver.
type ReceiverConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EnrichConfig configures the enrichment pipeline.
type EnrichConfig struct {
	BatchSize            int `yaml:"batch_size" mapstructure:"batch_size"`
	DebugBatchSize       int `yaml:"debug_batch_size" mapstructure:"debug_batch_size"`
	PacingMillis         int `yaml:"pacing_ms" mapstructure:"pacing_ms"`
	BackfillPacingMillis int `yaml:"backfill_pacing_ms" mapstructure:"backfill_pacing_ms"`
}

// AnthropicConfig holds Anthropic API settings for the summarizer.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SummaryConfig configures the daily summary artifact.
type SummaryConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	MaxRows int    `yaml:"max_rows" mapstructure:"max_rows"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADSB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "database/adsb_data.db")
	v.SetDefault("adsbdb.base_url", "https://api.adsbdb.com/v0")
	v.SetDefault("adsbdb.user_agent", "adsb-analytics/1.0")
	v.SetDefault("adsbdb.timeout_secs", 10)
	v.SetDefault("receiver.url", "http://localhost:8080/data/aircraft.json")
	v.SetDefault("receiver.timeout_secs", 5)
	v.SetDefault("enrich.batch_size", 50)
	v.SetDefault("enrich.debug_batch_size", 5)
	v.SetDefault("enrich.pacing_ms", 300)
	v.SetDefault("enrich.backfill_pacing_ms", 500)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 500)
	v.SetDefault("summary.path", "summaries/today.txt")
	v.SetDefault("summary.max_rows", 200)
	v.SetDefault("server.port", 8090)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
