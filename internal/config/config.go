package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Grobid  GrobidConfig  `yaml:"grobid" mapstructure:"grobid"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	PDF     PDFConfig     `yaml:"pdf" mapstructure:"pdf"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the label store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GrobidConfig configures the structural parsing service.
type GrobidConfig struct {
	Server      string `yaml:"server" mapstructure:"server"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the configured service timeout as a duration.
func (g GrobidConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	Model          string  `yaml:"model" mapstructure:"model"`
	OpenAIKey      string  `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	OpenAIBaseURL  string  `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	AnthropicKey   string  `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMin float64 `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// ExtractConfig configures ranged text extraction.
type ExtractConfig struct {
	StartRatio   float64 `yaml:"start_ratio" mapstructure:"start_ratio"`
	EndRatio     float64 `yaml:"end_ratio" mapstructure:"end_ratio"`
	AbstractBias bool    `yaml:"abstract_bias" mapstructure:"abstract_bias"`
}

// PDFConfig locates the PDF corpus and derived artifacts on disk.
type PDFConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	TEIDir string `yaml:"tei_dir" mapstructure:"tei_dir"`
}

// SearchConfig configures the multi-document keyword search.
type SearchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("SEMICODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "resources/semicode.db")
	v.SetDefault("grobid.server", "http://localhost:8070")
	v.SetDefault("grobid.timeout_secs", 60)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.requests_per_min", 60)
	v.SetDefault("extract.start_ratio", 0.30)
	v.SetDefault("extract.end_ratio", 0.76)
	v.SetDefault("extract.abstract_bias", true)
	v.SetDefault("pdf.dir", "resources/pdf")
	v.SetDefault("pdf.tei_dir", "resources/xml")
	v.SetDefault("search.concurrency", 4)
	v.SetDefault("server.port", 8080)
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
