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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Router     RouterConfig     `yaml:"router" mapstructure:"router"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LLMConfig selects and bounds the classification backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "anthropic" or "perplexity"
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	RateRPS     float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// OCRConfig configures text extraction from PDFs and images.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "local" or "mistral"
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// PipelineConfig configures classification and routing behavior.
type PipelineConfig struct {
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold" mapstructure:"high_confidence_threshold"`
	LowConfidenceThreshold  float64 `yaml:"low_confidence_threshold" mapstructure:"low_confidence_threshold"`
	MaxClassifyChars        int     `yaml:"max_classify_chars" mapstructure:"max_classify_chars"`
}

// Validate checks the threshold pair invariant 0 <= low <= high <= 1.
func (p PipelineConfig) Validate() error {
	if p.LowConfidenceThreshold < 0 || p.HighConfidenceThreshold > 1 {
		return eris.Errorf("config: thresholds out of range [0,1]: low=%.2f high=%.2f",
			p.LowConfidenceThreshold, p.HighConfidenceThreshold)
	}
	if p.LowConfidenceThreshold > p.HighConfidenceThreshold {
		return eris.Errorf("config: low threshold %.2f exceeds high threshold %.2f",
			p.LowConfidenceThreshold, p.HighConfidenceThreshold)
	}
	return nil
}

// RouterConfig configures the file placement sink.
type RouterConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Port          int    `yaml:"port" mapstructure:"port"`
	UploadDir     string `yaml:"upload_dir" mapstructure:"upload_dir"`
	MaxUploadMB   int64  `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigin string `yaml:"allowed_origin" mapstructure:"allowed_origin"`
}

// BatchConfig configures directory batch processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
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
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "triage.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.upload_dir", "data/uploads")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("batch.max_concurrent_documents", 4)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.timeout_secs", 30)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.rate_rps", 2.0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_ocr_model", "mistral-ocr-latest")
	v.SetDefault("pipeline.high_confidence_threshold", 0.8)
	v.SetDefault("pipeline.low_confidence_threshold", 0.6)
	v.SetDefault("pipeline.max_classify_chars", 4000)
	v.SetDefault("router.base_dir", "data/veterans")

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

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
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
