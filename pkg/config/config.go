package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Retry     RetryConfig               `yaml:"retry"`
	Pipeline  PipelineConfig            `yaml:"pipeline"`
	Logging   LoggingConfig             `yaml:"logging"`
}

type ProviderConfig struct {
	APIKey              string        `yaml:"api_key"`
	Model               string        `yaml:"model" validate:"required_if=Enabled true"`
	EmbeddingModel      string        `yaml:"embedding_model"`
	EmbeddingDimensions int           `yaml:"embedding_dimensions" validate:"gte=0"`
	BaseURL             string        `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Timeout             time.Duration `yaml:"timeout" validate:"gte=0"`
	RequestsPerSecond   float64       `yaml:"requests_per_second" validate:"gte=0"`
	Enabled             bool          `yaml:"enabled"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"min=1,max=10"`
	BaseDelay   time.Duration `yaml:"base_delay" validate:"gte=0"`
	MaxDelay    time.Duration `yaml:"max_delay" validate:"gtefield=BaseDelay"`
}

type PipelineConfig struct {
	Language         string `yaml:"language" validate:"oneof=en pl"`
	PromptsDir       string `yaml:"prompts_dir"`
	OptionsMaxTokens int    `yaml:"options_max_tokens" validate:"gte=0"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=json console"`
	LLMLogPath string `yaml:"llm_log_path"`
}

// Default returns the configuration used when no file overrides a field.
func Default() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		Pipeline: PipelineConfig{
			Language:         "en",
			OptionsMaxTokens: 1500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads a YAML file over the defaults and applies env overrides.
// A missing file is not an error; the defaults plus environment are used.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if lvl := os.Getenv("DECISIONCALM_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	key := os.Getenv("OPENAI_API_KEY")
	if len(c.Providers) == 0 && key != "" {
		c.Providers["openai"] = ProviderConfig{Enabled: true}
	}
	for name, p := range c.Providers {
		if p.APIKey == "" && name == "openai" {
			p.APIKey = key
			c.Providers[name] = p
		}
	}
}

func (c *Config) applyProviderDefaults() {
	for name, p := range c.Providers {
		if p.Model == "" {
			p.Model = "gpt-4o-mini"
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = "text-embedding-3-small"
		}
		if p.EmbeddingDimensions == 0 {
			p.EmbeddingDimensions = 1536
		}
		if p.Timeout == 0 {
			p.Timeout = 60 * time.Second
		}
		c.Providers[name] = p
	}
}

// Validate checks struct constraints on the whole configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	for name, p := range c.Providers {
		if err := v.Struct(p); err != nil {
			return fmt.Errorf("configuration validation failed: providers.%s: %w", name, err)
		}
	}
	return nil
}

// GetDefaultProvider returns the first enabled provider in name order.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
