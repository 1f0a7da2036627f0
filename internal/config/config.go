// Package config loads askfolio settings from defaults, an optional YAML
// file and ASKFOLIO_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/rcliao/askfolio/internal/embedding"
	"github.com/rcliao/askfolio/internal/llm"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. ASKFOLIO_LLM_PROVIDER.
const EnvPrefix = "ASKFOLIO"

type KB struct {
	Path string `mapstructure:"path"`
}

type DB struct {
	Path string `mapstructure:"path"`
}

type LLM struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	ClassifierModel   string        `mapstructure:"classifier_model"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	ClassifierTimeout time.Duration `mapstructure:"classifier_timeout"`
	AnswerTimeout     time.Duration `mapstructure:"answer_timeout"`
}

type Embedding struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	Dims        int           `mapstructure:"dims"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

type Retrieval struct {
	TopK int `mapstructure:"top_k"`
}

type Rerank struct {
	Quotas map[string]int `mapstructure:"quotas"`
	Total  int            `mapstructure:"total"`
}

type Planner struct {
	SpecificCeiling int `mapstructure:"specific_ceiling"`
	FollowUpCeiling int `mapstructure:"followup_ceiling"`
	MaxActions      int `mapstructure:"max_actions"`
}

type Cache struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     string `mapstructure:"ttl"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

// Config is the full askfolio configuration.
type Config struct {
	KB        KB        `mapstructure:"kb"`
	DB        DB        `mapstructure:"db"`
	LLM       LLM       `mapstructure:"llm"`
	Embedding Embedding `mapstructure:"embedding"`
	Retrieval Retrieval `mapstructure:"retrieval"`
	Rerank    Rerank    `mapstructure:"rerank"`
	Planner   Planner   `mapstructure:"planner"`
	Cache     Cache     `mapstructure:"cache"`
	Logging   Logging   `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".askfolio")

	v.SetDefault("kb.path", "knowledge.yaml")
	v.SetDefault("db.path", filepath.Join(dataDir, "askfolio.db"))

	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.classifier_model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.classifier_timeout", "8s")
	v.SetDefault("llm.answer_timeout", "30s")

	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dims", 0)
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.timeout", "5s")
	v.SetDefault("embedding.concurrency", 4)

	v.SetDefault("retrieval.top_k", 8)
	v.SetDefault("rerank.quotas", map[string]int{"project": 3, "experience": 2})
	v.SetDefault("rerank.total", 6)

	v.SetDefault("planner.specific_ceiling", 2)
	v.SetDefault("planner.followup_ceiling", 4)
	v.SetDefault("planner.max_actions", 5)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "7d")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads the configuration. An empty path searches for askfolio.yaml
// in the working directory and ~/.askfolio; finding none is not an error.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("askfolio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".askfolio"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(oneOf(c.LLM.Provider, "", "none", "openai", "anthropic"), "llm.provider: unknown provider %q", c.LLM.Provider)
	check(oneOf(c.Embedding.Provider, "", "none", "hash", "openai", "ollama"), "embedding.provider: unknown provider %q", c.Embedding.Provider)
	check(c.LLM.ClassifierTimeout > 0, "llm.classifier_timeout must be positive")
	check(c.LLM.AnswerTimeout > 0, "llm.answer_timeout must be positive")
	check(c.Embedding.Timeout > 0, "embedding.timeout must be positive")
	check(c.Embedding.Dims >= 0, "embedding.dims must not be negative")
	check(c.Embedding.Concurrency > 0, "embedding.concurrency must be positive")
	check(c.Retrieval.TopK > 0, "retrieval.top_k must be positive")
	check(c.Rerank.Total > 0, "rerank.total must be positive")
	for k, n := range c.Rerank.Quotas {
		_, ok := model.ParseKind(k)
		check(ok, "rerank.quotas: unknown kind %q", k)
		check(n >= 0, "rerank.quotas.%s must not be negative", k)
	}
	check(c.Planner.SpecificCeiling > 0, "planner.specific_ceiling must be positive")
	check(c.Planner.FollowUpCeiling >= c.Planner.SpecificCeiling, "planner.followup_ceiling must be at least planner.specific_ceiling")
	check(c.Planner.MaxActions > 0, "planner.max_actions must be positive")
	if c.Cache.TTL != "" {
		_, err := store.ParseTTL(c.Cache.TTL)
		check(err == nil, "cache.ttl: %v", err)
	}
	_, err := zapcore.ParseLevel(c.Logging.Level)
	check(err == nil, "logging.level: unknown level %q", c.Logging.Level)
	check(oneOf(c.Logging.Format, "json", "text"), "logging.format: must be json or text, got %q", c.Logging.Format)
	return errors.Join(errs...)
}

func oneOf(s string, options ...string) bool {
	s = strings.ToLower(s)
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

// LLMConfig selects the generative provider.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{Provider: c.LLM.Provider, Model: c.LLM.Model, APIKey: c.LLM.APIKey, BaseURL: c.LLM.BaseURL}
}

// EmbeddingConfig selects the embedding provider.
func (c *Config) EmbeddingConfig() embedding.Config {
	return embedding.Config{
		Provider: c.Embedding.Provider,
		Model:    c.Embedding.Model,
		Dims:     c.Embedding.Dims,
		BaseURL:  c.Embedding.BaseURL,
		APIKey:   c.Embedding.APIKey,
		Timeout:  c.Embedding.Timeout,
	}
}

// Quotas returns the diversification quotas keyed by kind. Unknown kinds
// are skipped.
func (c *Config) Quotas() map[model.Kind]int {
	out := make(map[model.Kind]int, len(c.Rerank.Quotas))
	for k, n := range c.Rerank.Quotas {
		if kind, ok := model.ParseKind(k); ok {
			out[kind] = n
		}
	}
	return out
}
