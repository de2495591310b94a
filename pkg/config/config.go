package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"ainia/pkg/inference"
	"ainia/pkg/quest"
	"ainia/pkg/store/sqlite"
)

// DefaultPath is read when no config file is named and it exists.
const DefaultPath = "ainia.yaml"

// Config holds all Ainia configuration.
type Config struct {
	Listen      string         `yaml:"listen"`
	LogLevel    string         `yaml:"log_level"`
	LexiconPath string         `yaml:"lexicon_path"`
	Provider    ProviderConfig `yaml:"provider"`
	Pipeline    quest.Config   `yaml:"pipeline"`
	Store       StoreConfig    `yaml:"store"`
}

// ProviderConfig selects the generation backend.
// Kind is "gemini" or an OpenAI-compatible preset ("openai", "grok", "kimi", "moonshot").
type ProviderConfig struct {
	Kind    string           `yaml:"kind"`
	APIKey  string           `yaml:"api_key"`
	Model   string           `yaml:"model"`
	BaseURL string           `yaml:"base_url"`
	Params  inference.Params `yaml:"params"`
}

// StoreConfig controls where stories and usage are kept.
// Driver is "sqlite" (default) or "memory". A non-empty RedisAddr moves the
// daily quota to Redis regardless of driver.
type StoreConfig struct {
	Driver        string        `yaml:"driver"`
	DBPath        string        `yaml:"db_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Provider: ProviderConfig{
			Kind:   "gemini",
			Params: inference.DefaultParams(),
		},
		Pipeline: quest.DefaultConfig(),
		Store: StoreConfig{
			Driver:        "sqlite",
			DBPath:        "ainia.db",
			CacheTTL:      sqlite.DefaultTTL,
			SweepInterval: 6 * time.Hour,
		},
	}
}

// Load reads a YAML config file, expands environment variables in it, and then
// applies environment overrides. An empty path loads DefaultPath if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Unset variables leave the
// current value alone.
func (c *Config) ApplyEnv(getenv func(string) string) {
	env := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}

	c.Provider.Kind = cmp.Or(env("AINIA_PROVIDER"), c.Provider.Kind)
	if c.Provider.APIKey == "" {
		if c.Provider.Kind == "gemini" {
			c.Provider.APIKey = env("GEMINI_API_KEY", "GOOGLE_API_KEY")
		} else {
			c.Provider.APIKey = env(strings.ToUpper(c.Provider.Kind)+"_API_KEY", "OPENAI_API_KEY")
		}
	}
	if c.Provider.Kind == "gemini" {
		c.Provider.Model = cmp.Or(env("GEMINI_MODEL"), c.Provider.Model)
	} else {
		c.Provider.Model = cmp.Or(env("OPENAI_MODEL"), c.Provider.Model)
		c.Provider.BaseURL = cmp.Or(env("OPENAI_BASE_URL"), c.Provider.BaseURL)
	}

	if port := env("PORT"); port != "" {
		c.Listen = ":" + strings.TrimPrefix(port, ":")
	}
	c.Store.DBPath = cmp.Or(env("AINIA_DB"), c.Store.DBPath)
	c.Store.RedisAddr = cmp.Or(env("REDIS_ADDR"), c.Store.RedisAddr)
	c.LogLevel = cmp.Or(env("LOG_LEVEL"), c.LogLevel)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Provider.Kind != "gemini" && !inference.IsOpenAICompatible(c.Provider.Kind) {
		errs = append(errs, fmt.Errorf("provider.kind: unknown provider %q", c.Provider.Kind))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DBPath == "" {
			errs = append(errs, errors.New("store.db_path is required for the sqlite driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if c.Store.CacheTTL <= 0 {
		errs = append(errs, errors.New("store.cache_ttl must be positive"))
	}
	if c.Pipeline.MaxAttempts < 1 {
		errs = append(errs, errors.New("pipeline.max_attempts must be at least 1"))
	}
	if c.Pipeline.DailyLimit < 1 {
		errs = append(errs, errors.New("pipeline.daily_limit must be at least 1"))
	}
	return errors.Join(errs...)
}

// Logger builds the root logger at the configured level.
func (c *Config) Logger() *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Prefix:          "ainia",
		ReportTimestamp: true,
	})
}
