// Package config provides unified configuration loading for questhive
// sessions: defaults, then a YAML file, then environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("questhive.yaml").
//	    WithEnvPrefix("QUESTHIVE").
//	    Load()
package config

import (
	"time"
)

// Config is the full session configuration.
type Config struct {
	Log          LogConfig          `yaml:"log" env:"LOG"`
	Conversation ConversationConfig `yaml:"conversation" env:"CONVERSATION"`
	Playtest     PlaytestConfig     `yaml:"playtest" env:"PLAYTEST"`
	Generator    GeneratorConfig    `yaml:"generator" env:"GENERATOR"`
	Redis        RedisConfig        `yaml:"redis" env:"REDIS"`
	Store        StoreConfig        `yaml:"store" env:"STORE"`
	Metrics      MetricsConfig      `yaml:"metrics" env:"METRICS"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `yaml:"level" env:"LEVEL"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
}

// ConversationConfig holds collaboration-mode defaults.
type ConversationConfig struct {
	MaxRounds             int     `yaml:"max_rounds" env:"MAX_ROUNDS"`
	Temperature           float64 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens             int     `yaml:"max_tokens" env:"MAX_TOKENS"`
	PromptBudget          int     `yaml:"prompt_budget" env:"PROMPT_BUDGET"`
	EnableCrossValidation bool    `yaml:"enable_cross_validation" env:"ENABLE_CROSS_VALIDATION"`
}

// PlaytestConfig holds swarm-mode defaults.
type PlaytestConfig struct {
	Parallel       bool    `yaml:"parallel" env:"PARALLEL"`
	MaxConcurrency int     `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`
	Temperature    float64 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens      int     `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// GeneratorConfig configures the decorators around the caller's Generator.
type GeneratorConfig struct {
	MaxRetries     int           `yaml:"max_retries" env:"MAX_RETRIES"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`
	RatePerSecond  float64       `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	RateBurst      int           `yaml:"rate_burst" env:"RATE_BURST"`
	EnableCache    bool          `yaml:"enable_cache" env:"ENABLE_CACHE"`
	CacheTTL       time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// RedisConfig configures the optional L2 generation cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// StoreConfig configures the optional session archive.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// MetricsConfig configures the internal Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Conversation: ConversationConfig{
			MaxRounds:   6,
			Temperature: 0.9,
			MaxTokens:   600,
		},
		Playtest: PlaytestConfig{
			Parallel:       true,
			MaxConcurrency: 8,
			Temperature:    0.8,
			MaxTokens:      800,
		},
		Generator: GeneratorConfig{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			RatePerSecond:  0, // 0 disables rate limiting
			RateBurst:      1,
			CacheTTL:       time.Hour,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Store: StoreConfig{Path: "questhive.db"},
		Metrics: MetricsConfig{
			Namespace: "questhive",
		},
	}
}
