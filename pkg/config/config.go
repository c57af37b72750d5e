// Package config loads the radard YAML configuration.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Feed       FeedConfig       `yaml:"feed"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server settings. BookmakerSearch is the search page each
// match links to; BookmakerNone disables the links.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	BookmakerSearch string        `yaml:"bookmaker_search"`
}

// FeedConfig holds match feed settings. An empty URL serves the demo dataset.
type FeedConfig struct {
	URL             string        `yaml:"url"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimit       float64       `yaml:"rate_limit"`
	Burst           int           `yaml:"burst"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// SchedulerConfig holds refresh cadence.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// BookmakerNone disables per-match bookmaker links.
const BookmakerNone = "none"

// Enrichment providers.
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderChat   = "chat"
)

// EnrichmentConfig selects and configures the text-generation service.
type EnrichmentConfig struct {
	Provider  string        `yaml:"provider"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
}

// Alert stores.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// AlertsConfig selects the dedup store.
type AlertsConfig struct {
	Store   string      `yaml:"store"`
	History int         `yaml:"history"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}
