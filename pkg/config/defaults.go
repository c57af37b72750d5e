package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultFeedTimeout     = 3 * time.Second
	DefaultFeedRateLimit   = 2.0
	DefaultFeedBurst       = 2
	DefaultBreakerFailures = 3
	DefaultBreakerCooldown = 60 * time.Second
	DefaultInterval        = 60 * time.Second
	DefaultEnrichTimeout   = 20 * time.Second
	DefaultEnrichRateLimit = 1.0
	DefaultEnrichBurst     = 2
	DefaultAlertHistory    = 256
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisTTL        = 12 * time.Hour
	DefaultLogLevel        = "info"
	DefaultBookmaker       = "https://1xbet.com/search"
)

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.BookmakerSearch == "" {
		c.Server.BookmakerSearch = DefaultBookmaker
	}

	// Feed defaults
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Feed.RateLimit == 0 {
		c.Feed.RateLimit = DefaultFeedRateLimit
	}
	if c.Feed.Burst == 0 {
		c.Feed.Burst = DefaultFeedBurst
	}
	if c.Feed.BreakerFailures == 0 {
		c.Feed.BreakerFailures = DefaultBreakerFailures
	}
	if c.Feed.BreakerCooldown == 0 {
		c.Feed.BreakerCooldown = DefaultBreakerCooldown
	}

	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = DefaultInterval
	}

	// Enrichment defaults
	if c.Enrichment.Provider == "" {
		c.Enrichment.Provider = ProviderNone
		if c.Enrichment.APIKey != "" {
			c.Enrichment.Provider = ProviderGemini
		}
	}
	if c.Enrichment.Timeout == 0 {
		c.Enrichment.Timeout = DefaultEnrichTimeout
	}
	if c.Enrichment.RateLimit == 0 {
		c.Enrichment.RateLimit = DefaultEnrichRateLimit
	}
	if c.Enrichment.Burst == 0 {
		c.Enrichment.Burst = DefaultEnrichBurst
	}

	// Alert defaults
	if c.Alerts.Store == "" {
		c.Alerts.Store = StoreMemory
	}
	if c.Alerts.History == 0 {
		c.Alerts.History = DefaultAlertHistory
	}
	if c.Alerts.Redis.Addr == "" {
		c.Alerts.Redis.Addr = DefaultRedisAddr
	}
	if c.Alerts.Redis.TTL == 0 {
		c.Alerts.Redis.TTL = DefaultRedisTTL
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
