package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if b := c.Server.BookmakerSearch; b != "" && b != BookmakerNone {
		u, err := url.Parse(b)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("server.bookmaker_search must be an http(s) URL or %q, got %q", BookmakerNone, b)
		}
	}

	if c.Feed.URL != "" {
		u, err := url.Parse(c.Feed.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("feed.url must be an http(s) URL, got %q", c.Feed.URL)
		}
	}
	if c.Feed.Timeout < 0 {
		return errors.New("feed.timeout must be positive")
	}
	if c.Feed.RateLimit < 0 || c.Feed.Burst < 1 {
		return errors.New("feed.rate_limit must be >= 0 and feed.burst >= 1")
	}

	if c.Scheduler.Interval < c.Feed.Timeout {
		return fmt.Errorf("scheduler.interval (%s) must not be shorter than feed.timeout (%s)", c.Scheduler.Interval, c.Feed.Timeout)
	}

	switch c.Enrichment.Provider {
	case ProviderNone:
	case ProviderGemini:
		if c.Enrichment.APIKey == "" {
			return errors.New("enrichment.api_key is required for the gemini provider")
		}
	case ProviderChat:
		if c.Enrichment.BaseURL == "" && c.Enrichment.APIKey == "" {
			return errors.New("enrichment.chat needs base_url or api_key")
		}
	default:
		return fmt.Errorf("enrichment.provider must be none, gemini or chat, got %q", c.Enrichment.Provider)
	}

	switch c.Alerts.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Alerts.Redis.Addr == "" {
			return errors.New("alerts.redis.addr is required for the redis store")
		}
		if c.Alerts.Redis.DB < 0 {
			return errors.New("alerts.redis.db must be >= 0")
		}
	default:
		return fmt.Errorf("alerts.store must be memory or redis, got %q", c.Alerts.Store)
	}
	if c.Alerts.History < 1 {
		return errors.New("alerts.history must be >= 1")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
