package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phenomenon0/matchradar/pkg/config"
	"github.com/phenomenon0/matchradar/pkg/metrics"
)

var (
	serveAddr     string
	serveInterval time.Duration
	serveRadar    bool
	serveStore    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the radar daemon",
	Long: `Run the refresh scheduler, alert radar and enrichment tracker, and serve the
read API, Prometheus metrics and the WebSocket event stream.

Example usage:
  radard serve --config radard.yaml
  radard serve --feed-url https://feed.example.com/matches --radar
  radard serve --store redis --interval 30s`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address override")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "Refresh interval override")
	serveCmd.Flags().BoolVar(&serveRadar, "radar", false, "Arm the alert radar at startup")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "Alert store override: memory or redis")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, func(c *config.Config) {
		if serveAddr != "" {
			c.Server.Addr = serveAddr
		}
		if serveInterval > 0 {
			c.Scheduler.Interval = serveInterval
		}
		if serveStore != "" {
			c.Alerts.Store = serveStore
		}
	})
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, metrics.Default())
	if err != nil {
		return err
	}

	logger.Info().
		Str("feed", feedLabel(cfg.Feed.URL)).
		Str("enrichment", cfg.Enrichment.Provider).
		Str("store", cfg.Alerts.Store).
		Dur("interval", cfg.Scheduler.Interval).
		Msg("radard starting")
	return a.run(ctx, serveRadar)
}

func feedLabel(url string) string {
	if url == "" {
		return "demo"
	}
	return url
}
