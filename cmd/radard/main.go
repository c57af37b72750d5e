// radard is the match radar daemon: it pulls the live odds board, classifies
// every match, fires session-deduplicated alerts and serves the result over
// HTTP and WebSocket.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phenomenon0/matchradar/pkg/config"
)

var (
	configPath string
	logLevel   string
	logPretty  bool
	feedURL    string
)

var rootCmd = &cobra.Command{
	Use:   "radard",
	Short: "Football odds signal and alert engine",
	Long: `radard polls a live football odds feed, classifies every match into signal
categories (favorites, critical window, goliath panic, momentum, value bets),
fires each alert once per radar session and exposes the board over HTTP.

When the feed is unreachable it serves a built-in demo board.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "Human-readable console logs")
	rootCmd.PersistentFlags().StringVar(&feedURL, "feed-url", "", "Feed URL override (empty config value means demo board)")

	rootCmd.AddCommand(serveCmd, snapshotCmd, watchCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the file, applies flag overrides, then defaults and
// validation.
func loadConfig(cmd *cobra.Command, override func(*config.Config)) (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = logPretty
	}
	if flags.Changed("feed-url") {
		cfg.Feed.URL = feedURL
	}
	if override != nil {
		override(cfg)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "radard").Logger()
}
