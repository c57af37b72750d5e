package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phenomenon0/matchradar/pkg/alerts"
	"github.com/phenomenon0/matchradar/pkg/streaming"
)

var (
	watchURL    string
	watchEvents []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running daemon's event stream",
	Long: `Connect to a radard WebSocket stream and print events as they arrive,
reconnecting when the daemon restarts.

Example usage:
  radard watch
  radard watch --url ws://radar.internal:8080/ws --events alert,radar`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8080/ws", "Stream URL")
	watchCmd.Flags().StringSliceVar(&watchEvents, "events", []string{"alert", "radar", "refresh"}, "Event types to follow")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	types := make([]streaming.EventType, 0, len(watchEvents))
	for _, e := range watchEvents {
		types = append(types, streaming.EventType(strings.TrimSpace(e)))
	}

	scfg := streaming.DefaultSubscriberConfig(watchURL)
	scfg.Events = types
	scfg.Logger = &logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	return streaming.NewSubscriber(scfg).Run(ctx, func(env streaming.Envelope) {
		printEvent(out, env)
	})
}

func printEvent(w io.Writer, env streaming.Envelope) {
	ts := env.Timestamp.Local().Format("15:04:05")

	if env.Type == streaming.EventTypeAlert {
		var a alerts.Alert
		if err := json.Unmarshal(env.Data, &a); err == nil {
			s := a.Snapshot
			fmt.Fprintf(w, "%s %-11s %s  %s  %s  %s  (%s)\n",
				ts, strings.ToUpper(string(a.Kind)), s.Label(), s.Clock, s.Score, s.Odds, s.League)
			return
		}
	}
	fmt.Fprintf(w, "%s %-11s %s\n", ts, env.Type, string(env.Data))
}
