package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/metrics"
	"github.com/phenomenon0/matchradar/pkg/scheduler"
	"github.com/phenomenon0/matchradar/pkg/signals"
)

var snapshotFormat string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Pull the feed once and print the classified board",
	Long: `Pull the feed once (falling back to the demo board) and print every match
with its signal categories.

Example usage:
  radard snapshot
  radard snapshot --feed-url https://feed.example.com/matches --format json`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotFormat, "format", "table", "Output format: table, json")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	sched := scheduler.New(scheduler.Config{
		Timeout: cfg.Feed.Timeout,
		Logger:  &logger,
	}, newFetcher(cfg.Feed, metrics.NewRadarMetrics()), nil)

	p := sched.Tick(context.Background())
	if p.Err != nil {
		logger.Warn().Err(p.Err).Msg("feed unavailable, showing demo board")
	}
	return writeSnapshot(cmd.OutOrStdout(), p, snapshotFormat)
}

type snapshotRow struct {
	Snapshot match.Snapshot         `json:"snapshot"`
	Signals  signals.Classification `json:"signals"`
}

func writeSnapshot(w io.Writer, p scheduler.Pull, format string) error {
	switch strings.ToLower(format) {
	case "json":
		rows := make([]snapshotRow, 0, len(p.Live))
		for _, s := range p.Live {
			rows = append(rows, snapshotRow{Snapshot: s, Signals: signals.Classify(s)})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"mode":     p.Mode,
			"label":    p.Label(),
			"matches":  rows,
			"finished": len(p.Finished),
			"summary":  signals.Summarize(p.Live),
		})
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintf(w, "Updated %s\n\n", p.Label())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLEAGUE\tMATCH\tCLOCK\tSCORE\tODDS\tSIGNALS")
	for _, s := range p.Live {
		kinds := signals.Classify(s).Kinds()
		names := make([]string, 0, len(kinds))
		for _, k := range kinds {
			names = append(names, string(k))
		}
		sig := strings.Join(names, ",")
		if sig == "" {
			sig = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.League, s.Label(), s.Clock, s.Score, s.Odds, sig)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum := signals.Summarize(p.Live)
	_, err := fmt.Fprintf(w, "\n%d live, %d critical, %d ultra, %d value bets, %d finished\n",
		sum.Live, sum.Critical, sum.UltraFavorites, sum.ValueBets, len(p.Finished))
	return err
}
