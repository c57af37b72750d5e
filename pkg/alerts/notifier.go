package alerts

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier is told about every emitted alert and about the radar being armed.
// Implementations must not block the caller for long.
type Notifier interface {
	Notify(ctx context.Context, alert Alert)
	Armed(ctx context.Context, generation uint64, tone Tone)
}

// LogNotifier writes alerts to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, a Alert) {
	n.Logger.Info().
		Str("alert_id", a.ID).
		Str("match_id", a.MatchID).
		Str("kind", string(a.Kind)).
		Str("match", a.Snapshot.Label()).
		Str("clock", a.Snapshot.Clock.String()).
		Str("score", a.Snapshot.Score.String()).
		Uint64("generation", a.Generation).
		Msg("alert fired")
}

func (n LogNotifier) Armed(_ context.Context, generation uint64, tone Tone) {
	n.Logger.Info().Uint64("generation", generation).Str("tone", tone.Name).Msg("radar armed")
}

// Fanout forwards to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, a Alert) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, a)
		}
	}
}

func (f Fanout) Armed(ctx context.Context, generation uint64, tone Tone) {
	for _, n := range f {
		if n != nil {
			n.Armed(ctx, generation, tone)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Alert) {}
func (nopNotifier) Armed(context.Context, uint64, Tone) {}
