package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/signals"
)

const defaultMaxHistory = 256

// Config configures a Radar.
type Config struct {
	Store      Store
	Notifier   Notifier
	Logger     *zerolog.Logger
	MaxHistory int
	Now        func() time.Time
}

// Radar emits each (match, kind) alert at most once per session. A session starts
// every time the radar is enabled.
type Radar struct {
	store    Store
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time

	mu         sync.Mutex
	enabled    bool
	generation uint64
	fired      []Alert
	maxHistory int
}

// NewRadar returns a disabled radar. A nil store means an in-memory one.
func NewRadar(cfg Config) *Radar {
	r := &Radar{
		store:      cfg.Store,
		notifier:   cfg.Notifier,
		log:        zerolog.Nop(),
		now:        cfg.Now,
		maxHistory: cfg.MaxHistory,
	}
	if r.store == nil {
		r.store = NewMemoryStore()
	}
	if r.notifier == nil {
		r.notifier = nopNotifier{}
	}
	if cfg.Logger != nil {
		r.log = cfg.Logger.With().Str("component", "radar").Logger()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.maxHistory <= 0 {
		r.maxHistory = defaultMaxHistory
	}
	return r
}

// Enable clears the dedup store, starts a new generation and plays the
// Opportunity tone once. Enabling an enabled radar starts a fresh session too.
func (r *Radar) Enable(ctx context.Context) error {
	r.mu.Lock()
	if err := r.store.Reset(ctx); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("enable radar: %w", err)
	}
	r.enabled = true
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	r.log.Info().Uint64("generation", gen).Msg("radar enabled")
	r.notifier.Armed(ctx, gen, OpportunityTone())
	return nil
}

// Disable stops scanning. Fired keys are kept until the next Enable.
func (r *Radar) Disable() {
	r.mu.Lock()
	r.enabled = false
	r.mu.Unlock()
	r.log.Info().Msg("radar disabled")
}

// Enabled reports the radar flag.
func (r *Radar) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Generation is the number of times the radar has been enabled.
func (r *Radar) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Scan walks live in order and emits Critical then Opportunity for every snapshot
// whose key has not fired this session. It does nothing while disabled.
func (r *Radar) Scan(ctx context.Context, live []match.Snapshot) []Alert {
	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return nil
	}

	var emitted []Alert
	for _, s := range live {
		if !s.IsLive() {
			continue
		}
		c := signals.Classify(s)
		if c.CriticalWindow {
			if a, ok := r.fire(ctx, s, KindCritical); ok {
				emitted = append(emitted, a)
			}
		}
		if c.Opportunity() {
			if a, ok := r.fire(ctx, s, KindOpportunity); ok {
				emitted = append(emitted, a)
			}
		}
	}

	r.fired = append(r.fired, emitted...)
	if over := len(r.fired) - r.maxHistory; over > 0 {
		r.fired = append([]Alert(nil), r.fired[over:]...)
	}
	r.mu.Unlock()

	for _, a := range emitted {
		r.notifier.Notify(ctx, a)
	}
	return emitted
}

// fire must be called with r.mu held.
func (r *Radar) fire(ctx context.Context, s match.Snapshot, kind Kind) (Alert, bool) {
	key := Key{MatchID: s.ID, Kind: kind}
	fresh, err := r.store.MarkIfNew(ctx, key)
	if err != nil {
		r.log.Warn().Err(err).Str("match_id", s.ID).Str("kind", string(kind)).Msg("alert store failed")
	}
	if !fresh {
		return Alert{}, false
	}

	return Alert{
		ID:         uuid.NewString(),
		MatchID:    s.ID,
		Kind:       kind,
		Tone:       ToneFor(kind),
		Generation: r.generation,
		FiredAt:    r.now(),
		Snapshot:   s,
	}, true
}

// AlertsSince returns the retained alerts of generation since and later, oldest
// first.
func (r *Radar) AlertsSince(since uint64) []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Alert, 0)
	for _, a := range r.fired {
		if a.Generation >= since {
			out = append(out, a)
		}
	}
	return out
}

// Fired returns how many keys the store holds for the current session.
func (r *Radar) Fired(ctx context.Context) (int, error) {
	return r.store.Len(ctx)
}
