// Package scheduler drives the refresh cycle: pull the feed on an interval, fall
// back to the demo dataset when the feed is down, and hand each pull to a sink.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/phenomenon0/matchradar/pkg/feed"
	"github.com/phenomenon0/matchradar/pkg/match"
)

// Mode says where the current data came from.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

// DemoSuffix is appended to the last-updated label while serving demo data.
const DemoSuffix = " (demo mode)"

// Pull is one completed tick.
type Pull struct {
	Live      []match.Snapshot `json:"live"`
	Finished  []match.Snapshot `json:"finished"`
	Mode      Mode             `json:"mode"`
	UpdatedAt time.Time        `json:"updated_at"`
	Duration  time.Duration    `json:"duration"`
	Err       error            `json:"-"`
}

// Label is the last-updated text shown next to the board.
func (p Pull) Label() string {
	label := p.UpdatedAt.Format("15:04:05")
	if p.Mode == ModeDemo {
		label += DemoSuffix
	}
	return label
}

// Sink receives every pull, in tick order.
type Sink interface {
	HandlePull(ctx context.Context, p Pull)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(context.Context, Pull)

func (f SinkFunc) HandlePull(ctx context.Context, p Pull) { f(ctx, p) }

// Config holds scheduler configuration.
type Config struct {
	Interval time.Duration // Tick interval (default: 60s)
	Timeout  time.Duration // Feed pull timeout (default: 3s)
	Demo     func() []match.Snapshot
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// DefaultConfig returns the dashboard's cadence.
func DefaultConfig() Config {
	return Config{
		Interval: 60 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// Scheduler runs ticks one at a time. A tick that comes due while another is in
// flight waits for it; any number of triggers during a tick collapse into one.
type Scheduler struct {
	cfg     Config
	fetcher feed.Fetcher
	sink    Sink
	log     zerolog.Logger

	trigger chan struct{}
	tickMu  sync.Mutex

	mu   sync.RWMutex
	mode Mode
	last *Pull

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. Zero config fields take DefaultConfig values.
func New(cfg Config, fetcher feed.Fetcher, sink Sink) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Demo == nil {
		cfg.Demo = match.DemoDataset
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		sink:    sink,
		log:     zerolog.Nop(),
		trigger: make(chan struct{}, 1),
		mode:    ModeLive,
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "scheduler").Logger()
	}
	return s
}

// Start ticks immediately, then every interval, until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run(ctx)

	s.log.Info().Dur("interval", s.cfg.Interval).Dur("timeout", s.cfg.Timeout).Msg("scheduler started")
	return nil
}

// Stop waits for the loop to exit or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger asks for a tick as soon as the loop is free.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		case <-s.trigger:
			s.Tick(ctx)
		}
	}
}

// Tick runs one pull synchronously and hands it to the sink.
func (s *Scheduler) Tick(ctx context.Context) Pull {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := s.cfg.Now()
	set, mode, err := s.pull(ctx)
	board, finished := match.Partition(set)

	p := Pull{
		Live:      board,
		Finished:  finished,
		Mode:      mode,
		UpdatedAt: s.cfg.Now(),
		Err:       err,
	}
	p.Duration = p.UpdatedAt.Sub(start)

	s.mu.Lock()
	prev := s.mode
	s.mode = mode
	s.last = &p
	s.mu.Unlock()

	if prev != mode {
		ev := s.log.Info()
		if mode == ModeDemo {
			ev = s.log.Warn().Err(err)
		}
		ev.Str("from", string(prev)).Str("mode", string(mode)).Msg("feed mode changed")
	}
	s.log.Debug().
		Str("mode", string(mode)).
		Int("live", len(board)).
		Int("finished", len(finished)).
		Dur("duration", p.Duration).
		Msg("tick")

	if s.sink != nil {
		s.sink.HandlePull(ctx, p)
	}
	return p
}

func (s *Scheduler) pull(ctx context.Context) ([]match.Snapshot, Mode, error) {
	if s.fetcher == nil {
		return s.cfg.Demo(), ModeDemo, feed.ErrUnavailable
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	set, err := s.fetcher.Fetch(fctx)
	if err != nil {
		if !errors.Is(err, feed.ErrUnavailable) {
			err = errors.Join(feed.ErrUnavailable, err)
		}
		return s.cfg.Demo(), ModeDemo, err
	}
	return set, ModeLive, nil
}

// Mode returns the mode of the last tick.
func (s *Scheduler) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// LastPull returns the most recent pull, if any tick has run.
func (s *Scheduler) LastPull() (Pull, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Pull{}, false
	}
	return *s.last, true
}
