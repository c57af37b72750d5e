package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/phenomenon0/matchradar/pkg/match"
)

// MarketAnalysis is the latest answer to the market-wide question.
type MarketAnalysis struct {
	Text      string    `json:"text"`
	Pending   bool      `json:"pending"`
	Failed    bool      `json:"failed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateKind says which slot an Update touched.
type UpdateKind string

const (
	UpdateMatch  UpdateKind = "match"
	UpdateMarket UpdateKind = "market"
)

// Update is published after a completion has been applied. Latency is the
// round trip of the call that produced it.
type Update struct {
	Kind    UpdateKind      `json:"kind"`
	Match   *Result         `json:"match,omitempty"`
	Market  *MarketAnalysis `json:"market,omitempty"`
	Latency time.Duration   `json:"-"`
	Err     error           `json:"-"`
}

type completion struct {
	kind    UpdateKind
	result  Result
	text    string
	latency time.Duration
	err     error
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	OnUpdate func(Update)
	Buffer   int
	Logger   *zerolog.Logger
}

// Tracker owns the per-match confidence slots and the market slot. Requests run
// in their own goroutines; completions come back over a channel and are applied
// by Run in the order they finish, so the last reply to arrive wins.
type Tracker struct {
	analyzer *Analyzer
	onUpdate func(Update)
	log      zerolog.Logger

	done    chan completion
	stopped chan struct{}
	wg      sync.WaitGroup

	mu             sync.RWMutex
	base           context.Context
	slots          map[string]Result
	inflight       map[string]int
	market         MarketAnalysis
	marketInflight int
}

// NewTracker returns a tracker. Call Run to start applying completions.
func NewTracker(a *Analyzer, cfg TrackerConfig) *Tracker {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	t := &Tracker{
		analyzer: a,
		onUpdate: cfg.OnUpdate,
		log:      zerolog.Nop(),
		done:     make(chan completion, cfg.Buffer),
		stopped:  make(chan struct{}),
		base:     context.Background(),
		slots:    make(map[string]Result),
		inflight: make(map[string]int),
	}
	if cfg.Logger != nil {
		t.log = cfg.Logger.With().Str("component", "tracker").Logger()
	}
	return t
}

// Run applies completions until ctx is done. In-flight calls inherit ctx.
func (t *Tracker) Run(ctx context.Context) {
	t.mu.Lock()
	t.base = ctx
	t.mu.Unlock()
	defer close(t.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-t.done:
			t.apply(c)
		}
	}
}

// Wait blocks until every launched call has delivered its completion.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// RequestMatch marks the match pending and starts an analysis. The previous
// result stays visible until the new one lands.
func (t *Tracker) RequestMatch(s match.Snapshot) {
	t.mu.Lock()
	slot, ok := t.slots[s.ID]
	if !ok {
		slot = Result{MatchID: s.ID}
	}
	slot.Pending = true
	t.slots[s.ID] = slot
	t.inflight[s.ID]++
	ctx := t.base
	t.mu.Unlock()

	t.launch(func() completion {
		res, err := t.analyzer.AnalyzeMatch(ctx, s)
		return completion{kind: UpdateMatch, result: res, err: err}
	})
}

// RequestMarket marks the market slot pending and starts an analysis of live.
func (t *Tracker) RequestMarket(live []match.Snapshot) {
	snapshot := append([]match.Snapshot(nil), live...)

	t.mu.Lock()
	t.market.Pending = true
	t.marketInflight++
	ctx := t.base
	t.mu.Unlock()

	t.launch(func() completion {
		text, err := t.analyzer.AnalyzeMarket(ctx, snapshot)
		return completion{kind: UpdateMarket, text: text, err: err}
	})
}

func (t *Tracker) launch(call func() completion) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		start := time.Now()
		c := call()
		c.latency = time.Since(start)
		select {
		case t.done <- c:
		case <-t.stopped:
		}
	}()
}

func (t *Tracker) apply(c completion) {
	var u Update

	t.mu.Lock()
	switch c.kind {
	case UpdateMatch:
		id := c.result.MatchID
		if t.inflight[id] > 0 {
			t.inflight[id]--
		}
		res := c.result
		res.Pending = t.inflight[id] > 0
		t.slots[id] = res
		u = Update{Kind: UpdateMatch, Match: &res, Latency: c.latency, Err: c.err}
	case UpdateMarket:
		if t.marketInflight > 0 {
			t.marketInflight--
		}
		t.market = MarketAnalysis{
			Text:      c.text,
			Pending:   t.marketInflight > 0,
			Failed:    c.err != nil,
			UpdatedAt: time.Now(),
		}
		m := t.market
		u = Update{Kind: UpdateMarket, Market: &m, Latency: c.latency, Err: c.err}
	}
	t.mu.Unlock()

	t.log.Debug().Str("kind", string(c.kind)).Bool("failed", c.err != nil).Msg("analysis applied")
	if t.onUpdate != nil {
		t.onUpdate(u)
	}
}

// Confidence returns the slot for one match.
func (t *Tracker) Confidence(matchID string) (Result, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.slots[matchID]
	return r, ok
}

// Confidences returns a copy of every slot.
func (t *Tracker) Confidences() map[string]Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Result, len(t.slots))
	for k, v := range t.slots {
		out[k] = v
	}
	return out
}

// Market returns the market slot.
func (t *Tracker) Market() MarketAnalysis {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.market
}
