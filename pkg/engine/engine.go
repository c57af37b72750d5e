// Package engine owns one radar session: the current board, the finished-match
// ledger, the alert radar and the enrichment slots. Every read goes through it so
// concurrent readers never see a half-applied refresh.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phenomenon0/matchradar/pkg/alerts"
	"github.com/phenomenon0/matchradar/pkg/enrich"
	"github.com/phenomenon0/matchradar/pkg/history"
	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/metrics"
	"github.com/phenomenon0/matchradar/pkg/projection"
	"github.com/phenomenon0/matchradar/pkg/scheduler"
	"github.com/phenomenon0/matchradar/pkg/signals"
	"github.com/phenomenon0/matchradar/pkg/streaming"
)

// ErrUnknownMatch is returned for a match ID that is not on the board.
var ErrUnknownMatch = errors.New("unknown match")

// Publisher receives engine events for connected clients.
type Publisher interface {
	Publish(eventType streaming.EventType, data interface{})
}

// Refresher runs a tick out of schedule.
type Refresher interface {
	Trigger()
}

// Config wires an Engine. Radar and Tracker are required; everything else is
// optional.
type Config struct {
	SessionID string
	Radar     *alerts.Radar
	Tracker   *enrich.Tracker
	Ledger    *history.Ledger
	Metrics   *metrics.RadarMetrics
	Publisher Publisher
	Logger    *zerolog.Logger
}

// Status is the dashboard header.
type Status struct {
	SessionID    string          `json:"session_id"`
	Mode         scheduler.Mode  `json:"mode"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Label        string          `json:"label"`
	Refreshed    bool            `json:"refreshed"`
	LastError    string          `json:"last_error,omitempty"`
	RadarEnabled bool            `json:"radar_enabled"`
	Generation   uint64          `json:"generation"`
	Summary      signals.Summary `json:"summary"`
	Finished     int             `json:"finished"`
	History      history.Stats   `json:"history"`
}

// Engine is the session instance.
type Engine struct {
	sessionID string
	radar     *alerts.Radar
	tracker   *enrich.Tracker
	ledger    *history.Ledger
	metrics   *metrics.RadarMetrics
	publisher Publisher
	log       zerolog.Logger

	mu        sync.RWMutex
	board     []match.Snapshot
	finished  []match.Snapshot
	mode      scheduler.Mode
	updatedAt time.Time
	label     string
	refreshed bool
	lastErr   error
	refresher Refresher
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Radar == nil {
		return nil, fmt.Errorf("engine: radar is required")
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("engine: tracker is required")
	}

	e := &Engine{
		sessionID: cfg.SessionID,
		radar:     cfg.Radar,
		tracker:   cfg.Tracker,
		ledger:    cfg.Ledger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		log:       zerolog.Nop(),
		mode:      scheduler.ModeLive,
	}
	if e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}
	if e.ledger == nil {
		e.ledger = history.NewLedger()
	}
	if cfg.Logger != nil {
		e.log = cfg.Logger.With().Str("component", "engine").Str("session_id", e.sessionID).Logger()
	}
	return e, nil
}

// AttachRefresher connects the scheduler so Refresh can trigger a tick.
func (e *Engine) AttachRefresher(r Refresher) {
	e.mu.Lock()
	e.refresher = r
	e.mu.Unlock()
}

// SessionID identifies the session.
func (e *Engine) SessionID() string { return e.sessionID }

// HandlePull applies one tick: swap the board, extend the ledger, scan for
// alerts. Implements scheduler.Sink.
func (e *Engine) HandlePull(ctx context.Context, p scheduler.Pull) {
	board := append([]match.Snapshot(nil), p.Live...)
	finished := append([]match.Snapshot(nil), p.Finished...)

	e.mu.Lock()
	e.board = board
	e.finished = finished
	e.mode = p.Mode
	e.updatedAt = p.UpdatedAt
	e.label = p.Label()
	e.refreshed = true
	e.lastErr = p.Err
	e.mu.Unlock()

	added := e.ledger.Record(finished)
	fired := e.radar.Scan(ctx, board)
	sum := signals.Summarize(board)

	if e.metrics != nil {
		e.metrics.RecordTick(string(p.Mode), p.Duration.Seconds(), p.Err != nil)
		e.metrics.UpdateBoard(sum)
		for _, s := range board {
			if s.IsLive() && s.Odds.Valid() {
				e.metrics.ObserveMinOdds(s.Odds.Min())
			}
		}
		for _, a := range fired {
			e.metrics.RecordAlert(string(a.Kind))
		}
		st := e.ledger.Stats()
		e.metrics.UpdateHistory(st.Correct, st.Total)
	}

	e.log.Debug().
		Str("mode", string(p.Mode)).
		Int("board", len(board)).
		Int("finished", len(finished)).
		Int("history_added", len(added)).
		Int("alerts", len(fired)).
		Msg("pull applied")

	e.publish(streaming.EventTypeRefresh, map[string]interface{}{
		"mode":       p.Mode,
		"label":      p.Label(),
		"updated_at": p.UpdatedAt,
		"summary":    sum,
	})
}

// HandleAnalysis publishes an applied enrichment completion. Pass it as the
// tracker's OnUpdate.
func (e *Engine) HandleAnalysis(u enrich.Update) {
	if e.metrics != nil {
		status := "ok"
		if u.Err != nil {
			status = "unavailable"
		}
		confidence, parsed := -1.0, false
		if u.Match != nil {
			confidence, parsed = float64(u.Match.Score), !u.Match.Fallback
		}
		e.metrics.RecordEnrichment(string(u.Kind), status, u.Latency.Seconds(), confidence, parsed)
	}
	e.publish(streaming.EventTypeAnalysis, u)
}

func (e *Engine) publish(t streaming.EventType, data interface{}) {
	if e.publisher != nil {
		e.publisher.Publish(t, data)
	}
}

func (e *Engine) snapshotBoard() []match.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]match.Snapshot(nil), e.board...)
}

// LiveMatches returns the board: every match that has not finished.
func (e *Engine) LiveMatches() []match.Snapshot {
	out := e.snapshotBoard()
	if out == nil {
		out = make([]match.Snapshot, 0)
	}
	return out
}

// FinishedMatches returns the finished subset of the last pull.
func (e *Engine) FinishedMatches() []match.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append(make([]match.Snapshot, 0, len(e.finished)), e.finished...)
}

func (e *Engine) Favorites() []match.Snapshot {
	return signals.Filter(e.snapshotBoard(), signals.KindFavorite)
}

func (e *Engine) UltraFavorites() []match.Snapshot {
	return signals.Filter(e.snapshotBoard(), signals.KindUltraFavorite)
}

func (e *Engine) GoliathPanic() []match.Snapshot {
	return signals.Filter(e.snapshotBoard(), signals.KindGoliathPanic)
}

func (e *Engine) CriticalMatches() []match.Snapshot {
	return signals.Filter(e.snapshotBoard(), signals.KindCritical)
}

func (e *Engine) MomentumMatches() []match.Snapshot {
	return signals.Filter(e.snapshotBoard(), signals.KindMomentum)
}

func (e *Engine) ValueBets() []match.Snapshot {
	return signals.Filter(e.snapshotBoard(), signals.KindValueBet)
}

// Category returns one dashboard tab.
func (e *Engine) Category(c projection.Category) []match.Snapshot {
	return projection.Project(e.snapshotBoard(), projection.Query{Category: c})
}

// Classifications returns the classification of every board match, by ID.
func (e *Engine) Classifications() map[string]signals.Classification {
	board := e.snapshotBoard()
	out := make(map[string]signals.Classification, len(board))
	for _, s := range board {
		out[s.ID] = signals.Classify(s)
	}
	return out
}

// Project searches, sorts and filters the board.
func (e *Engine) Project(q projection.Query) []match.Snapshot {
	return projection.Project(e.snapshotBoard(), q)
}

// SessionHistory returns the ledger and its hit rate.
func (e *Engine) SessionHistory() ([]history.Entry, history.Stats) {
	return e.ledger.Entries(), e.ledger.Stats()
}

// RecentHistory returns the last n ledger entries, newest first.
func (e *Engine) RecentHistory(n int) []history.Entry {
	return e.ledger.Recent(n)
}

// AlertsSince returns alerts emitted in generation since or later.
func (e *Engine) AlertsSince(since uint64) []alerts.Alert {
	return e.radar.AlertsSince(since)
}

// RequestMarketAnalysis starts a market-wide analysis of the board.
func (e *Engine) RequestMarketAnalysis() {
	e.tracker.RequestMarket(e.snapshotBoard())
}

// RequestMatchAnalysis starts an analysis of one board match.
func (e *Engine) RequestMatchAnalysis(matchID string) error {
	s, ok := e.find(matchID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMatch, matchID)
	}
	e.tracker.RequestMatch(s)
	return nil
}

func (e *Engine) find(matchID string) (match.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.board {
		if s.ID == matchID {
			return s, true
		}
	}
	return match.Snapshot{}, false
}

// Confidence returns the enrichment slot of one match.
func (e *Engine) Confidence(matchID string) (enrich.Result, bool) {
	return e.tracker.Confidence(matchID)
}

// Confidences returns every enrichment slot.
func (e *Engine) Confidences() map[string]enrich.Result {
	return e.tracker.Confidences()
}

// MarketAnalysis returns the market-wide slot.
func (e *Engine) MarketAnalysis() enrich.MarketAnalysis {
	return e.tracker.Market()
}

// SetRadar arms or disarms the radar. Arming always starts a new session of
// alert keys.
func (e *Engine) SetRadar(ctx context.Context, enabled bool) error {
	if enabled {
		if err := e.radar.Enable(ctx); err != nil {
			return err
		}
	} else {
		e.radar.Disable()
		e.publish(streaming.EventTypeRadar, map[string]interface{}{
			"enabled":    false,
			"generation": e.radar.Generation(),
		})
	}

	if e.metrics != nil {
		e.metrics.SetRadar(e.radar.Enabled(), e.radar.Generation())
	}
	return nil
}

// Refresh asks the scheduler for an immediate tick. It reports false when no
// scheduler is attached.
func (e *Engine) Refresh() bool {
	e.mu.RLock()
	r := e.refresher
	e.mu.RUnlock()
	if r == nil {
		return false
	}
	r.Trigger()
	return true
}

// Status returns the header view.
func (e *Engine) Status() Status {
	e.mu.RLock()
	st := Status{
		SessionID: e.sessionID,
		Mode:      e.mode,
		UpdatedAt: e.updatedAt,
		Label:     e.label,
		Refreshed: e.refreshed,
		Finished:  len(e.finished),
		Summary:   signals.Summarize(e.board),
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	e.mu.RUnlock()

	st.RadarEnabled = e.radar.Enabled()
	st.Generation = e.radar.Generation()
	st.History = e.ledger.Stats()
	return st
}
