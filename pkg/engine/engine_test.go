package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/matchradar/pkg/alerts"
	"github.com/phenomenon0/matchradar/pkg/enrich"
	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/metrics"
	"github.com/phenomenon0/matchradar/pkg/projection"
	"github.com/phenomenon0/matchradar/pkg/scheduler"
	"github.com/phenomenon0/matchradar/pkg/streaming"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []streaming.EventType
}

func (p *recordingPublisher) Publish(t streaming.EventType, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
}

func (p *recordingPublisher) count(t streaming.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == t {
			n++
		}
	}
	return n
}

type countingRefresher struct{ n int32 }

func (r *countingRefresher) Trigger() { atomic.AddInt32(&r.n, 1) }

func newEngine(t *testing.T, gen enrich.TextGenerator) (*Engine, *recordingPublisher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pub := &recordingPublisher{}
	var e *Engine
	tracker := enrich.NewTracker(enrich.NewAnalyzer(gen, enrich.AnalyzerConfig{}), enrich.TrackerConfig{
		OnUpdate: func(u enrich.Update) { e.HandleAnalysis(u) },
	})
	go tracker.Run(ctx)

	var err error
	e, err = New(Config{
		SessionID: "test",
		Radar:     alerts.NewRadar(alerts.Config{}),
		Tracker:   tracker,
		Metrics:   metrics.NewRadarMetrics(),
		Publisher: pub,
	})
	require.NoError(t, err)
	return e, pub
}

func pullOf(set []match.Snapshot, mode scheduler.Mode) scheduler.Pull {
	board, finished := match.Partition(set)
	return scheduler.Pull{Live: board, Finished: finished, Mode: mode, UpdatedAt: time.Now()}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Radar: alerts.NewRadar(alerts.Config{})})
	assert.Error(t, err)
}

func TestCriticalAlertFiresOnceAcrossPulls(t *testing.T) {
	e, pub := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.SetRadar(ctx, true))

	set := []match.Snapshot{{
		ID:    "1",
		Home:  "Man Utd",
		Away:  "Newcastle",
		Clock: match.Running(65),
		Odds:  match.NewOdds(1.90, 3.40),
	}}

	e.HandlePull(ctx, pullOf(set, scheduler.ModeLive))
	first := e.AlertsSince(0)
	require.Len(t, first, 1)
	assert.Equal(t, alerts.KindCritical, first[0].Kind)

	e.HandlePull(ctx, pullOf(set, scheduler.ModeLive))
	assert.Len(t, e.AlertsSince(0), 1, "same key does not fire twice")
	assert.Equal(t, 2, pub.count(streaming.EventTypeRefresh))

	// Re-arming starts a new session.
	require.NoError(t, e.SetRadar(ctx, true))
	e.HandlePull(ctx, pullOf(set, scheduler.ModeLive))
	assert.Len(t, e.AlertsSince(2), 1)
}

func TestDemoPull(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()

	p := pullOf(match.DemoDataset(), scheduler.ModeDemo)
	e.HandlePull(ctx, p)
	e.HandlePull(ctx, p)

	assert.Len(t, e.LiveMatches(), 4)
	assert.Len(t, e.FinishedMatches(), 3)
	assert.Len(t, e.CriticalMatches(), 2)
	assert.Len(t, e.UltraFavorites(), 2)
	assert.Empty(t, e.Favorites())
	assert.Empty(t, e.GoliathPanic())
	assert.Empty(t, e.MomentumMatches())
	assert.Len(t, e.ValueBets(), 3)
	assert.Len(t, e.Category(projection.CategoryCritical), 2)
	assert.Len(t, e.Classifications(), 4)

	entries, stats := e.SessionHistory()
	assert.Len(t, entries, 3, "finished matches are recorded once")
	assert.Equal(t, 2, stats.Correct)
	assert.Equal(t, "7", e.RecentHistory(1)[0].Snapshot.ID)

	st := e.Status()
	assert.Equal(t, scheduler.ModeDemo, st.Mode)
	assert.Contains(t, st.Label, scheduler.DemoSuffix)
	assert.True(t, st.Refreshed)
	assert.False(t, st.RadarEnabled)
	assert.Equal(t, 4, st.Summary.Live)
	assert.Empty(t, e.AlertsSince(0), "radar is off by default")

	got := e.Project(projection.Query{Sort: projection.Sort{Key: projection.SortClock, Dir: projection.Desc}})
	require.Len(t, got, 4)
	assert.Equal(t, "PSG", got[0].Home)
}

func TestMatchAnalysis(t *testing.T) {
	gen := enrich.GeneratorFunc(func(context.Context, string, string) (string, error) {
		return `{"confidence": 77, "analysis": "Pression."}`, nil
	})
	e, pub := newEngine(t, gen)
	e.HandlePull(context.Background(), pullOf(match.DemoDataset(), scheduler.ModeDemo))

	assert.ErrorIs(t, e.RequestMatchAnalysis("404"), ErrUnknownMatch)
	require.NoError(t, e.RequestMatchAnalysis("1"))

	assert.Eventually(t, func() bool {
		r, ok := e.Confidence("1")
		return ok && !r.Pending
	}, time.Second, 5*time.Millisecond)

	r, _ := e.Confidence("1")
	assert.Equal(t, 77, r.Score)
	assert.Len(t, e.Confidences(), 1)
	assert.Eventually(t, func() bool { return pub.count(streaming.EventTypeAnalysis) == 1 }, time.Second, 5*time.Millisecond)

	e.RequestMarketAnalysis()
	assert.Eventually(t, func() bool {
		m := e.MarketAnalysis()
		return !m.Pending && m.Text != ""
	}, time.Second, 5*time.Millisecond)
}

func TestAnalysisLatencyRecorded(t *testing.T) {
	gen := enrich.GeneratorFunc(func(context.Context, string, string) (string, error) {
		time.Sleep(2 * time.Millisecond)
		return `{"confidence": 61, "analysis": "Ouvert."}`, nil
	})
	e, pub := newEngine(t, gen)
	e.HandlePull(context.Background(), pullOf(match.DemoDataset(), scheduler.ModeDemo))
	require.Equal(t, 0, testutil.CollectAndCount(e.metrics.EnrichmentLatency))

	require.NoError(t, e.RequestMatchAnalysis("1"))
	assert.Eventually(t, func() bool { return pub.count(streaming.EventTypeAnalysis) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(e.metrics.EnrichmentLatency))

	e.RequestMarketAnalysis()
	assert.Eventually(t, func() bool { return pub.count(streaming.EventTypeAnalysis) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(e.metrics.EnrichmentLatency), "one series per kind")
}

func TestRefresh(t *testing.T) {
	e, _ := newEngine(t, nil)
	assert.False(t, e.Refresh())

	r := &countingRefresher{}
	e.AttachRefresher(r)
	assert.True(t, e.Refresh())
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.n))
}

func TestConcurrentReadsDuringPulls(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.SetRadar(ctx, true))
	demo := match.DemoDataset()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			e.HandlePull(ctx, pullOf(demo, scheduler.ModeDemo))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			board := e.LiveMatches()
			assert.True(t, len(board) == 0 || len(board) == 4)
			_ = e.Status()
			_ = e.Project(projection.Query{Search: "a"})
		}
	}()
	wg.Wait()

	assert.Len(t, e.AlertsSince(1), 4, "two critical and two opportunity keys")
}
