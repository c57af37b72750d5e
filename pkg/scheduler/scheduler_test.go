package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/matchradar/pkg/feed"
	"github.com/phenomenon0/matchradar/pkg/match"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	results []error
	calls   int
	set     []match.Snapshot
	delay   time.Duration

	inflight    int32
	maxInflight int32
	deadline    time.Duration
}

func (f *scriptedFetcher) Fetch(ctx context.Context) ([]match.Snapshot, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInflight)
		if n <= peak || atomic.CompareAndSwapInt32(&f.maxInflight, peak, n) {
			break
		}
	}

	f.mu.Lock()
	i := f.calls
	f.calls++
	if dl, ok := ctx.Deadline(); ok {
		f.deadline = time.Until(dl)
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if i < len(f.results) && f.results[i] != nil {
		return nil, f.results[i]
	}
	return f.set, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func livePull() []match.Snapshot {
	return []match.Snapshot{
		{ID: "a", Clock: match.Running(10)},
		{ID: "b", Clock: match.NotStarted()},
		{ID: "c", Clock: match.Finished()},
	}
}

func TestTickLive(t *testing.T) {
	f := &scriptedFetcher{set: livePull()}
	var got []Pull
	s := New(Config{}, f, SinkFunc(func(_ context.Context, p Pull) { got = append(got, p) }))

	p := s.Tick(context.Background())
	assert.Equal(t, ModeLive, p.Mode)
	assert.NoError(t, p.Err)
	assert.Len(t, p.Live, 2, "not-started matches stay on the board")
	assert.Len(t, p.Finished, 1)
	assert.False(t, strings.HasSuffix(p.Label(), DemoSuffix))
	require.Len(t, got, 1)

	assert.InDelta(t, (3 * time.Second).Seconds(), f.deadline.Seconds(), 0.5)
}

func TestTickFallsBackToDemo(t *testing.T) {
	f := &scriptedFetcher{
		set:     livePull(),
		results: []error{feed.ErrUnavailable, errors.New("odd failure"), nil},
	}
	s := New(Config{}, f, nil)

	p := s.Tick(context.Background())
	assert.Equal(t, ModeDemo, p.Mode)
	assert.ErrorIs(t, p.Err, feed.ErrUnavailable)
	assert.Len(t, p.Live, 4)
	assert.Len(t, p.Finished, 3)
	assert.True(t, strings.HasSuffix(p.Label(), DemoSuffix))
	assert.Equal(t, ModeDemo, s.Mode())

	p = s.Tick(context.Background())
	assert.Equal(t, ModeDemo, p.Mode)
	assert.ErrorIs(t, p.Err, feed.ErrUnavailable, "foreign errors are classed as unavailable")

	p = s.Tick(context.Background())
	assert.Equal(t, ModeLive, p.Mode)
	assert.Equal(t, ModeLive, s.Mode())

	last, ok := s.LastPull()
	require.True(t, ok)
	assert.Equal(t, ModeLive, last.Mode)
}

func TestNilFetcherServesDemo(t *testing.T) {
	s := New(Config{}, nil, nil)
	_, ok := s.LastPull()
	assert.False(t, ok)

	p := s.Tick(context.Background())
	assert.Equal(t, ModeDemo, p.Mode)
}

func TestStartTicksImmediately(t *testing.T) {
	f := &scriptedFetcher{set: livePull()}
	pulls := make(chan Pull, 4)
	s := New(Config{Interval: time.Hour}, f, SinkFunc(func(_ context.Context, p Pull) { pulls <- p }))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	select {
	case p := <-pulls:
		assert.Equal(t, ModeLive, p.Mode)
	case <-time.After(time.Second):
		t.Fatal("no immediate tick")
	}
}

func TestTriggersCoalesceAndNeverOverlap(t *testing.T) {
	f := &scriptedFetcher{set: livePull(), delay: 50 * time.Millisecond}
	s := New(Config{Interval: time.Hour}, f, nil)

	require.NoError(t, s.Start(context.Background()))

	// Wait for the immediate tick to be in flight, then pile up triggers.
	assert.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)
	for i := 0; i < 5; i++ {
		s.Trigger()
	}
	// A direct tick from another goroutine waits its turn as well.
	go s.Tick(context.Background())

	assert.Eventually(t, func() bool { return f.callCount() == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, 3, f.callCount(), "five triggers collapse into one tick")
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.maxInflight))
}

func TestStopHonorsContext(t *testing.T) {
	s := New(Config{Interval: time.Hour}, feed.StaticFetcher(livePull()), nil)
	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
