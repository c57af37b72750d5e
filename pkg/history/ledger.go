// Package history keeps the session's ledger of finished matches and scores the
// pre-match favorite against the final result.
package history

import (
	"sync"
	"time"

	"github.com/phenomenon0/matchradar/pkg/match"
)

// Entry is one finished match as first observed.
type Entry struct {
	Snapshot        match.Snapshot `json:"snapshot"`
	PredictedWinner match.Side     `json:"predicted_winner"`
	Correct         bool           `json:"correct"`
	Outcome         match.Outcome  `json:"outcome"`
	RecordedAt      time.Time      `json:"recorded_at"`
}

// Stats is the ledger's hit rate.
type Stats struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Rate returns Correct/Total in percent, or zero for an empty ledger.
func (s Stats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) * 100 / float64(s.Total)
}

// Ledger is append-only. The first snapshot seen for a match ID is the one kept.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
	seen    map[string]struct{}
	now     func() time.Time
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{}), now: time.Now}
}

// Record appends every finished snapshot whose ID is not in the ledger yet and
// returns the new entries in input order.
func (l *Ledger) Record(finished []match.Snapshot) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var added []Entry
	for _, s := range finished {
		if !s.IsFinished() {
			continue
		}
		if _, ok := l.seen[s.ID]; ok {
			continue
		}
		l.seen[s.ID] = struct{}{}

		e := Attribute(s)
		e.RecordedAt = l.now()
		l.entries = append(l.entries, e)
		added = append(added, e)
	}
	return added
}

// Attribute scores one finished snapshot. The home side is predicted only when its
// price is strictly shorter; level prices predict the away side.
func Attribute(s match.Snapshot) Entry {
	predicted := match.SideAway
	if s.Odds.Home.LessThan(s.Odds.Away) {
		predicted = match.SideHome
	}

	outcome := match.OutcomeDraw
	switch {
	case s.Score.Ahead(predicted):
		outcome = match.OutcomeWon
	case s.Score.Trailing(predicted):
		outcome = match.OutcomeLost
	}

	return Entry{
		Snapshot:        s,
		PredictedWinner: predicted,
		Correct:         outcome == match.OutcomeWon,
		Outcome:         outcome,
	}
}

// Entries returns a copy of the ledger in insertion order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Recent returns up to n entries, most recent first.
func (l *Ledger) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Stats counts correct predictions over the whole ledger.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := Stats{Total: len(l.entries)}
	for _, e := range l.entries {
		if e.Correct {
			st.Correct++
		}
	}
	return st
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
