// Package alerts implements the radar: a session-scoped deduplication store for
// (match, kind) pairs and the audible cues played when a new pair fires.
package alerts

import (
	"time"

	"github.com/phenomenon0/matchradar/pkg/match"
)

// Kind is the alert category. It is coarser than the classifier's categories:
// both odds bands fire a single Opportunity alert.
type Kind string

const (
	KindCritical    Kind = "critical"
	KindOpportunity Kind = "opportunity"
)

// Key identifies one alert for the lifetime of a radar session.
type Key struct {
	MatchID string `json:"match_id"`
	Kind    Kind   `json:"kind"`
}

func (k Key) String() string {
	return k.MatchID + "|" + string(k.Kind)
}

// Alert is a fired key together with the snapshot that fired it.
type Alert struct {
	ID         string         `json:"id"`
	MatchID    string         `json:"match_id"`
	Kind       Kind           `json:"kind"`
	Tone       Tone           `json:"tone"`
	Generation uint64         `json:"generation"`
	FiredAt    time.Time      `json:"fired_at"`
	Snapshot   match.Snapshot `json:"snapshot"`
}

// Key returns the dedup key the alert was emitted under.
func (a Alert) Key() Key {
	return Key{MatchID: a.MatchID, Kind: a.Kind}
}
