// Package match holds the normalized snapshot model for a football match as seen by
// the radar: score, clock, current and opening 1/2 odds.
//
// Snapshots are values. A refresh produces new snapshots for the same ID; nothing in
// this package mutates a snapshot after Normalize returns it.
package match

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Side is one of the two outcomes of a 1/2 market.
type Side string

const (
	SideNone Side = ""
	SideHome Side = "home"
	SideAway Side = "away"
)

// Outcome is the result tag attached to a finished match by the history ledger.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomeDraw Outcome = "draw"
)

// ClockKind discriminates the match clock.
type ClockKind string

const (
	ClockNotStarted ClockKind = "not_started"
	ClockRunning    ClockKind = "running"
	ClockFinished   ClockKind = "finished"
)

// MaxMinute bounds the elapsed-minutes value (extra time plus stoppage).
const MaxMinute = 130

// Clock is either an elapsed-minutes value or one of the two sentinels.
type Clock struct {
	Kind   ClockKind `json:"kind"`
	Minute int       `json:"minute"`
}

// NotStarted returns the not-started sentinel.
func NotStarted() Clock { return Clock{Kind: ClockNotStarted} }

// Finished returns the finished sentinel.
func Finished() Clock { return Clock{Kind: ClockFinished} }

// Running returns a clock at the given minute, clamped to [0, MaxMinute].
func Running(minute int) Clock {
	if minute < 0 {
		minute = 0
	}
	if minute > MaxMinute {
		minute = MaxMinute
	}
	return Clock{Kind: ClockRunning, Minute: minute}
}

// IsRunning reports whether the clock carries an elapsed-minutes value.
func (c Clock) IsRunning() bool { return c.Kind == ClockRunning }

// IsFinished reports whether the clock is the finished sentinel.
func (c Clock) IsFinished() bool { return c.Kind == ClockFinished }

// SortValue maps the clock onto a single integer axis: not started is -1,
// running clocks are their minute and finished sorts after every running minute.
func (c Clock) SortValue() int {
	switch c.Kind {
	case ClockRunning:
		return c.Minute
	case ClockFinished:
		return MaxMinute + 1
	default:
		return -1
	}
}

func (c Clock) String() string {
	switch c.Kind {
	case ClockRunning:
		return strconv.Itoa(c.Minute) + "'"
	case ClockFinished:
		return "FT"
	default:
		return "not started"
	}
}

// Score is the pair of goals scored so far.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Total returns the number of goals scored by both sides.
func (s Score) Total() int { return s.Home + s.Away }

// Trailing reports whether the given side is strictly behind.
func (s Score) Trailing(side Side) bool {
	switch side {
	case SideHome:
		return s.Home < s.Away
	case SideAway:
		return s.Away < s.Home
	default:
		return false
	}
}

// Ahead reports whether the given side is strictly ahead.
func (s Score) Ahead(side Side) bool {
	switch side {
	case SideHome:
		return s.Home > s.Away
	case SideAway:
		return s.Away > s.Home
	default:
		return false
	}
}

func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// Odds holds decimal prices for the home and away win.
type Odds struct {
	Home decimal.Decimal `json:"home"`
	Away decimal.Decimal `json:"away"`
}

// NewOdds builds an Odds pair from floats. Intended for tests and fixtures.
func NewOdds(home, away float64) Odds {
	return Odds{Home: decimal.NewFromFloat(home), Away: decimal.NewFromFloat(away)}
}

// Valid reports whether both prices are strictly positive.
func (o Odds) Valid() bool {
	return o.Home.IsPositive() && o.Away.IsPositive()
}

// Min returns the shorter of the two prices.
func (o Odds) Min() decimal.Decimal {
	return decimal.Min(o.Home, o.Away)
}

// For returns the price for one side.
func (o Odds) For(side Side) decimal.Decimal {
	if side == SideAway {
		return o.Away
	}
	return o.Home
}

func (o Odds) String() string {
	return o.Home.StringFixed(2) + "/" + o.Away.StringFixed(2)
}

// Snapshot is one match at one point in time.
type Snapshot struct {
	ID          string `json:"id"`
	League      string `json:"league"`
	KickoffTime string `json:"kickoff_time"`
	Home        string `json:"home"`
	Away        string `json:"away"`
	Clock       Clock  `json:"clock"`
	Score       Score  `json:"score"`
	Odds        Odds   `json:"odds"`
	OpeningOdds *Odds  `json:"opening_odds,omitempty"`
}

// IsLive reports whether the match is in play.
func (s Snapshot) IsLive() bool { return s.Clock.IsRunning() }

// IsFinished reports whether the match has ended.
func (s Snapshot) IsFinished() bool { return s.Clock.IsFinished() }

// Team returns the team name for a side.
func (s Snapshot) Team(side Side) string {
	if side == SideAway {
		return s.Away
	}
	return s.Home
}

// Label returns "Home vs Away".
func (s Snapshot) Label() string {
	return s.Home + " vs " + s.Away
}

// Partition splits a feed pull into the board (everything not finished, including
// matches that have not kicked off) and the finished matches. Input order is kept.
func Partition(set []Snapshot) (board, finished []Snapshot) {
	board = make([]Snapshot, 0, len(set))
	for _, s := range set {
		if s.IsFinished() {
			finished = append(finished, s)
			continue
		}
		board = append(board, s)
	}
	return board, finished
}
