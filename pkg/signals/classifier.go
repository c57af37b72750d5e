// Package signals classifies match snapshots into the radar's signal categories.
//
// Every rule is a pure function of one snapshot. Classify evaluates them all in one
// pass so the shorter price is read once and every rule sees the same value.
package signals

import (
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/matchradar/pkg/match"
)

// Thresholds. Decimal keeps the band edges exact: 1.25 is a favorite, not an
// ultra-favorite, and 1.20 + 0.20 is exactly 1.40.
var (
	FavoriteLow    = decimal.RequireFromString("1.25")
	FavoriteHigh   = decimal.RequireFromString("1.50")
	GoliathPrice   = decimal.RequireFromString("1.20")
	MomentumPrice  = decimal.RequireFromString("1.40")
	DriftThreshold = decimal.RequireFromString("0.20")
)

// Clock windows, in minutes.
const (
	CriticalFrom  = 55
	CriticalTo    = 75
	GoliathFrom   = 70
	MomentumAfter = 15
)

// Kind names a signal category.
type Kind string

const (
	KindFavorite      Kind = "favorite"
	KindUltraFavorite Kind = "ultra_favorite"
	KindGoliathPanic  Kind = "goliath_panic"
	KindCritical      Kind = "critical"
	KindMomentum      Kind = "momentum"
	KindValueBet      Kind = "value_bet"
)

// Classification is the result of one classification pass over a snapshot.
type Classification struct {
	MatchID string `json:"match_id"`
	Live    bool   `json:"live"`

	MinOdds decimal.Decimal `json:"min_odds"`

	Favorite       bool       `json:"favorite"`
	UltraFavorite  bool       `json:"ultra_favorite"`
	CriticalWindow bool       `json:"critical_window"`
	GoliathPanic   bool       `json:"goliath_panic"`
	GoliathSide    match.Side `json:"goliath_side,omitempty"`
	Momentum       match.Side `json:"momentum,omitempty"`
	ValueBetDrift  bool       `json:"value_bet_drift"`
}

// Kinds lists the categories the snapshot belongs to.
func (c Classification) Kinds() []Kind {
	var kinds []Kind
	if c.Favorite {
		kinds = append(kinds, KindFavorite)
	}
	if c.UltraFavorite {
		kinds = append(kinds, KindUltraFavorite)
	}
	if c.GoliathPanic {
		kinds = append(kinds, KindGoliathPanic)
	}
	if c.CriticalWindow {
		kinds = append(kinds, KindCritical)
	}
	if c.Momentum != match.SideNone {
		kinds = append(kinds, KindMomentum)
	}
	if c.ValueBetDrift {
		kinds = append(kinds, KindValueBet)
	}
	return kinds
}

// Has reports membership in one category.
func (c Classification) Has(kind Kind) bool {
	switch kind {
	case KindFavorite:
		return c.Favorite
	case KindUltraFavorite:
		return c.UltraFavorite
	case KindGoliathPanic:
		return c.GoliathPanic
	case KindCritical:
		return c.CriticalWindow
	case KindMomentum:
		return c.Momentum != match.SideNone
	case KindValueBet:
		return c.ValueBetDrift
	default:
		return false
	}
}

// Opportunity reports whether the snapshot sits in either odds band.
func (c Classification) Opportunity() bool {
	return c.Favorite || c.UltraFavorite
}

// Classify runs every rule over s.
func Classify(s match.Snapshot) Classification {
	c := Classification{MatchID: s.ID, Live: s.IsLive()}
	if !c.Live {
		return c
	}

	minute := s.Clock.Minute
	c.CriticalWindow = minute >= CriticalFrom && minute <= CriticalTo && s.Score.Total() == 0

	if !s.Odds.Valid() {
		return c
	}

	minOdds := s.Odds.Min()
	c.MinOdds = minOdds

	c.Favorite = minOdds.GreaterThanOrEqual(FavoriteLow) && minOdds.LessThanOrEqual(FavoriteHigh)
	c.UltraFavorite = minOdds.LessThan(FavoriteLow)

	if minute >= GoliathFrom {
		c.GoliathSide = exposedSide(s, GoliathPrice)
		c.GoliathPanic = c.GoliathSide != match.SideNone
	}

	if minute > MomentumAfter {
		c.Momentum = exposedSide(s, MomentumPrice)
	}

	c.ValueBetDrift = drifted(s)

	return c
}

// exposedSide returns the first side, home before away, priced under limit whose
// score is level with or behind the opponent's.
func exposedSide(s match.Snapshot, limit decimal.Decimal) match.Side {
	for _, side := range []match.Side{match.SideHome, match.SideAway} {
		if s.Odds.For(side).LessThan(limit) && !s.Score.Ahead(side) {
			return side
		}
	}
	return match.SideNone
}

func drifted(s match.Snapshot) bool {
	if s.OpeningOdds == nil {
		return false
	}
	d := Drift(s)
	return d.Home.GreaterThan(DriftThreshold) || d.Away.GreaterThan(DriftThreshold)
}

// IsFavorite reports live 1.25 <= min <= 1.50.
func IsFavorite(s match.Snapshot) bool { return Classify(s).Favorite }

// IsUltraFavorite reports live min < 1.25.
func IsUltraFavorite(s match.Snapshot) bool { return Classify(s).UltraFavorite }

// IsCriticalWindow reports a goalless live match between minute 55 and 75.
func IsCriticalWindow(s match.Snapshot) bool { return Classify(s).CriticalWindow }

// IsGoliathPanic reports a side under 1.20 that is not ahead from minute 70.
func IsGoliathPanic(s match.Snapshot) bool { return Classify(s).GoliathPanic }

// MomentumOf returns the side carrying momentum, if any.
func MomentumOf(s match.Snapshot) match.Side { return Classify(s).Momentum }

// IsValueBet reports an outward drift of more than 0.20 on either side.
func IsValueBet(s match.Snapshot) bool { return Classify(s).ValueBetDrift }
