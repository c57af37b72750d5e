package signals

import (
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/matchradar/pkg/match"
)

// PriceDrift is the move of each price since the market opened. Positive means the
// price lengthened.
type PriceDrift struct {
	Home decimal.Decimal `json:"home"`
	Away decimal.Decimal `json:"away"`
}

// Drift returns current minus opening for both sides. Without opening odds the
// current price is its own baseline and the drift is zero.
func Drift(s match.Snapshot) PriceDrift {
	open := s.Odds
	if s.OpeningOdds != nil {
		open = *s.OpeningOdds
	}
	return PriceDrift{
		Home: s.Odds.Home.Sub(open.Home),
		Away: s.Odds.Away.Sub(open.Away),
	}
}

// Summary counts category membership over a set, as shown in the dashboard header.
type Summary struct {
	Total          int `json:"total"`
	Live           int `json:"live"`
	Favorites      int `json:"favorites"`
	UltraFavorites int `json:"ultra_favorites"`
	GoliathPanic   int `json:"goliath_panic"`
	Critical       int `json:"critical"`
	Momentum       int `json:"momentum"`
	ValueBets      int `json:"value_bets"`
}

// Summarize classifies every snapshot once and counts.
func Summarize(set []match.Snapshot) Summary {
	sum := Summary{Total: len(set)}
	for _, s := range set {
		c := Classify(s)
		if c.Live {
			sum.Live++
		}
		if c.Favorite {
			sum.Favorites++
		}
		if c.UltraFavorite {
			sum.UltraFavorites++
		}
		if c.GoliathPanic {
			sum.GoliathPanic++
		}
		if c.CriticalWindow {
			sum.Critical++
		}
		if c.Momentum != match.SideNone {
			sum.Momentum++
		}
		if c.ValueBetDrift {
			sum.ValueBets++
		}
	}
	return sum
}

// Filter keeps the snapshots that belong to kind, in input order.
func Filter(set []match.Snapshot, kind Kind) []match.Snapshot {
	out := make([]match.Snapshot, 0)
	for _, s := range set {
		if Classify(s).Has(kind) {
			out = append(out, s)
		}
	}
	return out
}
