package projection

import (
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/signals"
)

// Project returns a new slice; set is never reordered or modified.
func Project(set []match.Snapshot, q Query) []match.Snapshot {
	out := Search(set, q.Search)
	SortStable(out, q.Sort)
	if kind, ok := q.Category.Kind(); ok {
		out = signals.Filter(out, kind)
	}
	return out
}

// Search keeps snapshots whose home, away or league contains term, compared
// after Unicode case folding with accents dropped, so "atletico" finds
// "Atlético". An empty term keeps everything.
func Search(set []match.Snapshot, term string) []match.Snapshot {
	out := make([]match.Snapshot, 0, len(set))
	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		return append(out, set...)
	}

	for _, s := range set {
		if strings.Contains(fold(s.Home), needle) ||
			strings.Contains(fold(s.Away), needle) ||
			strings.Contains(fold(s.League), needle) {
			out = append(out, s)
		}
	}
	return out
}

// fold builds a fresh transformer per call; neither cases.Caser nor a chained
// transform.Transformer is safe for concurrent use.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return cases.Fold().String(s)
	}
	return out
}

// SortStable orders set in place. Equal keys keep their relative order.
func SortStable(set []match.Snapshot, by Sort) {
	less := lessFunc(by.Key)
	if less == nil {
		return
	}
	desc := by.Dir == Desc
	sort.SliceStable(set, func(i, j int) bool {
		if desc {
			return less(set[j], set[i])
		}
		return less(set[i], set[j])
	})
}

func lessFunc(key SortKey) func(a, b match.Snapshot) bool {
	switch key {
	case SortClock:
		return func(a, b match.Snapshot) bool {
			return a.Clock.SortValue() < b.Clock.SortValue()
		}
	case SortMinOdds:
		return func(a, b match.Snapshot) bool {
			return sortableMin(a).LessThan(sortableMin(b))
		}
	case SortLeague:
		return func(a, b match.Snapshot) bool {
			return fold(a.League) < fold(b.League)
		}
	case SortHomeTeam:
		return func(a, b match.Snapshot) bool {
			return fold(a.Home) < fold(b.Home)
		}
	default:
		return nil
	}
}

var unpriced = decimal.NewFromInt(1 << 30)

// sortableMin places snapshots without a valid price after every priced one.
func sortableMin(s match.Snapshot) decimal.Decimal {
	if !s.Odds.Valid() {
		return unpriced
	}
	return s.Odds.Min()
}
