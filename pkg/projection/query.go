// Package projection turns a snapshot set into the ordered, filtered view the
// dashboard renders: text search, then a stable sort, then a category tab.
package projection

import (
	"fmt"
	"strings"

	"github.com/phenomenon0/matchradar/pkg/signals"
)

// SortKey selects the ordering field.
type SortKey string

const (
	SortNone     SortKey = "none"
	SortClock    SortKey = "clock"
	SortMinOdds  SortKey = "minOdds"
	SortLeague   SortKey = "league"
	SortHomeTeam SortKey = "homeTeam"
)

// Direction is ascending or descending.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Category is one of the dashboard tabs.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryFavorites Category = "favorites"
	CategoryUltra     Category = "ultra"
	CategoryGoliath   Category = "goliath"
	CategoryCritical  Category = "critical"
	CategoryMomentum  Category = "momentum"
	CategoryValueBets Category = "valueBets"
)

var categoryKinds = map[Category]signals.Kind{
	CategoryFavorites: signals.KindFavorite,
	CategoryUltra:     signals.KindUltraFavorite,
	CategoryGoliath:   signals.KindGoliathPanic,
	CategoryCritical:  signals.KindCritical,
	CategoryMomentum:  signals.KindMomentum,
	CategoryValueBets: signals.KindValueBet,
}

// Kind returns the classifier category behind a tab. CategoryAll has none.
func (c Category) Kind() (signals.Kind, bool) {
	k, ok := categoryKinds[c]
	return k, ok
}

// Sort is a key and a direction.
type Sort struct {
	Key SortKey   `json:"key"`
	Dir Direction `json:"dir"`
}

// Query is the full projection request.
type Query struct {
	Search   string   `json:"search"`
	Sort     Sort     `json:"sort"`
	Category Category `json:"category"`
}

// SortState is the column-header toggle: picking the active key flips the
// direction, picking another key starts ascending.
type SortState struct {
	Sort
}

// Select applies one header click and returns the new sort.
func (s *SortState) Select(key SortKey) Sort {
	if s.Key == key {
		if s.Dir == Asc {
			s.Dir = Desc
		} else {
			s.Dir = Asc
		}
	} else {
		s.Key = key
		s.Dir = Asc
	}
	return s.Sort
}

// ParseSortKey accepts the key names case-insensitively. Empty means SortNone.
func ParseSortKey(raw string) (SortKey, error) {
	if raw == "" {
		return SortNone, nil
	}
	for _, k := range []SortKey{SortNone, SortClock, SortMinOdds, SortLeague, SortHomeTeam} {
		if strings.EqualFold(raw, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", raw)
}

// ParseDirection accepts asc or desc. Empty means ascending.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(raw) {
	case "", string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", raw)
}

// ParseCategory accepts a tab name case-insensitively. Empty means CategoryAll.
func ParseCategory(raw string) (Category, error) {
	if raw == "" || strings.EqualFold(raw, string(CategoryAll)) {
		return CategoryAll, nil
	}
	for c := range categoryKinds {
		if strings.EqualFold(raw, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}
