package match

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw  string
		want Clock
	}{
		{"", NotStarted()},
		{"Pas commencé", NotStarted()},
		{"Terminé", Finished()},
		{"FT", Finished()},
		{"ft", Finished()},
		{"65", Running(65)},
		{" 72' ", Running(72)},
		{"45+2", Running(45)},
		{"HT", Running(45)},
		{"999", Running(MaxMinute)},
		{"??", Running(0)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClock(tt.raw))
		})
	}
}

func TestParseScore(t *testing.T) {
	assert.Equal(t, Score{Home: 2, Away: 1}, ParseScore("2-1"))
	assert.Equal(t, Score{Home: 2, Away: 1}, ParseScore(" 2 - 1 "))
	assert.Equal(t, Score{Home: 3, Away: 0}, ParseScore("3-"))
	assert.Equal(t, Score{Home: 0, Away: 4}, ParseScore("x-4"))
	assert.Equal(t, Score{}, ParseScore(""))
	assert.Equal(t, Score{}, ParseScore("garbage"))
}

func TestParsePrice(t *testing.T) {
	assert.True(t, ParsePrice("1.25").Equal(decimal.RequireFromString("1.25")))
	assert.True(t, ParsePrice("1,40").Equal(decimal.RequireFromString("1.40")))
	assert.True(t, ParsePrice("").IsZero())
	assert.True(t, ParsePrice("n/a").IsZero())
	assert.True(t, ParsePrice("-3").IsZero())
}

func TestRecordUnmarshalMixedTypes(t *testing.T) {
	raw := `{"id": 42, "championnat": "Serie A", "heure_match": "20:45", "minute": 58,
		"home": "Juventus", "away": "Empoli", "score": "0-0", "cote_1": 1.95, "cote_2": "5.00",
		"open_cote_1": null}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	s := rec.Normalize()
	assert.Equal(t, "42", s.ID)
	assert.Equal(t, Running(58), s.Clock)
	assert.True(t, s.Odds.Home.Equal(decimal.RequireFromString("1.95")))
	assert.Nil(t, s.OpeningOdds)
	assert.True(t, s.IsLive())
}

func TestNormalizeMalformedFieldsKeepSnapshot(t *testing.T) {
	rec := Record{ID: "9", Minute: "60", Score: "?-?", HomeOdds: "abc", AwayOdds: "2.10", OpenHome: "zz", OpenAway: "1.9"}
	s := rec.Normalize()

	assert.Equal(t, Score{}, s.Score)
	assert.False(t, s.Odds.Valid())
	require.NotNil(t, s.OpeningOdds)
	assert.True(t, s.OpeningOdds.Home.IsZero(), "unparseable opening price falls back to the current one")
	assert.Equal(t, "1.9", s.OpeningOdds.Away.String())

	none := Record{ID: "10", Minute: "60", HomeOdds: "1.5", AwayOdds: "2.5", OpenHome: "zz"}
	assert.Nil(t, none.Normalize().OpeningOdds, "no usable opening price on either side")
}

func TestNormalizeHalfOpeningOdds(t *testing.T) {
	rec := Record{ID: "3", Minute: "60", Score: "0-0", HomeOdds: "1.90", AwayOdds: "3.40", OpenHome: "1.35"}
	s := rec.Normalize()

	require.NotNil(t, s.OpeningOdds)
	assert.Equal(t, "1.35", s.OpeningOdds.Home.String())
	assert.Equal(t, "3.4", s.OpeningOdds.Away.String())
}

func TestDemoDataset(t *testing.T) {
	set := DemoDataset()
	require.Len(t, set, 7)

	board, finished := Partition(set)
	assert.Len(t, board, 4)
	assert.Len(t, finished, 3)
	assert.Equal(t, "1", board[0].ID)
	assert.Equal(t, "5", finished[0].ID)

	set[0].Home = "mutated"
	assert.Equal(t, "Man Utd", DemoDataset()[0].Home)
}

func TestClockSortValue(t *testing.T) {
	assert.Equal(t, -1, NotStarted().SortValue())
	assert.Equal(t, 0, Running(0).SortValue())
	assert.Greater(t, Finished().SortValue(), Running(MaxMinute).SortValue())
}

func TestScoreHelpers(t *testing.T) {
	sc := Score{Home: 1, Away: 2}
	assert.True(t, sc.Trailing(SideHome))
	assert.False(t, sc.Trailing(SideAway))
	assert.True(t, sc.Ahead(SideAway))
	assert.Equal(t, 3, sc.Total())
	assert.Equal(t, "1-2", sc.String())
}

func TestSearchLink(t *testing.T) {
	s := Snapshot{Home: "Man Utd", Away: "Saint-Étienne"}

	assert.Equal(t, "https://1xbet.com/search?query=Man+Utd+Saint-%C3%89tienne", SearchLink("https://1xbet.com/search", s))
	assert.Equal(t, "https://bk.example/find?lang=fr&query=Man+Utd+Saint-%C3%89tienne", SearchLink("https://bk.example/find?lang=fr", s))
	assert.Empty(t, SearchLink("", s))
	assert.Empty(t, SearchLink("://bad", s))
}
