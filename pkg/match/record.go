package match

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Clock sentinels as they appear in the feed.
const (
	FeedNotStarted = "Pas commencé"
	FeedFinished   = "Terminé"
	FeedFullTime   = "FT"
)

// halfTimeMarkers are clock strings that mean the interval.
var halfTimeMarkers = map[string]bool{
	"HT":       true,
	"MT":       true,
	"MI-TEMPS": true,
}

// Text accepts either a JSON string or a JSON number and keeps its textual form.
// Feeds are inconsistent about quoting minutes and prices.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Record is a match as delivered by the feed provider.
type Record struct {
	ID         Text `json:"id"`
	League     Text `json:"championnat"`
	Kickoff    Text `json:"heure_match"`
	Minute     Text `json:"minute"`
	Home       Text `json:"home"`
	Away       Text `json:"away"`
	Score      Text `json:"score"`
	HomeOdds   Text `json:"cote_1"`
	AwayOdds   Text `json:"cote_2"`
	OpenHome   Text `json:"open_cote_1,omitempty"`
	OpenAway   Text `json:"open_cote_2,omitempty"`
	FeedResult Text `json:"result,omitempty"`
}

// Normalize converts a feed record into a Snapshot. Malformed fields fall back to
// safe defaults; a record is never rejected.
func (r Record) Normalize() Snapshot {
	s := Snapshot{
		ID:          strings.TrimSpace(r.ID.String()),
		League:      strings.TrimSpace(r.League.String()),
		KickoffTime: strings.TrimSpace(r.Kickoff.String()),
		Home:        strings.TrimSpace(r.Home.String()),
		Away:        strings.TrimSpace(r.Away.String()),
		Clock:       ParseClock(r.Minute.String()),
		Score:       ParseScore(r.Score.String()),
		Odds: Odds{
			Home: ParsePrice(r.HomeOdds.String()),
			Away: ParsePrice(r.AwayOdds.String()),
		},
	}

	openHome := ParsePrice(r.OpenHome.String())
	openAway := ParsePrice(r.OpenAway.String())
	if openHome.IsPositive() || openAway.IsPositive() {
		// A side without its own opening price is its own baseline.
		open := s.Odds
		if openHome.IsPositive() {
			open.Home = openHome
		}
		if openAway.IsPositive() {
			open.Away = openAway
		}
		s.OpeningOdds = &open
	}

	return s
}

// NormalizeAll converts a feed pull, keeping feed order.
func NormalizeAll(records []Record) []Snapshot {
	out := make([]Snapshot, 0, len(records))
	for _, r := range records {
		out = append(out, r.Normalize())
	}
	return out
}

// ParseClock reads the feed's minute field. Empty and "Pas commencé" are the
// not-started sentinel, "Terminé" and "FT" are finished, "45+2" reads as 45.
// Half-time markers read as 45. Anything else without a leading number reads as
// minute 0 so the snapshot stays on the board.
func ParseClock(raw string) Clock {
	v := strings.TrimSpace(raw)
	switch {
	case v == "" || strings.EqualFold(v, FeedNotStarted) || strings.EqualFold(v, "NS"):
		return NotStarted()
	case strings.EqualFold(v, FeedFinished) || strings.EqualFold(v, FeedFullTime):
		return Finished()
	case halfTimeMarkers[strings.ToUpper(v)]:
		return Running(45)
	}

	minute, ok := leadingInt(strings.TrimSuffix(v, "'"))
	if !ok {
		return Running(0)
	}
	return Running(minute)
}

// ParseScore reads "H-A". Missing or non-numeric components are 0.
func ParseScore(raw string) Score {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	var sc Score
	if len(parts) > 0 {
		sc.Home, _ = leadingInt(parts[0])
	}
	if len(parts) > 1 {
		sc.Away, _ = leadingInt(parts[1])
	}
	return sc
}

// ParsePrice reads a decimal price, accepting a comma decimal separator.
// Unparseable input returns zero, which makes the pair invalid.
func ParsePrice(raw string) decimal.Decimal {
	v := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// leadingInt parses the leading run of digits, ignoring surrounding spaces.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	n, digits := 0, 0
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if n > 1_000_000 {
			break
		}
	}
	return n, digits > 0
}
