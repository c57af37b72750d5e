package history

import (
	"math"
	"testing"

	"github.com/phenomenon0/matchradar/pkg/match"
)

func finished(id string, home, away int, oddsHome, oddsAway float64) match.Snapshot {
	return match.Snapshot{
		ID:    id,
		Home:  "H" + id,
		Away:  "A" + id,
		Clock: match.Finished(),
		Score: match.Score{Home: home, Away: away},
		Odds:  match.NewOdds(oddsHome, oddsAway),
	}
}

func TestAttribute(t *testing.T) {
	tests := []struct {
		name      string
		s         match.Snapshot
		predicted match.Side
		correct   bool
		outcome   match.Outcome
	}{
		{"home favorite wins", finished("1", 2, 1, 1.55, 5), match.SideHome, true, match.OutcomeWon},
		{"home favorite draws", finished("2", 1, 1, 1.40, 6.5), match.SideHome, false, match.OutcomeDraw},
		{"away favorite wins", finished("3", 0, 2, 3.2, 2.1), match.SideAway, true, match.OutcomeWon},
		{"home favorite loses", finished("4", 0, 1, 1.3, 8), match.SideHome, false, match.OutcomeLost},
		{"level prices predict away", finished("5", 0, 1, 2.0, 2.0), match.SideAway, true, match.OutcomeWon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Attribute(tt.s)
			if e.PredictedWinner != tt.predicted {
				t.Errorf("PredictedWinner = %v, want %v", e.PredictedWinner, tt.predicted)
			}
			if e.Correct != tt.correct {
				t.Errorf("Correct = %v, want %v", e.Correct, tt.correct)
			}
			if e.Outcome != tt.outcome {
				t.Errorf("Outcome = %v, want %v", e.Outcome, tt.outcome)
			}
		})
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	l := NewLedger()
	pull := []match.Snapshot{finished("5", 2, 1, 1.55, 5), finished("6", 1, 1, 1.40, 6.5)}

	if added := l.Record(pull); len(added) != 2 {
		t.Fatalf("Expected 2 entries added, got %d", len(added))
	}

	again := pull
	again[0].Score = match.Score{Home: 9, Away: 9}
	if added := l.Record(again); len(added) != 0 {
		t.Errorf("Expected nothing added on replay, got %d", len(added))
	}
	if l.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", l.Len())
	}
	if got := l.Entries()[0].Snapshot.Score.Home; got != 2 {
		t.Errorf("First observation should be kept, home score is %d", got)
	}
}

func TestRecordIgnoresNonFinished(t *testing.T) {
	l := NewLedger()
	s := finished("1", 0, 0, 1.5, 3)
	s.Clock = match.Running(88)

	if added := l.Record([]match.Snapshot{s}); len(added) != 0 {
		t.Errorf("Running match should not be recorded, got %d", len(added))
	}
}

func TestStatsAndRecent(t *testing.T) {
	l := NewLedger()
	_, demoFinished := match.Partition(match.DemoDataset())
	l.Record(demoFinished)

	st := l.Stats()
	if st != (Stats{Correct: 2, Total: 3}) {
		t.Errorf("Expected 2/3 correct, got %+v", st)
	}
	if math.Abs(st.Rate()-66.67) > 0.01 {
		t.Errorf("Expected rate 66.67, got %.2f", st.Rate())
	}

	recent := l.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recent entries, got %d", len(recent))
	}
	if recent[0].Snapshot.ID != "7" || recent[1].Snapshot.ID != "6" {
		t.Errorf("Expected newest first (7, 6), got (%s, %s)", recent[0].Snapshot.ID, recent[1].Snapshot.ID)
	}
	if n := len(l.Recent(0)); n != 3 {
		t.Errorf("Recent(0) should return everything, got %d", n)
	}

	if r := (Stats{}).Rate(); r != 0 {
		t.Errorf("Empty stats rate should be 0, got %v", r)
	}
}
