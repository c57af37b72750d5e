package enrich

import (
	"fmt"
	"strings"

	"github.com/phenomenon0/matchradar/pkg/match"
)

// MarketPrompt lists every match on one line and asks for the three best
// late-goal spots.
func MarketPrompt(live []match.Snapshot) string {
	parts := make([]string, 0, len(live))
	for _, s := range live {
		parts = append(parts, fmt.Sprintf("%s vs %s (%s, %s, Cotes: %s)",
			s.Home, s.Away, s.Score, s.Clock, s.Odds))
	}
	return fmt.Sprintf("Analyse ces matchs : %s. Quelles sont les 3 meilleures opportunités pour un but tardif (over 0.5) ?",
		strings.Join(parts, ", "))
}

// MatchPrompt asks for a strict JSON verdict on one match.
func MatchPrompt(s match.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s-%s, Score: %s, Temps: %s, Cotes: %s.\n\n", s.Home, s.Away, s.Score, s.Clock, s.Odds)
	b.WriteString("Réponds UNIQUEMENT au format JSON suivant (sans texte avant ou après):\n")
	b.WriteString("{\n  \"confidence\": 75,\n  \"analysis\": \"Analyse rapide en 2 phrases max\"\n}\n\n")
	b.WriteString("Le score confidence doit être entre 0 et 100.")
	return b.String()
}
