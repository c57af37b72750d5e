package enrich

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FallbackScore is the neutral confidence used whenever a reply cannot be read.
const FallbackScore = 50

// Reply is the outcome of reading one match-analysis reply: either Parsed or
// Fallback.
type Reply interface {
	reply()
}

// Parsed carries a whole confidence in [0, 100] and the narrative the service wrote.
type Parsed struct {
	Score     int
	Narrative string
}

// Fallback carries whatever text is worth showing when the reply was not the
// expected JSON.
type Fallback struct {
	Narrative string
}

func (Parsed) reply()   {}
func (Fallback) reply() {}

// Score returns the neutral confidence.
func (Fallback) Score() int { return FallbackScore }

// ParseReply reads a reply that should hold {"confidence": n, "analysis": "..."},
// possibly wrapped in a Markdown fence or surrounded by prose. Confidence may be a
// number or a numeric string; it is clamped to [0, 100] and rounded. A reply without both
// fields is a Fallback whose narrative is the raw reply.
func ParseReply(raw string) Reply {
	fallback := Fallback{Narrative: strings.TrimSpace(raw)}
	if fallback.Narrative == "" {
		fallback.Narrative = Unavailable
	}

	obj := extractJSON(stripCodeFences(raw))
	if obj == "" {
		return fallback
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return fallback
	}

	score, ok := extractFloat(fields, "confidence")
	if !ok {
		return fallback
	}
	narrative := strings.TrimSpace(extractString(fields, "analysis"))
	if narrative == "" {
		return fallback
	}

	return Parsed{Score: int(math.Round(clamp(score, 0, 100))), Narrative: narrative}
}

// stripCodeFences removes every ``` marker along with an optional json tag.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractJSON finds the first complete JSON object in s. Braces inside string
// literals do not count.
func extractJSON(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, c := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func extractFloat(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, !math.IsNaN(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func extractString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
