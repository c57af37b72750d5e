package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phenomenon0/matchradar/pkg/match"
)

// Result is what the dashboard shows for one match.
type Result struct {
	MatchID   string    `json:"match_id"`
	Score     int       `json:"confidence"`
	Narrative string    `json:"analysis"`
	Pending   bool      `json:"pending"`
	Fallback  bool      `json:"fallback"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResultOf converts a parsed reply into a Result.
func ResultOf(matchID string, r Reply) Result {
	switch v := r.(type) {
	case Parsed:
		return Result{MatchID: matchID, Score: v.Score, Narrative: v.Narrative}
	case Fallback:
		return Result{MatchID: matchID, Score: v.Score(), Narrative: v.Narrative, Fallback: true}
	}
	return Result{MatchID: matchID, Score: FallbackScore, Narrative: Unavailable, Fallback: true}
}

// Analyzer builds prompts, calls the generator and reads the replies.
type Analyzer struct {
	gen     TextGenerator
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// NewAnalyzer wraps gen. A zero timeout means 20 seconds.
func NewAnalyzer(gen TextGenerator, cfg AnalyzerConfig) *Analyzer {
	a := &Analyzer{gen: gen, log: zerolog.Nop(), timeout: cfg.Timeout, now: time.Now}
	if cfg.Logger != nil {
		a.log = cfg.Logger.With().Str("component", "enrich").Logger()
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	return a
}

func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	if a.gen == nil {
		return "", fmt.Errorf("%w: no generator configured", ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.gen.Generate(ctx, prompt, SystemInstruction)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrUnavailable)
	}
	return text, nil
}

// AnalyzeMarket asks for the best late-goal opportunities across live. The text
// is always displayable: on failure it is Unavailable and the error says why.
func (a *Analyzer) AnalyzeMarket(ctx context.Context, live []match.Snapshot) (string, error) {
	start := a.now()
	text, err := a.generate(ctx, MarketPrompt(live))
	if err != nil {
		a.log.Warn().Err(err).Int("matches", len(live)).Msg("market analysis unavailable")
		return Unavailable, err
	}
	a.log.Debug().Int("matches", len(live)).Dur("duration", a.now().Sub(start)).Msg("market analysis done")
	return strings.TrimSpace(text), nil
}

// AnalyzeMatch asks for a confidence verdict on s. The result is always usable:
// transport failures yield the neutral fallback.
func (a *Analyzer) AnalyzeMatch(ctx context.Context, s match.Snapshot) (Result, error) {
	text, err := a.generate(ctx, MatchPrompt(s))
	if err != nil {
		a.log.Warn().Err(err).Str("match_id", s.ID).Msg("match analysis unavailable")
		res := ResultOf(s.ID, Fallback{Narrative: Unavailable})
		res.UpdatedAt = a.now()
		return res, err
	}

	res := ResultOf(s.ID, ParseReply(text))
	res.UpdatedAt = a.now()
	if res.Fallback {
		a.log.Debug().Str("match_id", s.ID).Msg("match analysis reply was not JSON")
	}
	return res, nil
}
