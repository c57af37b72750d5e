// Package enrich asks a text-generation service about matches and turns its
// semi-structured replies into a confidence score and a short narrative.
package enrich

import (
	"context"
	"errors"
)

// Unavailable is the narrative shown when the service could not be reached or
// returned nothing.
const Unavailable = "Analyse indisponible."

// SystemInstruction frames every request.
const SystemInstruction = "Expert en paris sportifs. Analyse concise en français."

// ErrUnavailable wraps every transport, status or empty-reply failure.
var ErrUnavailable = errors.New("enrichment unavailable")

// TextGenerator is a prompt-in, text-out service.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt, system string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, system string) (string, error) {
	return f(ctx, prompt, system)
}
