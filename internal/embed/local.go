package embed

import (
	"context"
	"strings"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

// localProvider embeds text by averaging per-token word vectors, then
// padding with zeros or truncating to reach Dimension. It never makes
// a network call.
type localProvider struct {
	dimension int
	model     string
}

// NewLocal constructs the local word-vector-averaging provider.
// dimension defaults to DefaultDimension when <= 0.
func NewLocal(dimension int) Port {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &localProvider{dimension: dimension, model: "local-wordvec-avg-en"}
}

func (p *localProvider) Dimension() int   { return p.dimension }
func (p *localProvider) ModelName() string { return p.model }

func (p *localProvider) EmbedOne(_ context.Context, text string) ([]float32, error) {
	if err := validateOne(text); err != nil {
		return nil, err
	}
	vec, ok := p.average(text)
	if !ok {
		return nil, codeerr.ModelNotAvailable("no known token in local word-vector table for input")
	}
	return vec, nil
}

// EmbedMany is all-or-nothing: if any item has no known token, the
// whole batch fails.
func (p *localProvider) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	if err := validateMany(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, codeerr.InvalidInput("embedding batch item must not be empty")
		}
		vec, ok := p.average(t)
		if !ok {
			return nil, codeerr.ModelNotAvailable("no known token in local word-vector table for a batch item")
		}
		out[i] = vec
	}
	return out, nil
}

// average tokenizes text on whitespace, normalizing punctuation at
// token boundaries and case before table lookup, and averages the
// known tokens' vectors. Reports false if no token was found.
func (p *localProvider) average(text string) ([]float32, bool) {
	sum := make([]float64, rawDimension)
	count := 0
	for _, tok := range strings.Fields(text) {
		norm := normalizeToken(tok)
		if norm == "" {
			continue
		}
		vec, ok := vectorFor(norm)
		if !ok {
			continue
		}
		for i, x := range vec {
			sum[i] += float64(x)
		}
		count++
	}
	if count == 0 {
		return nil, false
	}

	avg := make([]float32, rawDimension)
	for i, s := range sum {
		avg[i] = float32(s / float64(count))
	}
	return fitDimension(avg, p.dimension), true
}

// normalizeToken lowercases a whitespace-delimited token and trims
// non-alphanumeric characters from either end, so "user," and "(user"
// both resolve to "user" in the table.
func normalizeToken(tok string) string {
	tok = strings.ToLower(tok)
	return strings.TrimFunc(tok, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
}

// fitDimension pads v with zeros or truncates it to exactly d elements.
func fitDimension(v []float32, d int) []float32 {
	if len(v) == d {
		return v
	}
	out := make([]float32, d)
	copy(out, v)
	return out
}
