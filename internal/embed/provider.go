// Package embed implements the embedding port abstraction and its
// local (on-device word-vector averaging), remote (HTTPS batch), and
// hybrid (local-first, remote-fallback) providers.
package embed

import (
	"context"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

// DefaultDimension is the fixed vector length the local provider pads
// or truncates to when no other dimension is configured.
const DefaultDimension = 768

// Port is the narrow capability the rest of the engine depends on.
// Implementations must return vectors of exactly Dimension() length,
// in input order for EmbedMany.
type Port interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

func validateOne(text string) error {
	if text == "" {
		return codeerr.InvalidInput("embedding input text must not be empty")
	}
	return nil
}

func validateMany(texts []string) error {
	if len(texts) == 0 {
		return codeerr.InvalidInput("embedding batch must not be empty")
	}
	return nil
}

func checkBatchSize(texts []string, max int) error {
	if max > 0 && len(texts) > max {
		return codeerr.BatchTooLarge(max)
	}
	return nil
}
