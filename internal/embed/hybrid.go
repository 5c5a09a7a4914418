package embed

import (
	"context"
	"fmt"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

// hybridProvider tries the local provider first and falls back to the
// remote provider on any error. Dimension and ModelName are reported
// from whichever provider is currently primary at construction time
// (local), since callers need a single stable value for schema-version
// gating. NewHybrid rejects a local/remote pair whose dimensions
// disagree, so a fallback vector can never reach the store at a width
// that contradicts the reported Dimension().
type hybridProvider struct {
	local  Port
	remote Port
}

// NewHybrid constructs a provider that prefers local and falls back to
// remote whenever the local call returns an error (e.g. an
// out-of-vocabulary input the toy local table can't cover). Construction
// fails if local and remote report different vector dimensions.
func NewHybrid(local, remote Port) (Port, error) {
	if local.Dimension() != remote.Dimension() {
		return nil, codeerr.InvalidInput(fmt.Sprintf(
			"hybrid provider requires matching dimensions: local=%d remote=%d",
			local.Dimension(), remote.Dimension(),
		))
	}
	return &hybridProvider{local: local, remote: remote}, nil
}

func (p *hybridProvider) Dimension() int    { return p.local.Dimension() }
func (p *hybridProvider) ModelName() string { return p.local.ModelName() }

func (p *hybridProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.local.EmbedOne(ctx, text)
	if err == nil {
		return vec, nil
	}
	return p.remote.EmbedOne(ctx, text)
}

func (p *hybridProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.local.EmbedMany(ctx, texts)
	if err == nil {
		return vecs, nil
	}
	return p.remote.EmbedMany(ctx, texts)
}
