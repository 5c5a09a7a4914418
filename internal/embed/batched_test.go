package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

// orderPreservingPort returns one deterministic vector per input text,
// holding the text's length, so the test
// can assert EmbedBatches reassembles results in input order even
// though batches run concurrently.
type orderPreservingPort struct{}

func (orderPreservingPort) Dimension() int    { return 1 }
func (orderPreservingPort) ModelName() string { return "fake" }
func (orderPreservingPort) EmbedOne(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}
func (orderPreservingPort) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, txt := range texts {
		out[i] = []float32{float32(len(txt))}
	}
	return out, nil
}

func TestEmbedBatchesPreservesOrder(t *testing.T) {
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "f"}
	vecs, err := EmbedBatches(context.Background(), orderPreservingPort{}, texts, BatchOptions{BatchSize: 2, Concurrency: 3, MaxAttempts: 1})
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, txt := range texts {
		assert.Equal(t, float32(len(txt)), vecs[i][0])
	}
}

// flakyPort fails with a rate-limited error the first N times it's
// called, then succeeds.
type flakyPort struct {
	mu        sync.Mutex
	failsLeft int
}

func (p *flakyPort) Dimension() int    { return 1 }
func (p *flakyPort) ModelName() string { return "flaky" }
func (p *flakyPort) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
func (p *flakyPort) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failsLeft > 0 {
		p.failsLeft--
		return nil, codeerr.RateLimited("rate limited")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestEmbedBatchesRetriesOnRateLimit(t *testing.T) {
	port := &flakyPort{failsLeft: 2}
	vecs, err := EmbedBatches(context.Background(), port, []string{"x", "y"}, BatchOptions{BatchSize: 2, Concurrency: 1, MaxAttempts: 5})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestEmbedBatchesGivesUpAfterMaxAttempts(t *testing.T) {
	port := &flakyPort{failsLeft: 100}
	_, err := EmbedBatches(context.Background(), port, []string{"x"}, BatchOptions{BatchSize: 1, Concurrency: 1, MaxAttempts: 2})
	require.Error(t, err)
	kind, ok := codeerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, codeerr.KindRateLimited, kind)
}

func TestEmbedBatchesNonRateLimitErrorAbortsImmediately(t *testing.T) {
	port := &fakePort{manyFn: func(context.Context, []string) ([][]float32, error) {
		return nil, codeerr.InvalidInput("bad")
	}}
	_, err := EmbedBatches(context.Background(), port, []string{"x"}, BatchOptions{BatchSize: 1, Concurrency: 1, MaxAttempts: 5})
	require.Error(t, err)
	kind, _ := codeerr.KindOf(err)
	assert.Equal(t, codeerr.KindInvalidInput, kind)
}
