package embed

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

// BatchOptions controls EmbedBatches' concurrency and retry behavior.
type BatchOptions struct {
	BatchSize   int // texts per EmbedMany call
	Concurrency int // max batches in flight
	MaxAttempts int // per-batch attempts before giving up
}

// DefaultBatchOptions mirrors the orchestrator's default chunk/embedding batch size of 50.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{BatchSize: 50, Concurrency: 4, MaxAttempts: 5}
}

// EmbedBatches splits texts into fixed-size batches and embeds them
// concurrently (bounded by Concurrency), preserving input order in the
// returned slice. A batch that fails with a rate-limited error is
// retried with exponential backoff starting at 1s, doubling up to a
// 30s cap, with jitter. Any other error aborts the whole call.
func EmbedBatches(ctx context.Context, port Port, texts []string, opts BatchOptions) ([][]float32, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}

	batches := splitBatches(texts, opts.BatchSize)
	results := make([][][]float32, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			vecs, err := embedBatchWithRetry(gctx, port, batch, opts.MaxAttempts)
			if err != nil {
				return err
			}
			results[i] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func embedBatchWithRetry(ctx context.Context, port Port, batch []string, maxAttempts int) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		vecs, err := port.EmbedMany(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		var ce *codeerr.Error
		if !errors.As(err, &ce) || ce.Kind != codeerr.KindRateLimited {
			return nil, err
		}
	}
	return nil, lastErr
}

// sleepBackoff waits 2^(attempt-1) seconds, capped at 30s, plus up to
// 25% jitter, before the next retry attempt.
func sleepBackoff(ctx context.Context, attempt int) error {
	base := math.Pow(2, float64(attempt-1))
	seconds := math.Min(base, 30)
	jitter := seconds * 0.25 * rand.Float64()
	d := time.Duration((seconds + jitter) * float64(time.Second))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func splitBatches(texts []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[i:end])
	}
	return batches
}
