package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	dimension int
	model     string
	oneFn     func(ctx context.Context, text string) ([]float32, error)
	manyFn    func(ctx context.Context, texts []string) ([][]float32, error)
	calls     int
}

func (f *fakePort) Dimension() int    { return f.dimension }
func (f *fakePort) ModelName() string { return f.model }
func (f *fakePort) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.oneFn(ctx, text)
}
func (f *fakePort) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	return f.manyFn(ctx, texts)
}

func TestHybridProviderUsesLocalWhenItSucceeds(t *testing.T) {
	local := &fakePort{dimension: 8, model: "local", oneFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 2}, nil
	}}
	remote := &fakePort{dimension: 8, model: "remote", oneFn: func(context.Context, string) ([]float32, error) {
		t.Fatal("remote should not be called")
		return nil, nil
	}}

	p, err := NewHybrid(local, remote)
	require.NoError(t, err)
	vec, err := p.EmbedOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Equal(t, "local", p.ModelName())
}

func TestHybridProviderFallsBackToRemoteOnLocalError(t *testing.T) {
	local := &fakePort{dimension: 8, model: "local", oneFn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("out of vocabulary")
	}}
	remote := &fakePort{dimension: 8, model: "remote", oneFn: func(context.Context, string) ([]float32, error) {
		return []float32{9}, nil
	}}

	p, err := NewHybrid(local, remote)
	require.NoError(t, err)
	vec, err := p.EmbedOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{9}, vec)
}

func TestHybridProviderEmbedManyFallback(t *testing.T) {
	local := &fakePort{manyFn: func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("fail")
	}}
	remote := &fakePort{manyFn: func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}, {2}}, nil
	}}

	p, err := NewHybrid(local, remote)
	require.NoError(t, err)
	vecs, err := p.EmbedMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
	assert.Equal(t, 1, remote.calls)
}

func TestNewHybridRejectsMismatchedDimensions(t *testing.T) {
	local := &fakePort{dimension: 768, model: "local"}
	remote := &fakePort{dimension: 1536, model: "remote"}

	_, err := NewHybrid(local, remote)
	require.Error(t, err)
}
