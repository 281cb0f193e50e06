package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns deterministic vectors whose first component encodes
// the global input order, so order preservation is checkable end to end.
type fakeProvider struct {
	calls     [][]string
	seq       int
	failBatch bool // fail any call with more than one text
	failAll   bool
}

func (f *fakeProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.failAll {
		return nil, errors.New("quota exhausted")
	}
	if f.failBatch && len(texts) > 1 {
		return nil, errors.New("batch too large")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(f.seq), 0, 0, 0}
		f.seq++
	}
	return out, nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("chunk %d", i)
	}
	return out
}

func TestEmbedAllBatching(t *testing.T) {
	// 130 texts at batch size 64 must produce exactly 3 requests of
	// 64, 64 and 2, and one order-preserving sequence of length 130.
	p := &fakeProvider{}
	b := NewBatchEmbedder(p, 64)

	vecs, err := b.EmbedAll(context.Background(), texts(130))
	require.NoError(t, err)
	require.Len(t, vecs, 130)

	require.Len(t, p.calls, 3)
	assert.Len(t, p.calls[0], 64)
	assert.Len(t, p.calls[1], 64)
	assert.Len(t, p.calls[2], 2)

	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
	}
}

func TestEmbedAllEmpty(t *testing.T) {
	b := NewBatchEmbedder(&fakeProvider{}, 64)
	vecs, err := b.EmbedAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEmbedBatchFallsBackToSingles(t *testing.T) {
	p := &fakeProvider{failBatch: true}
	b := NewBatchEmbedder(p, 4)

	vecs, err := b.EmbedAll(context.Background(), texts(6))
	require.NoError(t, err)
	require.Len(t, vecs, 6)

	// 2 failed batch calls plus 6 single retries.
	assert.Len(t, p.calls, 8)
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestEmbedBatchFailureIsFatal(t *testing.T) {
	b := NewBatchEmbedder(&fakeProvider{failAll: true}, 4)
	_, err := b.EmbedAll(context.Background(), texts(6))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single retry failed")
}

func TestEmbedSizeMismatch(t *testing.T) {
	short := &shortProvider{}
	b := NewBatchEmbedder(short, 4)
	_, err := b.EmbedAll(context.Background(), texts(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size mismatch")
}

type shortProvider struct{}

func (s *shortProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func TestStreamPreservesOrder(t *testing.T) {
	p := &fakeProvider{}
	b := NewBatchEmbedder(p, 8)

	ch := make(chan embedded, 2)
	done := make(chan error, 1)
	go func() { done <- b.stream(context.Background(), texts(20), ch) }()

	var starts []int
	total := 0
	for e := range ch {
		starts = append(starts, e.start)
		total += len(e.vectors)
	}
	require.NoError(t, <-done)
	assert.Equal(t, []int{0, 8, 16}, starts)
	assert.Equal(t, 20, total)
}
