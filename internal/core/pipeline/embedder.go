package pipeline

import (
	"context"
	"fmt"

	"github.com/gusmmm/docrag/internal/core"
)

// DefaultEmbedBatch respects the embedding service's request limits.
const DefaultEmbedBatch = 64

// embedded is one embedded batch flowing from the embedding stage to the
// insertion stage. Start is the offset of the first vector in the paper's
// chunk order.
type embedded struct {
	start   int
	vectors [][]float32
}

// BatchEmbedder groups chunk texts into fixed-size batches for the external
// embedding call, preserving order. A failing batch is retried one text at a
// time before the paper is given up on.
type BatchEmbedder struct {
	provider  core.EmbeddingProvider
	batchSize int
}

func NewBatchEmbedder(provider core.EmbeddingProvider, batchSize int) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatch
	}
	return &BatchEmbedder{provider: provider, batchSize: batchSize}
}

// EmbedAll embeds every text and returns an order-preserving vector sequence
// of equal length.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := b.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// stream embeds batches into a channel so insertion can overlap embedding.
// The channel is closed when all batches are produced; any error aborts the
// stream.
func (b *BatchEmbedder) stream(ctx context.Context, texts []string, out chan<- embedded) error {
	defer close(out)
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := b.embedBatch(ctx, texts[start:end])
		if err != nil {
			return err
		}
		select {
		case out <- embedded{start: start, vectors: vecs}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// embedBatch calls the provider once for the whole batch; on failure it
// falls back to one request per text, which isolates a single malformed
// input instead of losing the batch.
func (b *BatchEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := b.provider.EmbedTexts(ctx, texts)
	if err == nil {
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(texts))
		}
		return vecs, nil
	}

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		single, sErr := b.provider.EmbedTexts(ctx, []string{t})
		if sErr != nil {
			return nil, fmt.Errorf("embed batch failed (%v), single retry failed: %w", err, sErr)
		}
		if len(single) != 1 {
			return nil, fmt.Errorf("embed single: got %d vectors", len(single))
		}
		out = append(out, single[0])
	}
	return out, nil
}
