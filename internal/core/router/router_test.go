package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gusmmm/docrag/internal/core"
	"github.com/gusmmm/docrag/internal/models"
)

// capStore implements core.VectorStore with a scriptable EnsureDatabase.
type capStore struct {
	ensureErr   error
	ensureCalls []string
}

func (s *capStore) EnsureDatabase(ctx context.Context, name string) error {
	s.ensureCalls = append(s.ensureCalls, name)
	return s.ensureErr
}

func (s *capStore) FindIndexRecord(ctx context.Context, doi, citationKey string) (*models.IndexRecord, error) {
	return nil, nil
}
func (s *capStore) InsertIndexRecord(ctx context.Context, rec *models.IndexRecord) error { return nil }
func (s *capStore) EnsureChunkCollection(ctx context.Context, target core.Target, dim int) error {
	return nil
}
func (s *capStore) InsertChunks(ctx context.Context, target core.Target, rec *models.IndexRecord, chunks []models.Chunk, insertBatch int) error {
	return nil
}
func (s *capStore) Close() error { return nil }

func TestResolveTopicSupported(t *testing.T) {
	store := &capStore{}
	r := New(store, "journal_papers", "paper_chunks")

	target := r.Resolve(context.Background(), "icu_nutrition")

	assert.Equal(t, core.Target{Database: "icu_nutrition", Collection: "paper_chunks"}, target)
	assert.Equal(t, []string{"icu_nutrition"}, store.ensureCalls)
}

func TestResolveNoTopicUsesDefault(t *testing.T) {
	store := &capStore{}
	r := New(store, "journal_papers", "paper_chunks")

	target := r.Resolve(context.Background(), "")

	assert.Equal(t, core.Target{Database: "journal_papers", Collection: "paper_chunks"}, target)
}

func TestResolveFallbackSuffixesCollection(t *testing.T) {
	store := &capStore{ensureErr: core.ErrNamedDatabasesUnsupported}
	r := New(store, "journal_papers", "paper_chunks")

	target := r.Resolve(context.Background(), "icu_nutrition")

	assert.Equal(t, core.Target{Collection: "paper_chunks__icu_nutrition"}, target)
}

func TestResolveFallbackProbesOnce(t *testing.T) {
	store := &capStore{ensureErr: core.ErrNamedDatabasesUnsupported}
	r := New(store, "journal_papers", "paper_chunks")

	first := r.Resolve(context.Background(), "icu_nutrition")
	second := r.Resolve(context.Background(), "icu_nutrition")
	third := r.Resolve(context.Background(), "sepsis")

	assert.Equal(t, core.Target{Collection: "paper_chunks__icu_nutrition"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, core.Target{Collection: "paper_chunks__sepsis"}, third)
	assert.Len(t, store.ensureCalls, 1, "failed capability probe must not repeat")
}

func TestResolveAnyFailureFallsBack(t *testing.T) {
	store := &capStore{ensureErr: errors.New("connection refused")}
	r := New(store, "journal_papers", "paper_chunks")

	target := r.Resolve(context.Background(), "icu_nutrition")

	assert.Equal(t, core.Target{Collection: "paper_chunks__icu_nutrition"}, target)
	assert.Len(t, store.ensureCalls, 1)
}

func TestResolveNoTopicAfterFallback(t *testing.T) {
	store := &capStore{ensureErr: core.ErrNamedDatabasesUnsupported}
	r := New(store, "journal_papers", "paper_chunks")

	r.Resolve(context.Background(), "icu_nutrition")
	target := r.Resolve(context.Background(), "")

	assert.Equal(t, core.Target{Collection: "paper_chunks"}, target, "no topic: collection stays unmodified")
}

func TestResolveSanitizesTopic(t *testing.T) {
	store := &capStore{}
	r := New(store, "journal_papers", "paper_chunks")

	target := r.Resolve(context.Background(), "ICU Nutrition")

	assert.Equal(t, core.Target{Database: "icu_nutrition", Collection: "paper_chunks"}, target,
		"the recorded location must be the schema name the store creates")
	assert.Equal(t, []string{"icu_nutrition"}, store.ensureCalls)
}

func TestResolveSanitizesTopicOnFallback(t *testing.T) {
	store := &capStore{ensureErr: core.ErrNamedDatabasesUnsupported}
	r := New(store, "journal_papers", "paper_chunks")

	target := r.Resolve(context.Background(), "ICU Nutrition")

	assert.Equal(t, core.Target{Collection: "paper_chunks__icu_nutrition"}, target)
}

func TestResolveCapabilityRememberedWhenSupported(t *testing.T) {
	store := &capStore{}
	r := New(store, "journal_papers", "paper_chunks")

	r.Resolve(context.Background(), "icu_nutrition")
	r.Resolve(context.Background(), "sepsis")

	assert.Equal(t, []string{"icu_nutrition", "sepsis"}, store.ensureCalls,
		"supported stores still get per-topic schema creation")
}
