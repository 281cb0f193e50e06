package pipeline

import (
	"context"

	"github.com/gusmmm/docrag/internal/core"
	"github.com/gusmmm/docrag/internal/models"
)

// Guard decides whether a paper still needs indexing. The meta table is the
// only authority it consults: no local ledger, no chunk-level checks.
type Guard struct {
	store core.VectorStore
}

func NewGuard(store core.VectorStore) *Guard {
	return &Guard{store: store}
}

// ShouldIndex resolves identity DOI-first: a paper whose DOI or citation key
// already has an index record is skipped. The existing record is returned so
// callers can report where the paper was indexed before.
func (g *Guard) ShouldIndex(ctx context.Context, paper *models.Paper) (bool, *models.IndexRecord, error) {
	existing, err := g.store.FindIndexRecord(ctx, paper.DOI, paper.CitationKey)
	if err != nil {
		return false, nil, err
	}
	if existing != nil {
		return false, existing, nil
	}
	return true, nil, nil
}
