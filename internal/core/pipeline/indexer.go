// Package pipeline drives the per-paper indexing sequence:
// chunk -> dedup check -> embed in batches -> route -> meta insert -> chunk insert.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gusmmm/docrag/internal/core"
	"github.com/gusmmm/docrag/internal/core/chunker"
	"github.com/gusmmm/docrag/internal/core/router"
	"github.com/gusmmm/docrag/internal/models"
)

// Config tunes one indexing run.
//
// EmbedBatch:     chunk texts per embedding request (e.g. 64).
// InsertBatch:    chunk rows per insert transaction (e.g. 256).
// MaxChunkLen:    chunk text bound in bytes (e.g. 7000).
// DefaultDB:      chunk database when a paper has no topic.
// ChunkTable:     base chunk collection name.
// PrependSection: embed "<section>\n\n<text>" instead of bare text.
// DryRun:         chunk and dedup-check only; no embedding, no insertion.
type Config struct {
	EmbedBatch     int
	InsertBatch    int
	MaxChunkLen    int
	DefaultDB      string
	ChunkTable     string
	PrependSection bool
	DryRun         bool
}

type Status string

const (
	StatusIndexed Status = "indexed"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusDryRun  Status = "dry-run"
)

// Result reports the outcome for one paper. Failures carry a reason and
// never abort the run.
type Result struct {
	CitationKey string
	DOI         string
	Status      Status
	Chunks      int
	Target      core.Target
	Reason      string
}

// Indexer owns the run-scoped state: one router (so the named-database
// capability probe happens at most once) and the store/embedder handles.
// Papers are processed one at a time; no state outlives the run.
type Indexer struct {
	store    core.VectorStore
	embedder *BatchEmbedder
	guard    *Guard
	router   *router.Router
	chunker  *chunker.Chunker
	cfg      Config
}

func NewIndexer(store core.VectorStore, provider core.EmbeddingProvider, cfg Config) *Indexer {
	return &Indexer{
		store:    store,
		embedder: NewBatchEmbedder(provider, cfg.EmbedBatch),
		guard:    NewGuard(store),
		router:   router.New(store, cfg.DefaultDB, cfg.ChunkTable),
		chunker:  chunker.New(cfg.MaxChunkLen),
		cfg:      cfg,
	}
}

// IndexAll processes papers sequentially. A failed paper is reported and the
// run moves on; an interrupted run resumes later with the guard skipping
// whatever completed.
func (ix *Indexer) IndexAll(ctx context.Context, papers []*models.Paper) []Result {
	results := make([]Result, 0, len(papers))
	for _, p := range papers {
		if ctx.Err() != nil {
			break
		}
		res := ix.IndexPaper(ctx, p)
		results = append(results, res)
		switch res.Status {
		case StatusIndexed:
			log.Printf("[ok] indexed %d chunks for key=%s into %s", res.Chunks, res.CitationKey, res.Target)
		case StatusSkipped:
			log.Printf("[skip] key=%s doi=%s: %s", res.CitationKey, res.DOI, res.Reason)
		case StatusFailed:
			log.Printf("[fail] key=%s doi=%s: %s", res.CitationKey, res.DOI, res.Reason)
		case StatusDryRun:
			log.Printf("[dry-run] key=%s would index %d chunks", res.CitationKey, res.Chunks)
		}
	}
	return results
}

// IndexPaper runs the full sequence for one paper. The meta record is
// inserted before the first chunk batch, so a crash in between leaves a meta
// row without chunks; a later run will then skip the paper (known gap,
// operators re-index manually).
func (ix *Indexer) IndexPaper(ctx context.Context, paper *models.Paper) Result {
	res := Result{CitationKey: paper.CitationKey, DOI: paper.DOI}

	chunks := ix.chunker.Chunk(paper.Body)
	res.Chunks = len(chunks)
	if len(chunks) == 0 {
		res.Status = StatusSkipped
		res.Reason = "empty document, nothing to index"
		return res
	}

	proceed, existing, err := ix.guard.ShouldIndex(ctx, paper)
	if err != nil {
		res.Status = StatusFailed
		res.Reason = fmt.Sprintf("dedup lookup: %v", err)
		return res
	}
	if !proceed {
		res.Status = StatusSkipped
		res.Reason = fmt.Sprintf("already indexed at %s", existing.Location)
		return res
	}

	if ix.cfg.DryRun {
		res.Status = StatusDryRun
		return res
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		if ix.cfg.PrependSection && ch.Section != "" {
			texts[i] = ch.Section + "\n\n" + ch.Text
		} else {
			texts[i] = ch.Text
		}
	}

	target := ix.router.Resolve(ctx, paper.Topic)
	res.Target = target

	rec := &models.IndexRecord{
		PaperID:     uuid.NewString(),
		DOI:         paper.DOI,
		CitationKey: paper.CitationKey,
		Topic:       paper.Topic,
		Title:       paper.Bib.Title,
		Journal:     paper.Bib.Journal,
		Issued:      paper.Bib.Issued,
		URL:         paper.Bib.URL,
		SourcePath:  paper.SourcePath,
		Location:    target.String(),
	}

	// Embed batch N+1 while inserting batch N. Order is preserved by the
	// single FIFO channel; any stage error aborts this paper only.
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan embedded, 2)

	g.Go(func() error {
		return ix.embedder.stream(gctx, texts, batches)
	})

	g.Go(func() error {
		metaInserted := false
		for b := range batches {
			if !metaInserted {
				dim := len(b.vectors[0])
				if err := ix.store.EnsureChunkCollection(gctx, target, dim); err != nil {
					return fmt.Errorf("ensure chunk collection: %w", err)
				}
				if err := ix.store.InsertIndexRecord(gctx, rec); err != nil {
					return fmt.Errorf("insert meta record: %w", err)
				}
				metaInserted = true
			}
			part := chunks[b.start : b.start+len(b.vectors)]
			for i := range part {
				part[i].Vector = b.vectors[i]
			}
			if err := ix.store.InsertChunks(gctx, target, rec, part, ix.cfg.InsertBatch); err != nil {
				return fmt.Errorf("insert chunks: %w", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}

	res.Status = StatusIndexed
	return res
}
