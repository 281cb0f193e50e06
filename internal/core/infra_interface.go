package core

import (
	"context"
	"errors"

	"github.com/gusmmm/docrag/internal/models"
)

// ErrNamedDatabasesUnsupported is returned by VectorStore.EnsureDatabase when
// the backing store cannot create or use named databases (e.g. the role is
// not allowed to create schemas). The router treats it as a capability
// signal, never as a failure.
var ErrNamedDatabasesUnsupported = errors.New("named databases unsupported by store")

// Target is a routed storage destination for chunk rows.
type Target struct {
	Database   string // schema name ("" means the store default)
	Collection string // chunk table name
}

func (t Target) String() string {
	if t.Database == "" {
		return t.Collection
	}
	return t.Database + "." + t.Collection
}

// VectorStore defines all persistence operations the pipeline needs.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type VectorStore interface {
	// EnsureDatabase creates the named database if missing. Returns
	// ErrNamedDatabasesUnsupported when the store cannot provide one.
	EnsureDatabase(ctx context.Context, name string) error

	// FindIndexRecord looks a paper up by DOI or citation key.
	// Returns (nil, nil) when no record exists.
	FindIndexRecord(ctx context.Context, doi, citationKey string) (*models.IndexRecord, error)
	InsertIndexRecord(ctx context.Context, rec *models.IndexRecord) error

	// EnsureChunkCollection creates the routed chunk table if missing,
	// fixing its vector dimension on first creation.
	EnsureChunkCollection(ctx context.Context, target Target, dim int) error
	InsertChunks(ctx context.Context, target Target, rec *models.IndexRecord, chunks []models.Chunk, insertBatch int) error

	Close() error
}

// EmbeddingProvider computes vectors for a batch of texts, order-preserving.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ObjectClient fetches source documents from object storage (s3:// paths).
type ObjectClient interface {
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// MetadataProvider resolves a DOI to its bibliographic record.
type MetadataProvider interface {
	Lookup(ctx context.Context, doi string) (*models.Bibliography, error)
}
