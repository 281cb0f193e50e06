package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gusmmm/docrag/internal/config"
	"github.com/gusmmm/docrag/internal/core"
	"github.com/gusmmm/docrag/internal/models"
)

// integrationStore connects to the database named by DATABASE_URL with a
// run-unique meta table. Tests using it skip when no database is configured.
func integrationStore(t *testing.T) *VectorStore {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	cfg := config.LoadConfig()
	cfg.MetaTable = fmt.Sprintf("it_meta_%d", time.Now().UnixNano())

	st, err := NewVectorStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connect store: %v", err)
	}
	s := st.(*VectorStore)
	t.Cleanup(func() {
		_, _ = s.db.Exec(`DROP TABLE IF EXISTS ` + quote(s.metaTable))
		_ = s.Close()
	})
	return s
}

func TestIntegrationEnsureDatabase(t *testing.T) {
	s := integrationStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("it_db_%d", time.Now().UnixNano())

	err := s.EnsureDatabase(ctx, name)
	if err != nil {
		// A role without CREATE must surface the capability sentinel,
		// never a raw driver error.
		require.ErrorIs(t, err, core.ErrNamedDatabasesUnsupported)
		t.Logf("role cannot create schemas: %v", err)
		return
	}
	defer func() {
		_, _ = s.db.Exec(`DROP SCHEMA IF EXISTS ` + quote(name) + ` CASCADE`)
	}()

	assert.NoError(t, s.EnsureDatabase(ctx, name), "re-ensuring an existing schema is a no-op")
}

func TestIntegrationMetaDedup(t *testing.T) {
	s := integrationStore(t)
	ctx := context.Background()

	doi := fmt.Sprintf("10.9999/it.%d", time.Now().UnixNano())
	rec := &models.IndexRecord{
		PaperID:     fmt.Sprintf("it-%d", time.Now().UnixNano()),
		DOI:         doi,
		CitationKey: "itkey2025roundtrip",
		Location:    "journal_papers.paper_chunks",
	}
	require.NoError(t, s.InsertIndexRecord(ctx, rec))

	byDOI, err := s.FindIndexRecord(ctx, doi, "")
	require.NoError(t, err)
	require.NotNil(t, byDOI)
	assert.Equal(t, rec.PaperID, byDOI.PaperID)
	assert.Equal(t, rec.Location, byDOI.Location)
	assert.False(t, byDOI.CreatedAt.IsZero())

	byKey, err := s.FindIndexRecord(ctx, "", "itkey2025roundtrip")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, rec.PaperID, byKey.PaperID)

	missing, err := s.FindIndexRecord(ctx, "10.9999/it.unknown", "nosuchkey")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dupDOI := &models.IndexRecord{PaperID: "it-dup-doi", DOI: doi, CitationKey: "otherkey2025"}
	assert.Error(t, s.InsertIndexRecord(ctx, dupDOI), "unique index on doi must reject a second row")

	dupKey := &models.IndexRecord{PaperID: "it-dup-key", CitationKey: "itkey2025roundtrip"}
	assert.Error(t, s.InsertIndexRecord(ctx, dupKey), "unique index on citation_key must reject a second row")

	// The partial indexes ignore empty identifiers: two grey records with
	// empty DOIs and distinct keys both insert.
	for i := 0; i < 2; i++ {
		grey := &models.IndexRecord{
			PaperID:     fmt.Sprintf("it-grey-%d-%d", i, time.Now().UnixNano()),
			CitationKey: fmt.Sprintf("greykey%d%d", i, time.Now().UnixNano()),
		}
		assert.NoError(t, s.InsertIndexRecord(ctx, grey))
	}
}

func TestIntegrationChunkRoundTrip(t *testing.T) {
	s := integrationStore(t)
	ctx := context.Background()

	target := core.Target{Collection: fmt.Sprintf("it_chunks_%d", time.Now().UnixNano())}
	require.NoError(t, s.EnsureChunkCollection(ctx, target, 4))
	defer func() {
		_, _ = s.db.Exec(`DROP TABLE IF EXISTS ` + s.qualified(target))
	}()
	require.NoError(t, s.EnsureChunkCollection(ctx, target, 4), "re-ensuring an existing table is a no-op")

	rec := &models.IndexRecord{PaperID: "it-paper", DOI: "10.9999/it.chunks", CitationKey: "itchunks2025"}
	chunks := make([]models.Chunk, 5)
	for i := range chunks {
		chunks[i] = models.Chunk{
			Section:    "Methods / Participants",
			ChunkIndex: i,
			Text:       fmt.Sprintf("chunk body %d", i),
			Hash:       fmt.Sprintf("%064d", i),
			ImageRefs:  []string{"images/a.png", "images/b.png"},
			Vector:     []float32{float32(i), 0, 0, 1},
		}
	}
	require.NoError(t, s.InsertChunks(ctx, target, rec, chunks, 2))

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT chunk_index, section, hash, image_refs, text
		FROM %s WHERE paper_id = $1 ORDER BY chunk_index
	`, s.qualified(target)), rec.PaperID)
	require.NoError(t, err)
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			idx                       int
			section, hash, refs, text string
		)
		require.NoError(t, rows.Scan(&idx, &section, &hash, &refs, &text))
		assert.Equal(t, n, idx, "insertion must preserve chunk order")
		assert.Equal(t, "Methods / Participants", section)
		assert.Equal(t, chunks[n].Hash, hash)
		assert.Equal(t, "images/a.png|images/b.png", refs, "image refs stored pipe-joined")
		assert.Equal(t, chunks[n].Text, text)
		n++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 5, n)
}
