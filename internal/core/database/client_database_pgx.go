package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gusmmm/docrag/internal/config"
	"github.com/gusmmm/docrag/internal/core"
	"github.com/gusmmm/docrag/internal/models"
)

// VectorStore implements core.VectorStore on Postgres + pgvector.
// Named databases are modeled as schemas; the meta table lives in the
// search-path default of the connected database.
type VectorStore struct {
	db        *sql.DB
	metaTable string
}

func NewVectorStore(ctx context.Context, cfg *config.Config) (core.VectorStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for a sequential indexer; adjust as needed.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	s := &VectorStore{db: db, metaTable: ident(cfg.MetaTable)}
	if err := s.ensureMetaTable(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("meta table: %w", err)
	}
	return s, nil
}

func (s *VectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureDatabase creates the schema backing a named database. A role that
// may not create schemas makes the store report the capability as
// unsupported rather than failing the paper.
func (s *VectorStore) EnsureDatabase(ctx context.Context, name string) error {
	q := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, quote(ident(name)))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return schemaErr(name, err)
	}
	return nil
}

// schemaErr classifies a CREATE SCHEMA failure: permission and feature
// errors mean the store cannot provide named databases and are wrapped in
// the capability sentinel; everything else stays a plain failure.
// 42501 insufficient_privilege, 0A000 feature_not_supported.
func schemaErr(name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "42501" || pgErr.Code == "0A000") {
		return fmt.Errorf("create schema %q: %w", name, core.ErrNamedDatabasesUnsupported)
	}
	return fmt.Errorf("create schema %q: %w", name, err)
}

// ensureMetaTable creates the configured papers_meta table. DOI and citation
// key are each unique when present, so a lookup by either detects prior
// indexing.
func (s *VectorStore) ensureMetaTable(ctx context.Context) error {
	meta := quote(s.metaTable)
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			paper_id     text PRIMARY KEY,
			doi          varchar(128)  NOT NULL DEFAULT '',
			citation_key varchar(256)  NOT NULL DEFAULT '',
			topic        varchar(128)  NOT NULL DEFAULT '',
			title        varchar(1024) NOT NULL DEFAULT '',
			journal      varchar(256)  NOT NULL DEFAULT '',
			issued       varchar(32)   NOT NULL DEFAULT '',
			url          varchar(1024) NOT NULL DEFAULT '',
			source_path  varchar(1024) NOT NULL DEFAULT '',
			location     varchar(256)  NOT NULL DEFAULT '',
			created_at   timestamptz   NOT NULL DEFAULT now()
		)`, meta)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return err
	}
	for _, idx := range []struct{ name, col string }{
		{s.metaTable + "_doi_uq", "doi"},
		{s.metaTable + "_key_uq", "citation_key"},
	} {
		q := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s) WHERE %s <> ''`,
			quote(idx.name), meta, idx.col, idx.col)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// FindIndexRecord looks a paper up, DOI first. Returns (nil, nil) when the
// paper has never been indexed.
func (s *VectorStore) FindIndexRecord(ctx context.Context, doi, citationKey string) (*models.IndexRecord, error) {
	if doi != "" {
		rec, err := s.findBy(ctx, "doi", doi)
		if err != nil || rec != nil {
			return rec, err
		}
	}
	if citationKey != "" {
		return s.findBy(ctx, "citation_key", citationKey)
	}
	return nil, nil
}

func (s *VectorStore) findBy(ctx context.Context, col, val string) (*models.IndexRecord, error) {
	q := fmt.Sprintf(`
		SELECT paper_id, doi, citation_key, topic, title, journal, issued, url, source_path, location, created_at
		FROM %s WHERE %s = $1
	`, quote(s.metaTable), col)
	var r models.IndexRecord
	err := s.db.QueryRowContext(ctx, q, val).Scan(
		&r.PaperID, &r.DOI, &r.CitationKey, &r.Topic, &r.Title, &r.Journal,
		&r.Issued, &r.URL, &r.SourcePath, &r.Location, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *VectorStore) InsertIndexRecord(ctx context.Context, rec *models.IndexRecord) error {
	if rec == nil {
		return errors.New("nil index record")
	}
	q := fmt.Sprintf(`
		INSERT INTO %s
			(paper_id, doi, citation_key, topic, title, journal, issued, url, source_path, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`, quote(s.metaTable))
	_, err := s.db.ExecContext(ctx, q,
		rec.PaperID, rec.DOI, rec.CitationKey, rec.Topic, rec.Title, rec.Journal,
		rec.Issued, rec.URL, rec.SourcePath, rec.Location)
	return err
}

// EnsureChunkCollection creates the routed chunk table, fixing the vector
// dimension at creation time. Creating with a different dim later is a
// schema change and fails loudly on insert, not silently here.
func (s *VectorStore) EnsureChunkCollection(ctx context.Context, target core.Target, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dim)
	}
	table := s.qualified(target)
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id           bigserial PRIMARY KEY,
			paper_id     text          NOT NULL,
			doi          varchar(128)  NOT NULL DEFAULT '',
			citation_key varchar(256)  NOT NULL DEFAULT '',
			section      varchar(512)  NOT NULL DEFAULT '',
			chunk_index  bigint        NOT NULL,
			hash         varchar(64)   NOT NULL,
			image_refs   varchar(2048) NOT NULL DEFAULT '',
			text         varchar(8192) NOT NULL,
			embedding    vector(%d)    NOT NULL,
			created_at   timestamptz   NOT NULL DEFAULT now()
		)`, table, dim)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create chunk table %s: %w", target, err)
	}

	idx := ident(target.Collection) + "_embedding_idx"
	q = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
		quote(idx), table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create vector index on %s: %w", target, err)
	}
	return nil
}

// InsertChunks writes embedded chunks in transactions of insertBatch rows,
// preserving chunk order. Image refs are pipe-joined for storage.
func (s *VectorStore) InsertChunks(ctx context.Context, target core.Target, rec *models.IndexRecord, chunks []models.Chunk, insertBatch int) error {
	if len(chunks) == 0 {
		return nil
	}
	if insertBatch <= 0 {
		insertBatch = 256
	}

	q := fmt.Sprintf(`
		INSERT INTO %s
			(paper_id, doi, citation_key, section, chunk_index, hash, image_refs, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.qualified(target))

	for start := 0; start < len(chunks); start += insertBatch {
		end := start + insertBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.insertBatchTx(ctx, q, rec, chunks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *VectorStore) insertBatchTx(ctx context.Context, q string, rec *models.IndexRecord, batch []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range batch {
		ch := &batch[i]
		vec := pgvector.NewVector(ch.Vector)
		if _, err := stmt.ExecContext(ctx,
			rec.PaperID, rec.DOI, rec.CitationKey,
			ch.Section, ch.ChunkIndex, ch.Hash,
			strings.Join(ch.ImageRefs, "|"), ch.Text, vec,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// qualified renders the schema-qualified table name for a target.
func (s *VectorStore) qualified(t core.Target) string {
	table := quote(ident(t.Collection))
	if t.Database == "" {
		return table
	}
	return quote(ident(t.Database)) + "." + table
}

// ident collapses a name to a safe snake-case identifier, the same form the
// router bakes into targets.
func ident(name string) string {
	return core.SanitizeName(name)
}

func quote(ident string) string {
	return `"` + ident + `"`
}
