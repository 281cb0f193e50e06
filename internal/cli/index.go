package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gusmmm/docrag/internal/config"
	"github.com/gusmmm/docrag/internal/core"
	"github.com/gusmmm/docrag/internal/core/chunker"
	"github.com/gusmmm/docrag/internal/core/crossref"
	db "github.com/gusmmm/docrag/internal/core/database"
	"github.com/gusmmm/docrag/internal/core/identity"
	"github.com/gusmmm/docrag/internal/core/llm"
	"github.com/gusmmm/docrag/internal/core/normalize"
	"github.com/gusmmm/docrag/internal/core/objectstore"
	"github.com/gusmmm/docrag/internal/core/pipeline"
	"github.com/gusmmm/docrag/internal/models"
)

var (
	indexFile        string
	indexDryRun      bool
	indexShow        int
	indexEmbedBatch  int
	indexInsertBatch int
	indexCollection  string
	indexMetaColl    string
	indexDBName      string
	indexPapersDir   string
	indexNoSection   bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index converted papers into the vector store",
	Long: `Discovers *-RAG.md files under the papers directory (or takes a single
file), normalizes and chunks them, and indexes each paper exactly once:
papers already present in the meta table are skipped.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexFile, "file", "", "index a single converted file (local path or s3:// url)")
	indexCmd.Flags().BoolVar(&indexDryRun, "dry-run", false, "chunk and dedup-check only; no embedding or insertion")
	indexCmd.Flags().IntVar(&indexShow, "show", 0, "preview the first N chunks of each paper")
	indexCmd.Flags().IntVar(&indexEmbedBatch, "embed-batch", 0, "chunk texts per embedding request (default from env, 64)")
	indexCmd.Flags().IntVar(&indexInsertBatch, "insert-batch", 0, "chunk rows per insert transaction (default from env, 256)")
	indexCmd.Flags().StringVar(&indexCollection, "collection", "", "chunks collection name")
	indexCmd.Flags().StringVar(&indexMetaColl, "meta-collection", "", "papers metadata collection name")
	indexCmd.Flags().StringVar(&indexDBName, "db-name", "", "default chunks database when a paper has no topic")
	indexCmd.Flags().StringVar(&indexPapersDir, "papers-dir", "", "directory to scan for *-RAG.md files")
	indexCmd.Flags().BoolVar(&indexNoSection, "no-prepend-section", false, "do not prepend the section path to the embedded text")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	applyOverrides(cfg)

	paths := []string{indexFile}
	if indexFile == "" {
		var err error
		paths, err = discoverFiles(cfg.PapersDir)
		if err != nil {
			return fmt.Errorf("discover papers: %w", err)
		}
	}
	if len(paths) == 0 {
		log.Println("No -RAG.md files found to index.")
		return nil
	}

	loader := objectstore.NewLoader(newObjectClient(ctx, cfg))
	papers := loadPapers(ctx, loader, crossref.NewClient(cfg.CrossrefMail), paths)

	if indexShow > 0 {
		previewChunks(papers, cfg.MaxChunkLen, indexShow)
	}

	store, err := db.NewVectorStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	var provider core.EmbeddingProvider
	if !indexDryRun {
		embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
		defer embedder.Close()
		provider = embedder
	}

	ix := pipeline.NewIndexer(store, provider, pipeline.Config{
		EmbedBatch:     cfg.EmbedBatch,
		InsertBatch:    cfg.InsertBatch,
		MaxChunkLen:    cfg.MaxChunkLen,
		DefaultDB:      cfg.DefaultDB,
		ChunkTable:     cfg.ChunkTable,
		PrependSection: !indexNoSection,
		DryRun:         indexDryRun,
	})

	results := ix.IndexAll(ctx, papers)

	var indexed, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case pipeline.StatusIndexed:
			indexed++
		case pipeline.StatusSkipped:
			skipped++
		case pipeline.StatusFailed:
			failed++
		}
	}
	log.Printf("done: %d indexed, %d skipped, %d failed (%d papers)", indexed, skipped, failed, len(results))
	if failed > 0 && indexed == 0 && skipped == 0 {
		return fmt.Errorf("all %d papers failed", failed)
	}
	return nil
}

func applyOverrides(cfg *config.Config) {
	if indexEmbedBatch > 0 {
		cfg.EmbedBatch = indexEmbedBatch
	}
	if indexInsertBatch > 0 {
		cfg.InsertBatch = indexInsertBatch
	}
	if indexCollection != "" {
		cfg.ChunkTable = indexCollection
	}
	if indexMetaColl != "" {
		cfg.MetaTable = indexMetaColl
	}
	if indexDBName != "" {
		cfg.DefaultDB = indexDBName
	}
	if indexPapersDir != "" {
		cfg.PapersDir = indexPapersDir
	}
}

// newObjectClient builds the S3 client when credentials are configured;
// without them, s3:// sources fail per-document instead of at startup.
func newObjectClient(ctx context.Context, cfg *config.Config) core.ObjectClient {
	if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
		return nil
	}
	obj, err := objectstore.NewS3Client(ctx, cfg)
	if err != nil {
		log.Printf("[warn] object storage unavailable: %v", err)
		return nil
	}
	return obj
}

// discoverFiles finds converted papers: output/papers/<key>/md_with_images/*-RAG.md.
func discoverFiles(base string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), "-RAG.md") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// loadPapers reads and normalizes each source file. A paper with a real DOI
// but no front-matter title gets its bibliography backfilled from Crossref;
// lookup failures leave the fields empty rather than failing the paper.
func loadPapers(ctx context.Context, loader *objectstore.Loader, meta core.MetadataProvider, paths []string) []*models.Paper {
	papers := make([]*models.Paper, 0, len(paths))
	for _, path := range paths {
		raw, err := loader.Load(ctx, path)
		if err != nil {
			log.Printf("[fail] read %s: %v", path, err)
			continue
		}
		papers = append(papers, normalize.Normalize(string(raw), lookupBib(ctx, meta, string(raw)), path))
	}
	return papers
}

// lookupBib fetches the Crossref record for a document that carries a real
// DOI (in front matter or its opening text) but no front-matter title.
// Returns nil when no lookup is needed or when the lookup fails.
func lookupBib(ctx context.Context, meta core.MetadataProvider, raw string) *models.Bibliography {
	fm, body := normalize.SplitFrontMatter(raw)
	if fm.Title != "" {
		return nil
	}
	doi := identity.NormalizeDOI(fm.DOI)
	if !identity.IsRealDOI(doi) {
		doi = identity.FindDOIInBody(body)
	}
	if !identity.IsRealDOI(doi) {
		return nil
	}
	bib, err := meta.Lookup(ctx, doi)
	if err != nil {
		log.Printf("[warn] crossref lookup %s: %v", doi, err)
		return nil
	}
	return bib
}

func previewChunks(papers []*models.Paper, maxLen, show int) {
	ck := chunker.New(maxLen)
	for _, p := range papers {
		chunks := ck.Chunk(p.Body)
		fmt.Printf("Parsed chunks: %d from %s\n", len(chunks), p.SourcePath)
		for _, ch := range chunks[:min(show, len(chunks))] {
			fmt.Printf("[%d] Section: %s\n", ch.ChunkIndex, ch.Section)
			if len(ch.ImageRefs) > 0 {
				fmt.Printf("  Images: %s\n", strings.Join(ch.ImageRefs, ", "))
			}
			text := strings.ReplaceAll(ch.Text, "\n", " ")
			if len(text) > 200 {
				text = text[:200] + "..."
			}
			fmt.Println(text)
			fmt.Println()
		}
	}
}
