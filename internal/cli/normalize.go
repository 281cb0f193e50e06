package cli

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gusmmm/docrag/internal/config"
	"github.com/gusmmm/docrag/internal/core/crossref"
	"github.com/gusmmm/docrag/internal/core/normalize"
	"github.com/gusmmm/docrag/internal/core/objectstore"
)

var (
	normalizeFile      string
	normalizeWrite     bool
	normalizePapersDir string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite converted papers with reconciled front matter",
	Long: `Loads *-RAG.md files, reconciles their bibliographic front matter
(backfilling missing fields from Crossref when a DOI is available), strips
the reference section and prints the normalized document. With --write the
source file is rewritten in place instead.`,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeFile, "file", "", "normalize a single converted file (local path or s3:// url)")
	normalizeCmd.Flags().BoolVar(&normalizeWrite, "write", false, "rewrite local source files in place instead of printing")
	normalizeCmd.Flags().StringVar(&normalizePapersDir, "papers-dir", "", "directory to scan for *-RAG.md files")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	if normalizePapersDir != "" {
		cfg.PapersDir = normalizePapersDir
	}

	paths := []string{normalizeFile}
	if normalizeFile == "" {
		var err error
		paths, err = discoverFiles(cfg.PapersDir)
		if err != nil {
			return fmt.Errorf("discover papers: %w", err)
		}
	}
	if len(paths) == 0 {
		log.Println("No -RAG.md files found to normalize.")
		return nil
	}

	loader := objectstore.NewLoader(newObjectClient(ctx, cfg))
	meta := crossref.NewClient(cfg.CrossrefMail)

	var failed int
	for _, path := range paths {
		raw, err := loader.Load(ctx, path)
		if err != nil {
			log.Printf("[fail] read %s: %v", path, err)
			failed++
			continue
		}

		merged := normalize.Merge(string(raw), lookupBib(ctx, meta, string(raw)), path)
		if !normalizeWrite || strings.HasPrefix(path, "s3://") {
			fmt.Print(merged)
			continue
		}
		if err := os.WriteFile(path, []byte(merged), 0o644); err != nil {
			log.Printf("[fail] write %s: %v", path, err)
			failed++
			continue
		}
		log.Printf("[ok] normalized %s", path)
	}
	if failed == len(paths) {
		return fmt.Errorf("all %d papers failed", failed)
	}
	return nil
}
