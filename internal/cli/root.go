// Package cli wires the indexing pipeline to its command-line surface.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Chunk, embed and index converted papers into a vector store",
	Long: `docrag ingests converted scientific papers (Markdown with YAML front
matter), splits them into section-aware chunks, embeds the chunks with
Gemini and indexes them idempotently into Postgres/pgvector with
topic-aware routing.`,
	SilenceUsage: true,
}

// Execute runs the CLI with the given base context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
