package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hermes/internal/adapter/embedding"
	"hermes/internal/usecase"
)

var (
	indexRepo string
	indexOut  string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a repository: scan, chunk, embed, build artifacts",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexRepo, "repo", "", "path to repository (required)")
	indexCmd.Flags().StringVar(&indexOut, "out", "", "artifacts directory (default from config)")
	indexCmd.MarkFlagRequired("repo")
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexOut != "" {
		cfg.ArtifactsDir = indexOut
	}

	embedder, err := embedding.NewBiencoder(cfg.Embed)
	if err != nil {
		return fmt.Errorf("failed to create bi-encoder: %w", err)
	}

	summary, err := usecase.BuildIndex(indexRepo, cfg, embedder)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println("\nIndexing complete:")
	fmt.Printf("  files scanned:  %d\n", summary.FilesScanned)
	fmt.Printf("  chunks:         %d\n", summary.NChunks)
	fmt.Printf("  embedding dim:  %d\n", summary.EmbeddingDim)
	fmt.Printf("  model:          %s\n", summary.BiencoderModel)
	for lang, n := range summary.ChunksPerLanguage {
		fmt.Printf("  %-14s  %d chunks\n", lang+":", n)
	}
	fmt.Printf("  total time:     %.2fs (%.1f chunks/s)\n", summary.TotalSeconds, summary.ChunksPerSec)
	return nil
}
