package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"hermes/internal/adapter/embedding"
	"hermes/internal/search"
)

var (
	queryText string
	queryMode string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search built artifacts without the server",
	Long: `Run one search against the artifacts directory.

Examples:
  hermes query -q "authentication handler"
  hermes query -q "parse json" --mode sparse --top-k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().StringVar(&queryMode, "mode", "", "retrieval mode: dense, sparse or hybrid")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	biencoder, err := embedding.NewBiencoder(cfg.Embed)
	if err != nil {
		return fmt.Errorf("failed to create bi-encoder: %w", err)
	}
	scorer, err := embedding.NewPairScorer(cfg.Embed)
	if err != nil {
		return fmt.Errorf("failed to create cross-encoder: %w", err)
	}

	pipeline, err := search.Load(cfg, biencoder, scorer)
	if err != nil {
		return fmt.Errorf("no usable index in %s: %w", cfg.ArtifactsDir, err)
	}
	defer pipeline.Close()

	req := &search.Request{Query: queryText, RetrievalMode: queryMode}
	if queryTopK > 0 {
		req.TopKRerank = queryTopK
	}

	resp, err := pipeline.Search(req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(resp.Results), resp.Query)
	for _, r := range resp.Results {
		fmt.Printf("--- [%d] %s:L%d-%d (score: %.4f", r.FinalRank, r.FilePath, r.StartLine, r.EndLine, r.RetrievalScore)
		if r.RerankScore != nil {
			fmt.Printf(", rerank: %.4f", *r.RerankScore)
		}
		fmt.Println(") ---")
		if r.CodeSnippet != nil {
			text := *r.CodeSnippet
			if len(text) > 500 {
				text = text[:500] + "..."
			}
			fmt.Println(text)
		}
		fmt.Println()
	}
	return nil
}
