package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hermes/internal/adapter/embedding"
	transport "hermes/internal/transport/http"
)

var (
	serveHost      string
	servePort      int
	serveArtifacts string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HERMES query API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (default from config)")
	serveCmd.Flags().StringVar(&serveArtifacts, "artifacts", "", "artifacts directory (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveArtifacts != "" {
		cfg.ArtifactsDir = serveArtifacts
	}

	biencoder, err := embedding.NewBiencoder(cfg.Embed)
	if err != nil {
		return fmt.Errorf("failed to create bi-encoder: %w", err)
	}
	scorer, err := embedding.NewPairScorer(cfg.Embed)
	if err != nil {
		return fmt.Errorf("failed to create cross-encoder: %w", err)
	}

	server, err := transport.NewServer(cfg, biencoder, scorer)
	if err != nil {
		return err
	}

	fmt.Printf("HERMES API listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	return server.Run()
}
