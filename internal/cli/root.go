package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hermes/config"
	"hermes/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "HERMES - hybrid semantic code search",
	Long: `HERMES indexes a repository into co-registered dense, sparse and
metadata artifacts, then serves hybrid retrieval with cross-encoder
reranking.

Example usage:
  hermes index --repo .          # Build artifacts for a repository
  hermes serve                   # Start the query API server
  hermes query -q "parse json"   # Search from the command line`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-json") {
			cfg.LogJSON = logJSON
		}
		logging.Setup(cfg.LogLevel, cfg.LogJSON)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./hermes.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "logging level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON-formatted logs")
}
