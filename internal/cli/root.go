package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"omsearch/config"
)

var (
	cfgFile string
	cfg     *config.Config
	kbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "omsearch",
	Short: "Hybrid retrieval and reranking over an OpenMath symbol catalogue",
	Long: `omsearch retrieves the mathematical symbol definitions relevant to a
natural-language math problem. BM25 lexical scores and dense embedding
similarity are fused with Reciprocal Rank Fusion, and a second-stage
pairwise scorer filters the candidates to a high-precision set.

Example usage:
  omsearch retrieve -q "greatest common divisor of 48 and 18"
  omsearch embed --queries data/problems.json
  omsearch rerank --problems "data/problems*.json" -o results.json`,
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

		if kbPath != "" {
			cfg.Catalog.Path = kbPath
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.Logging.SlogLevel(),
		})))

		return nil
	},
}

// Execute runs the root command. Interrupts cancel the command context so
// batch runs stop between items instead of mid-write.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./omsearch.yaml)")
	rootCmd.PersistentFlags().StringVar(&kbPath, "kb", "", "knowledge base path (overrides config)")
}
