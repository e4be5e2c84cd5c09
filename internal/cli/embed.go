package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"omsearch/config"
	"omsearch/internal/adapter/store"
)

var embedQueriesPath string

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Precompute embedding caches",
	Long: `Warms the symbol-embedding cache for the configured knowledge base and,
when --queries is given, the query-embedding cache for a problem corpus.
Later retrieve and rerank runs then start without calling the embedding
service for anything already cached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Building the pipeline warms the symbol cache as a side effect.
		pipeline, err := buildPipeline(ctx, cfg, false)
		if err != nil {
			return err
		}
		fmt.Printf("Symbol embeddings ready for %d symbols\n", pipeline.Catalog().Len())

		if embedQueriesPath == "" {
			return nil
		}

		queries, err := loadProblems(embedQueriesPath)
		if err != nil {
			return err
		}

		embedder := newEmbedder(cfg)
		var bar *progressbar.ProgressBar
		matrix, _, err := store.GetOrCompute(ctx, queries,
			config.QueryCachePath(embedQueriesPath, embedder.ModelName()),
			embedder,
			store.QueryCacheOptions{
				RateDelay: rateDelay(cfg.Embedding.RateDelayMS),
				Progress: func(done, total int) {
					if bar == nil {
						bar = newBar(total, "Embedding queries")
					}
					_ = bar.Set(done)
				},
			})
		if err != nil {
			return err
		}

		fmt.Printf("Query embeddings ready for %d queries\n", len(matrix))
		return nil
	},
}

func init() {
	embedCmd.Flags().StringVar(&embedQueriesPath, "queries", "", "problem corpus JSON to pre-embed")
	rootCmd.AddCommand(embedCmd)
}
