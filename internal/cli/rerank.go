package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"omsearch/config"
	"omsearch/internal/adapter/retriever"
	"omsearch/internal/adapter/store"
	"omsearch/internal/domain"
)

var (
	rerankProblems string
	rerankOutput   string
	rerankTopK     int
	rerankNoCache  bool
)

// rerankReport is the JSON shape written by the rerank command.
type rerankReport struct {
	Problems  int                            `json:"problems"`
	Succeeded int                            `json:"succeeded"`
	Failed    int                            `json:"failed"`
	Elapsed   string                         `json:"elapsed"`
	Results   map[string]domain.RerankResult `json:"results"`
	Errors    map[string]string              `json:"errors,omitempty"`
}

var rerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Retrieve and rerank candidates for a batch of problems",
	Long: `Runs the full pipeline over a problem corpus: hybrid retrieval for each
problem, then pairwise scoring and the threshold filter. The --problems
pattern may use ** globs to gather several JSON files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rerankProblems == "" {
			return fmt.Errorf("no problems given (use --problems)")
		}

		ctx := cmd.Context()
		start := time.Now()

		problems, err := globProblems(rerankProblems)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d problems\n", len(problems))

		pipeline, err := buildPipeline(ctx, cfg, true)
		if err != nil {
			return err
		}

		// Query vectors come from the corpus cache when available; the
		// retriever falls back to live embedding for anything missing.
		var vectors map[string][]float32
		if !rerankNoCache {
			embedder := newEmbedder(cfg)
			var bar *progressbar.ProgressBar
			matrix, ids, err := store.GetOrCompute(ctx, problems,
				config.QueryCachePath(rerankProblems, embedder.ModelName()),
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
			vectors = store.VectorLookup(matrix, ids)
		}

		var retrieveBar *progressbar.ProgressBar
		rankings, retrieveErrs, err := pipeline.RetrieveBatch(ctx, problems, retriever.BatchOptions{
			Options:   retrieveOptions(cfg, rerankTopK),
			Vectors:   vectors,
			RateDelay: rateDelay(cfg.Embedding.RateDelayMS),
			Progress: func(done, total int) {
				if retrieveBar == nil {
					retrieveBar = newBar(total, "Retrieving")
				}
				_ = retrieveBar.Set(done)
			},
		})
		if err != nil {
			return err
		}

		candidates := make(map[string][]domain.Symbol, len(rankings))
		toRerank := make(map[string]string, len(rankings))
		for id, ranking := range rankings {
			candidates[id] = ranking.Symbols
			toRerank[id] = problems[id]
		}

		var rerankBar *progressbar.ProgressBar
		results, err := pipeline.RerankBatch(ctx, toRerank, candidates, func(done, total int) {
			if rerankBar == nil {
				rerankBar = newBar(total, "Reranking")
			}
			_ = rerankBar.Set(done)
		})
		if err != nil {
			return err
		}

		report := rerankReport{
			Problems: len(problems),
			Elapsed:  time.Since(start).Round(time.Millisecond).String(),
			Results:  results,
		}
		for _, r := range results {
			if r.Success {
				report.Succeeded++
			} else {
				report.Failed++
			}
		}
		if len(retrieveErrs) > 0 {
			report.Errors = make(map[string]string, len(retrieveErrs))
			for id, rerr := range retrieveErrs {
				report.Errors[id] = rerr.Error()
				report.Failed++
			}
		}

		out := os.Stdout
		if rerankOutput != "" {
			f, err := os.Create(rerankOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Done: %d/%d problems succeeded in %s\n",
			report.Succeeded, report.Problems, report.Elapsed)
		return nil
	},
}

func init() {
	rerankCmd.Flags().StringVar(&rerankProblems, "problems", "", "problem corpus JSON (glob patterns allowed)")
	rerankCmd.Flags().StringVarP(&rerankOutput, "output", "o", "", "write the report to a file instead of stdout")
	rerankCmd.Flags().IntVarP(&rerankTopK, "top-k", "k", 0, "candidates per problem (overrides config)")
	rerankCmd.Flags().BoolVar(&rerankNoCache, "no-query-cache", false, "embed queries live instead of using the corpus cache")
	rootCmd.AddCommand(rerankCmd)
}
