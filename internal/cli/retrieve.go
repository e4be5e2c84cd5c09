package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	retrieveQuery string
	retrieveTopK  int
	retrieveJSON  bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Retrieve symbol definitions relevant to one query",
	RunE: func(cmd *cobra.Command, args []string) error {
		if retrieveQuery == "" && len(args) > 0 {
			retrieveQuery = args[0]
		}
		if retrieveQuery == "" {
			return fmt.Errorf("no query given (use -q or a positional argument)")
		}

		ctx := cmd.Context()
		pipeline, err := buildPipeline(ctx, cfg, false)
		if err != nil {
			return err
		}

		result, err := pipeline.Retrieve(ctx, retrieveQuery, retrieveOptions(cfg, retrieveTopK))
		if err != nil {
			return err
		}

		if retrieveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Printf("Query: %s\n", result.Query)
		fmt.Printf("Retrieved %d symbols:\n\n", len(result.Symbols))
		for i, sym := range result.Symbols {
			fmt.Printf("%3d. %-40s fused=%.5f bm25=%.3f dense=%.3f\n",
				i+1, sym.ID,
				result.Scores[sym.ID],
				result.BM25Scores[sym.ID],
				result.DenseScores[sym.ID])
		}
		return nil
	},
}

func init() {
	retrieveCmd.Flags().StringVarP(&retrieveQuery, "query", "q", "", "query text")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of results (overrides config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "emit the full ranking as JSON")
	rootCmd.AddCommand(retrieveCmd)
}
