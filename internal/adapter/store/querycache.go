package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"omsearch/internal/adapter/analyzer"
	"omsearch/internal/port"
)

// QueryCacheOptions tune GetOrCompute.
type QueryCacheOptions struct {
	// RateDelay is the pause between embedding calls.
	RateDelay time.Duration

	// Progress, when set, is invoked after every computed vector.
	Progress func(done, total int)

	Logger *slog.Logger
}

// GetOrCompute returns one embedding per query, with queries processed in
// sorted-ID order so cache files are reproducible regardless of input map
// iteration order. A cache whose row count disagrees with the query set is
// recomputed in full and overwritten. The returned matrix rows align with
// the returned ID slice.
func GetOrCompute(ctx context.Context, queries map[string]string, cachePath string, embedder port.Embedder, opts QueryCacheOptions) ([][]float32, []string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ids := make([]string, 0, len(queries))
	for id := range queries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if cachePath != "" {
		matrix, ok, err := LoadMatrix(cachePath, embedder.ModelName(), len(ids))
		if err != nil {
			logger.Warn("failed to load query embedding cache", "path", cachePath, "error", err)
		} else if ok {
			logger.Info("loaded query embeddings from cache", "path", cachePath, "rows", len(matrix))
			return matrix, ids, nil
		} else {
			logger.Info("query embedding cache mismatch, recomputing", "path", cachePath, "queries", len(ids))
		}
	}

	matrix := make([][]float32, 0, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		clean := analyzer.StripAsymptote(queries[id])
		vec, err := embedder.Embed(ctx, clean)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to embed query %s: %w", id, err)
		}
		matrix = append(matrix, vec)

		if opts.Progress != nil {
			opts.Progress(i+1, len(ids))
		}
		if opts.RateDelay > 0 && i < len(ids)-1 {
			time.Sleep(opts.RateDelay)
		}
	}

	// One write per successful full computation; a crashed run never leaves
	// a partial cache behind.
	if cachePath != "" {
		if err := SaveMatrix(cachePath, embedder.ModelName(), matrix); err != nil {
			logger.Warn("failed to save query embedding cache", "path", cachePath, "error", err)
		} else {
			logger.Info("saved query embeddings to cache", "path", cachePath, "rows", len(matrix))
		}
	}

	return matrix, ids, nil
}

// VectorLookup converts a matrix plus its ordered IDs into the per-ID lookup
// the batch retriever consumes.
func VectorLookup(matrix [][]float32, ids []string) map[string][]float32 {
	lookup := make(map[string][]float32, len(ids))
	for i, id := range ids {
		if i < len(matrix) {
			lookup[id] = matrix[i]
		}
	}
	return lookup
}
