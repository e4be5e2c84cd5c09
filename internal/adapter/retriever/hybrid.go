package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"omsearch/internal/adapter/analyzer"
	"omsearch/internal/adapter/catalog"
	"omsearch/internal/domain"
	"omsearch/internal/port"
)

// HybridRetriever fuses BM25 and dense similarity rankings with weighted
// Reciprocal Rank Fusion. The two raw scores live on incompatible scales, so
// fusion works on rank positions, never on the scores themselves.
type HybridRetriever struct {
	catalog  *catalog.Catalog
	bm25     *BM25Index
	vectors  *VectorStore
	embedder port.Embedder
	rrfK     int
}

// Options control one retrieval call.
type Options struct {
	TopK        int
	BM25Weight  float64
	DenseWeight float64

	// MinScore drops fused scores below this floor during selection.
	MinScore float64

	// RequireMapping keeps only symbols with an external CAS mapping.
	RequireMapping bool

	ExpandQuery bool
	Dedup       bool
}

// DefaultOptions returns the standard recall-layer settings.
func DefaultOptions() Options {
	return Options{
		TopK:        50,
		BM25Weight:  0.5,
		DenseWeight: 0.5,
		ExpandQuery: true,
		Dedup:       true,
	}
}

// NewHybridRetriever creates a hybrid retriever. rrfK is the RRF smoothing
// constant shared by both contributing rankers; values <= 0 fall back to the
// literature standard of 60.
func NewHybridRetriever(cat *catalog.Catalog, bm25 *BM25Index, vectors *VectorStore, embedder port.Embedder, rrfK int) *HybridRetriever {
	if rrfK <= 0 {
		rrfK = 60
	}
	return &HybridRetriever{
		catalog:  cat,
		bm25:     bm25,
		vectors:  vectors,
		embedder: embedder,
		rrfK:     rrfK,
	}
}

// Retrieve embeds the query and runs the fused ranking. An embedding
// failure fails the whole call; fusion cannot proceed on one signal.
func (h *HybridRetriever) Retrieve(ctx context.Context, query string, opts Options) (domain.RankingResult, error) {
	if strings.TrimSpace(query) == "" {
		return domain.RankingResult{}, fmt.Errorf("%w: empty query", domain.ErrInvalidQuery)
	}

	clean := analyzer.StripAsymptote(query)
	queryVec, err := h.embedder.Embed(ctx, clean)
	if err != nil {
		return domain.RankingResult{}, fmt.Errorf("failed to embed query: %w", err)
	}

	return h.RetrieveWithVector(query, queryVec, opts), nil
}

// RetrieveWithVector runs the fused ranking with a pre-computed query
// vector. The batch path substitutes cached vectors here; for identical
// inputs it produces bit-identical results to Retrieve.
func (h *HybridRetriever) RetrieveWithVector(query string, queryVec []float32, opts Options) domain.RankingResult {
	result := domain.RankingResult{
		Query:       query,
		Scores:      make(map[string]float64),
		BM25Scores:  make(map[string]float64),
		DenseScores: make(map[string]float64),
	}

	symbols := h.catalog.Symbols()
	if len(symbols) == 0 {
		return result
	}

	clean := analyzer.StripAsymptote(query)
	bm25Scores := h.bm25.ScoreAll(clean, opts.ExpandQuery)
	denseScores := h.vectors.ScoreAll(queryVec)

	bm25Rank := ranks(bm25Scores)
	denseRank := ranks(denseScores)

	fused := make([]float64, len(symbols))
	for i := range fused {
		fused[i] = opts.BM25Weight/float64(h.rrfK+bm25Rank[i]+1) +
			opts.DenseWeight/float64(h.rrfK+denseRank[i]+1)
	}

	// Walk fused order, applying filters and dedup before counting toward
	// TopK. Dedup is by full symbol ID: two CDs defining the same short
	// name are both legitimate results.
	seen := make(map[string]struct{})
	for _, idx := range argsortDesc(fused) {
		if len(result.Symbols) >= opts.TopK {
			break
		}

		score := fused[idx]
		if score < opts.MinScore {
			continue
		}

		sym := symbols[idx]
		if opts.RequireMapping && sym.Mapping == "" {
			continue
		}
		if opts.Dedup {
			if _, dup := seen[sym.ID]; dup {
				continue
			}
			seen[sym.ID] = struct{}{}
		}

		result.Symbols = append(result.Symbols, sym)
		result.SymbolIDs = append(result.SymbolIDs, sym.ID)
		result.Scores[sym.ID] = score
		result.BM25Scores[sym.ID] = bm25Scores[idx]
		result.DenseScores[sym.ID] = denseScores[idx]
	}

	return result
}

// BatchOptions extend Options for batch retrieval.
type BatchOptions struct {
	Options

	// Vectors maps query IDs to pre-computed embeddings. Queries without an
	// entry fall back to calling the embedder.
	Vectors map[string][]float32

	// RateDelay is the pause between embedder calls for queries without a
	// pre-computed vector.
	RateDelay time.Duration

	// Progress, when set, is invoked after each processed query.
	Progress func(done, total int)
}

// RetrieveBatch runs the single-query algorithm for every query, in sorted
// query-ID order. Per-query embedding failures are recorded in the returned
// error map and never abort the batch; cancellation stops between items and
// returns the partial results with the context's error.
func (h *HybridRetriever) RetrieveBatch(ctx context.Context, queries map[string]string, opts BatchOptions) (map[string]domain.RankingResult, map[string]error, error) {
	ids := make([]string, 0, len(queries))
	for id := range queries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make(map[string]domain.RankingResult, len(ids))
	errs := make(map[string]error)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, errs, err
		}

		query := queries[id]
		if vec, ok := opts.Vectors[id]; ok {
			results[id] = h.RetrieveWithVector(query, vec, opts.Options)
		} else {
			result, err := h.Retrieve(ctx, query, opts.Options)
			if err != nil {
				errs[id] = err
			} else {
				results[id] = result
			}
			if opts.RateDelay > 0 && i < len(ids)-1 {
				time.Sleep(opts.RateDelay)
			}
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(ids))
		}
	}

	return results, errs, nil
}

// ranks converts a score vector into 0-based rank positions: the highest
// score gets rank 0. Ties break by catalogue order, which keeps the ranking
// deterministic.
func ranks(scores []float64) []int {
	order := argsortDesc(scores)
	r := make([]int, len(scores))
	for pos, idx := range order {
		r[idx] = pos
	}
	return r
}

// argsortDesc returns indices sorted by descending score, ties broken by
// ascending index.
func argsortDesc(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}
