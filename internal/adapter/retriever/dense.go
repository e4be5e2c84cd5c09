package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"omsearch/internal/adapter/analyzer"
	"omsearch/internal/adapter/catalog"
	"omsearch/internal/adapter/store"
	"omsearch/internal/port"
)

// VectorStore holds one L2-normalized embedding per symbol, position-aligned
// with the catalogue. It is read-only after construction.
type VectorStore struct {
	embedder port.Embedder
	matrix   [][]float32
}

// VectorStoreOptions tune construction.
type VectorStoreOptions struct {
	// CachePath is the bbolt file the embedding matrix is persisted to.
	// Empty disables persistence.
	CachePath string

	// RateDelay is the pause between embedding calls during recomputation.
	RateDelay time.Duration

	// Progress, when set, is invoked after every computed vector.
	Progress func(done, total int)

	Logger *slog.Logger
}

// NewVectorStore loads the symbol-embedding matrix from cache or computes it
// via the embedder. A cache whose row count or model disagrees with the
// catalogue is discarded and fully recomputed, then overwritten; it is never
// partially patched.
func NewVectorStore(ctx context.Context, cat *catalog.Catalog, embedder port.Embedder, opts VectorStoreOptions) (*VectorStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	vs := &VectorStore{embedder: embedder}

	symbols := cat.Symbols()
	if len(symbols) == 0 {
		return vs, nil
	}

	if opts.CachePath != "" {
		matrix, ok, err := store.LoadMatrix(opts.CachePath, embedder.ModelName(), len(symbols))
		if err != nil {
			logger.Warn("failed to load embedding cache", "path", opts.CachePath, "error", err)
		} else if ok {
			vs.matrix = normalizeRows(matrix)
			logger.Info("loaded symbol embeddings from cache", "path", opts.CachePath, "rows", len(matrix))
			return vs, nil
		} else {
			logger.Info("embedding cache mismatch, recomputing", "path", opts.CachePath, "symbols", len(symbols))
		}
	}

	matrix := make([][]float32, 0, len(symbols))
	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := analyzer.StripAsymptote(catalog.EmbeddingText(sym))
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed symbol %s: %w", sym.ID, err)
		}
		matrix = append(matrix, vec)

		if opts.Progress != nil {
			opts.Progress(i+1, len(symbols))
		}
		if opts.RateDelay > 0 && i < len(symbols)-1 {
			time.Sleep(opts.RateDelay)
		}
	}

	if opts.CachePath != "" {
		if err := store.SaveMatrix(opts.CachePath, embedder.ModelName(), matrix); err != nil {
			logger.Warn("failed to save embedding cache", "path", opts.CachePath, "error", err)
		} else {
			logger.Info("saved symbol embeddings to cache", "path", opts.CachePath, "rows", len(matrix))
		}
	}

	vs.matrix = normalizeRows(matrix)
	return vs, nil
}

// ScoreAll returns the cosine similarity between the query vector and every
// stored vector, in catalogue order. All-zero vectors score 0, not NaN.
func (vs *VectorStore) ScoreAll(query []float32) []float64 {
	scores := make([]float64, len(vs.matrix))
	q := normalize(query)
	for i, row := range vs.matrix {
		scores[i] = dot(q, row)
	}
	return scores
}

// Len returns the number of stored vectors.
func (vs *VectorStore) Len() int {
	return len(vs.matrix)
}

const normEpsilon = 1e-10

func normalizeRows(matrix [][]float32) [][]float32 {
	normalized := make([][]float32, len(matrix))
	for i, row := range matrix {
		normalized[i] = normalize(row)
	}
	return normalized
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum) + normEpsilon

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
