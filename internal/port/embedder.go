package port

import "context"

// Embedder produces dense vectors for text via an external embedding model.
type Embedder interface {
	// Embed returns the embedding vector for exactly one piece of text.
	// Failures propagate as errors, never as zero vectors.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName identifies the embedding model; caches are keyed by it.
	ModelName() string
}
