package embedding

import "context"

// MockEmbedder produces deterministic vectors derived from the input text.
// It stands in for the HTTP client in unit tests.
type MockEmbedder struct {
	dimension int

	// Calls counts Embed invocations, for cache-behavior assertions.
	Calls int
}

// NewMockEmbedder creates a mock embedder with the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.Calls++
	vec := make([]float32, e.dimension)
	for i, r := range text {
		if i >= e.dimension {
			break
		}
		vec[i] = float32(r) / 1000.0
	}
	return vec, nil
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
