package port

import "context"

// PairwiseScorer scores a (problem, definition) pair jointly for relevance.
// The score range is backend-defined; callers interpret it via a threshold.
type PairwiseScorer interface {
	Score(ctx context.Context, problem, definition string) (float64, error)

	// ModelName identifies the scoring model.
	ModelName() string
}
