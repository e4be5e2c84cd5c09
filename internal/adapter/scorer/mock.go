package scorer

import "context"

// MockScorer returns scores from a caller-supplied function. It stands in
// for the HTTP backends in unit tests.
type MockScorer struct {
	ScoreFunc func(problem, definition string) (float64, error)

	// Calls counts Score invocations.
	Calls int
}

func (m *MockScorer) Score(_ context.Context, problem, definition string) (float64, error) {
	m.Calls++
	return m.ScoreFunc(problem, definition)
}

func (m *MockScorer) ModelName() string {
	return "mock"
}
