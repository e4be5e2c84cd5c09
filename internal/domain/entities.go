package domain

import "time"

// Symbol is one catalogued OpenMath definition, identified by "cd:name"
// where cd is the originating content dictionary.
type Symbol struct {
	ID   string `json:"id"`
	CD   string `json:"cd"`
	Name string `json:"name"`

	Description           string   `json:"description,omitempty"`
	DescriptionNormalized string   `json:"description_normalized,omitempty"`
	Properties            []string `json:"cmp_properties,omitempty"`
	PropertiesNormalized  []string `json:"cmp_properties_normalized,omitempty"`
	Examples              []string `json:"examples,omitempty"`
	ExamplesNormalized    []string `json:"examples_normalized,omitempty"`

	// Mapping names the symbol's function in an external CAS, when one
	// exists. Retrieval can be restricted to mapped symbols.
	Mapping string `json:"sympy_function,omitempty"`
}

// ScoredSymbol pairs a symbol with a relevance score.
type ScoredSymbol struct {
	Symbol Symbol  `json:"symbol"`
	Score  float64 `json:"score"`
}

// RankingResult is the output of one hybrid retrieval call. SymbolIDs are
// ordered by descending fused score; the three score maps cover exactly the
// returned symbols. The value is never mutated after construction.
type RankingResult struct {
	Query       string             `json:"query"`
	Symbols     []Symbol           `json:"symbols"`
	SymbolIDs   []string           `json:"symbol_ids"`
	Scores      map[string]float64 `json:"scores"`
	BM25Scores  map[string]float64 `json:"bm25_scores"`
	DenseScores map[string]float64 `json:"dense_scores"`
}

// RerankResult is the output of reranking one problem's candidate list.
// AllScores records every candidate's raw score, including the zero sentinel
// for candidates whose scoring call failed.
type RerankResult struct {
	ProblemID     string             `json:"problem_id"`
	ProblemText   string             `json:"problem_text"`
	OriginalCount int                `json:"original_count"`
	Reranked      []ScoredSymbol     `json:"reranked_symbols"`
	AllScores     map[string]float64 `json:"all_scores"`
	Elapsed       time.Duration      `json:"elapsed"`
	Success       bool               `json:"success"`
	Error         string             `json:"error,omitempty"`
}

// RerankedCount returns the number of surviving symbols.
func (r *RerankResult) RerankedCount() int {
	return len(r.Reranked)
}

// FilteredCount returns the number of symbols removed by the filter.
func (r *RerankResult) FilteredCount() int {
	return r.OriginalCount - len(r.Reranked)
}
