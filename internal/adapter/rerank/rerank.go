package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"omsearch/internal/adapter/catalog"
	"omsearch/internal/domain"
	"omsearch/internal/port"
)

// Reranker filters a candidate list down to the symbols a pairwise scorer
// judges relevant to a problem. Threshold and minKeep have no universal
// defaults; sensible values differ per scoring backend, so both are required
// here.
type Reranker struct {
	scorer    port.PairwiseScorer
	threshold float64
	minKeep   int
	rateDelay time.Duration
	logger    *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithRateDelay sets the pause between scoring calls.
func WithRateDelay(d time.Duration) Option {
	return func(r *Reranker) { r.rateDelay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reranker) { r.logger = l }
}

// New creates a Reranker.
func New(scorer port.PairwiseScorer, threshold float64, minKeep int, opts ...Option) *Reranker {
	r := &Reranker{
		scorer:    scorer,
		threshold: threshold,
		minKeep:   minKeep,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank scores every candidate against the problem and applies the
// threshold rule. A failed scoring call degrades that candidate to a zero
// sentinel and the rest continue; only a failure of every single scoring
// call marks the whole problem as failed.
func (r *Reranker) Rerank(ctx context.Context, problemID, problemText string, candidates []domain.Symbol, progress func(done, total int)) domain.RerankResult {
	result := domain.RerankResult{
		ProblemID:     problemID,
		ProblemText:   problemText,
		OriginalCount: len(candidates),
		AllScores:     make(map[string]float64, len(candidates)),
		Success:       true,
	}

	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	if len(candidates) == 0 {
		return result
	}

	scored := make([]domain.ScoredSymbol, 0, len(candidates))
	failures := 0

	for i, sym := range candidates {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.Error = err.Error()
			return result
		}

		card := catalog.FormatCard(sym)
		score, err := r.scorer.Score(ctx, problemText, card)
		if err != nil {
			r.logger.Warn("failed to score candidate", "problem", problemID, "symbol", sym.ID, "error", err)
			score = 0
			failures++
		}

		result.AllScores[sym.ID] = score
		scored = append(scored, domain.ScoredSymbol{Symbol: sym, Score: score})

		if progress != nil {
			progress(i+1, len(candidates))
		}
		if r.rateDelay > 0 && i < len(candidates)-1 {
			time.Sleep(r.rateDelay)
		}
	}

	if failures == len(candidates) {
		result.Success = false
		result.Error = fmt.Sprintf("scoring failed for all %d candidates", len(candidates))
		return result
	}

	result.Reranked = ApplyThresholdRule(scored, r.threshold, r.minKeep)
	return result
}

// RerankBatch reranks every problem in sorted-ID order. Per-problem failures
// live inside each RerankResult; cancellation stops between problems and
// returns the partial map with the context's error.
func (r *Reranker) RerankBatch(ctx context.Context, problems map[string]string, candidates map[string][]domain.Symbol, progress func(done, total int)) (map[string]domain.RerankResult, error) {
	ids := make([]string, 0, len(problems))
	for id := range problems {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make(map[string]domain.RerankResult, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := r.Rerank(ctx, id, problems[id], candidates[id], nil)
		results[id] = result

		r.logger.Info("reranked problem",
			"problem", id,
			"kept", result.RerankedCount(),
			"candidates", result.OriginalCount,
		)
		if progress != nil {
			progress(i+1, len(ids))
		}
	}

	return results, nil
}

// ApplyThresholdRule keeps the top max(minKeep, count(score >= threshold))
// candidates, clamped to the candidate count. The floor protects recall when
// the scorer is pessimistic about everything; the count-above term keeps
// every confidently relevant candidate instead of truncating to the floor.
// The result is sorted by score descending, ties keeping input order.
func ApplyThresholdRule(scored []domain.ScoredSymbol, threshold float64, minKeep int) []domain.ScoredSymbol {
	sorted := make([]domain.ScoredSymbol, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	above := 0
	for _, s := range sorted {
		if s.Score >= threshold {
			above++
		}
	}

	keep := minKeep
	if above > keep {
		keep = above
	}
	if keep > len(sorted) {
		keep = len(sorted)
	}
	if keep < 0 {
		keep = 0
	}

	return sorted[:keep]
}
