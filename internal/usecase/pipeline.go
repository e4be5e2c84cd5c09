package usecase

import (
	"context"
	"fmt"

	"omsearch/internal/adapter/catalog"
	"omsearch/internal/adapter/rerank"
	"omsearch/internal/adapter/retriever"
	"omsearch/internal/domain"
)

// Pipeline is the public surface of the retrieval core: hybrid retrieval
// feeding the reranking filter. The CLI and embedding callers compose it
// from the adapter constructors.
type Pipeline struct {
	catalog   *catalog.Catalog
	retriever *retriever.HybridRetriever
	reranker  *rerank.Reranker
}

// New assembles a pipeline. The reranker may be nil when only retrieval is
// needed.
func New(cat *catalog.Catalog, hr *retriever.HybridRetriever, rr *rerank.Reranker) *Pipeline {
	return &Pipeline{
		catalog:   cat,
		retriever: hr,
		reranker:  rr,
	}
}

// Catalog exposes the underlying symbol catalogue.
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Retrieve runs one hybrid retrieval.
func (p *Pipeline) Retrieve(ctx context.Context, query string, opts retriever.Options) (domain.RankingResult, error) {
	return p.retriever.Retrieve(ctx, query, opts)
}

// RetrieveBatch runs hybrid retrieval over a query corpus.
func (p *Pipeline) RetrieveBatch(ctx context.Context, queries map[string]string, opts retriever.BatchOptions) (map[string]domain.RankingResult, map[string]error, error) {
	return p.retriever.RetrieveBatch(ctx, queries, opts)
}

// Rerank filters one problem's candidates.
func (p *Pipeline) Rerank(ctx context.Context, problemID, problemText string, candidates []domain.Symbol) (domain.RerankResult, error) {
	if p.reranker == nil {
		return domain.RerankResult{}, fmt.Errorf("no reranker configured")
	}
	return p.reranker.Rerank(ctx, problemID, problemText, candidates, nil), nil
}

// RerankBatch filters candidates for a batch of problems.
func (p *Pipeline) RerankBatch(ctx context.Context, problems map[string]string, candidates map[string][]domain.Symbol, progress func(done, total int)) (map[string]domain.RerankResult, error) {
	if p.reranker == nil {
		return nil, fmt.Errorf("no reranker configured")
	}
	return p.reranker.RerankBatch(ctx, problems, candidates, progress)
}

// RetrieveAndRerank chains retrieval into reranking for one problem, using
// the problem text as both the retrieval query and the scoring context.
func (p *Pipeline) RetrieveAndRerank(ctx context.Context, problemID, problemText string, opts retriever.Options) (domain.RerankResult, error) {
	ranking, err := p.Retrieve(ctx, problemText, opts)
	if err != nil {
		return domain.RerankResult{}, err
	}
	return p.Rerank(ctx, problemID, problemText, ranking.Symbols)
}
