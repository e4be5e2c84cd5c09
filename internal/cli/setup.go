package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"omsearch/config"
	"omsearch/internal/adapter/analyzer"
	"omsearch/internal/adapter/catalog"
	"omsearch/internal/adapter/embedding"
	"omsearch/internal/adapter/rerank"
	"omsearch/internal/adapter/retriever"
	"omsearch/internal/adapter/scorer"
	"omsearch/internal/port"
	"omsearch/internal/usecase"
)

func newEmbedder(cfg *config.Config) port.Embedder {
	return embedding.NewClient(embedding.Config{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		Timeout: time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
}

func newScorer(cfg *config.Config) (port.PairwiseScorer, error) {
	timeout := time.Duration(cfg.Rerank.TimeoutSeconds) * time.Second
	switch cfg.Rerank.Backend {
	case "score":
		return scorer.NewScoreClient(scorer.Config{
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
			Timeout: timeout,
		}), nil
	case "chat":
		return scorer.NewChatScorer(scorer.ChatConfig{
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
			Timeout: timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown rerank backend: %q (use \"score\" or \"chat\")", cfg.Rerank.Backend)
	}
}

// buildPipeline loads the catalogue, warms the symbol-embedding cache, and
// wires the retrieval pipeline. Slow cache recomputation shows a progress
// bar.
func buildPipeline(ctx context.Context, cfg *config.Config, withReranker bool) (*usecase.Pipeline, error) {
	cat, err := catalog.Load(cfg.Catalog.Path, cfg.Catalog.FilterNonMath)
	if err != nil {
		return nil, err
	}

	embedder := newEmbedder(cfg)
	tokenizer := analyzer.NewTokenizer()
	bm25 := retriever.NewBM25Index(cat, tokenizer, cfg.Retrieve.K1, cfg.Retrieve.B)

	var bar *progressbar.ProgressBar
	vectors, err := retriever.NewVectorStore(ctx, cat, embedder, retriever.VectorStoreOptions{
		CachePath: config.EmbeddingCachePath(cfg.Catalog.Path, embedder.ModelName()),
		RateDelay: time.Duration(cfg.Embedding.RateDelayMS) * time.Millisecond,
		Progress: func(done, total int) {
			if bar == nil {
				bar = newBar(total, "Embedding symbols")
			}
			_ = bar.Set(done)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build vector store: %w", err)
	}

	hr := retriever.NewHybridRetriever(cat, bm25, vectors, embedder, cfg.Retrieve.RRFK)

	var rr *rerank.Reranker
	if withReranker {
		sc, err := newScorer(cfg)
		if err != nil {
			return nil, err
		}
		if hc, ok := sc.(*scorer.ScoreClient); ok {
			if err := hc.Healthy(ctx); err != nil {
				slog.Warn("scoring server health check failed", "base_url", cfg.Rerank.BaseURL, "error", err)
			}
		}
		rr = rerank.New(sc, cfg.Rerank.Threshold, cfg.Rerank.MinKeep,
			rerank.WithRateDelay(time.Duration(cfg.Rerank.RateDelayMS)*time.Millisecond))
	}

	return usecase.New(cat, hr, rr), nil
}

func retrieveOptions(cfg *config.Config, topK int) retriever.Options {
	opts := retriever.Options{
		TopK:           cfg.Retrieve.TopK,
		BM25Weight:     cfg.Retrieve.BM25Weight,
		DenseWeight:    cfg.Retrieve.DenseWeight,
		MinScore:       cfg.Retrieve.MinScore,
		RequireMapping: cfg.Retrieve.RequireMapping,
		ExpandQuery:    cfg.Retrieve.ExpandQuery,
		Dedup:          cfg.Retrieve.Dedup,
	}
	if topK > 0 {
		opts.TopK = topK
	}
	return opts
}

func rateDelay(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}
