package retriever

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"omsearch/internal/adapter/analyzer"
	"omsearch/internal/adapter/catalog"
	"omsearch/internal/adapter/embedding"
	"omsearch/internal/domain"
)

func newTestRetriever(t *testing.T, cat *catalog.Catalog) *HybridRetriever {
	t.Helper()

	embedder := embedding.NewMockEmbedder(16)
	bm25 := NewBM25Index(cat, analyzer.NewTokenizer(), 1.2, 0.75)
	vectors, err := NewVectorStore(context.Background(), cat, embedder, VectorStoreOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return NewHybridRetriever(cat, bm25, vectors, embedder, 60)
}

func TestRetrieveRanksRelevantFirst(t *testing.T) {
	cat := testCatalog()
	hr := newTestRetriever(t, cat)

	result, err := hr.Retrieve(context.Background(), "greatest common divisor of two integers", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Symbols) == 0 {
		t.Fatal("no symbols retrieved")
	}
	if result.Symbols[0].ID != "arith1:gcd" {
		t.Errorf("top symbol = %s, want arith1:gcd", result.Symbols[0].ID)
	}

	// Every returned ID carries all three scores.
	for _, id := range result.SymbolIDs {
		if _, ok := result.Scores[id]; !ok {
			t.Errorf("missing fused score for %s", id)
		}
		if _, ok := result.BM25Scores[id]; !ok {
			t.Errorf("missing bm25 score for %s", id)
		}
		if _, ok := result.DenseScores[id]; !ok {
			t.Errorf("missing dense score for %s", id)
		}
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	cat := testCatalog()
	hr := newTestRetriever(t, cat)

	a, err := hr.Retrieve(context.Background(), "sine of an angle", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := hr.Retrieve(context.Background(), "sine of an angle", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a.SymbolIDs, b.SymbolIDs) {
		t.Errorf("repeated retrieval differs: %v vs %v", a.SymbolIDs, b.SymbolIDs)
	}
	if !reflect.DeepEqual(a.Scores, b.Scores) {
		t.Errorf("repeated retrieval scores differ")
	}
}

func TestRetrieveWithVectorMatchesRetrieve(t *testing.T) {
	cat := testCatalog()
	hr := newTestRetriever(t, cat)

	query := "cosine of an angle"
	embedder := embedding.NewMockEmbedder(16)
	vec, err := embedder.Embed(context.Background(), analyzer.StripAsymptote(query))
	if err != nil {
		t.Fatal(err)
	}

	live, err := hr.Retrieve(context.Background(), query, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	cached := hr.RetrieveWithVector(query, vec, DefaultOptions())

	if !reflect.DeepEqual(live.SymbolIDs, cached.SymbolIDs) {
		t.Errorf("cached-vector path differs: %v vs %v", live.SymbolIDs, cached.SymbolIDs)
	}
	if !reflect.DeepEqual(live.Scores, cached.Scores) {
		t.Errorf("cached-vector scores differ")
	}
}

func TestRetrieveTopKLimit(t *testing.T) {
	cat := testCatalog()
	hr := newTestRetriever(t, cat)

	opts := DefaultOptions()
	opts.TopK = 2

	result, err := hr.Retrieve(context.Background(), "function of an angle", opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 2 {
		t.Errorf("got %d symbols, want 2", len(result.Symbols))
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	hr := newTestRetriever(t, testCatalog())

	for _, q := range []string{"", "   "} {
		_, err := hr.Retrieve(context.Background(), q, DefaultOptions())
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("query %q: err = %v, want ErrInvalidQuery", q, err)
		}
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	cat := testCatalog()
	bm25 := NewBM25Index(cat, analyzer.NewTokenizer(), 1.2, 0.75)
	vectors, err := NewVectorStore(context.Background(), cat, embedding.NewMockEmbedder(16), VectorStoreOptions{})
	if err != nil {
		t.Fatal(err)
	}
	hr := NewHybridRetriever(cat, bm25, vectors, &failingEmbedder{}, 60)

	_, err = hr.Retrieve(context.Background(), "anything at all", DefaultOptions())
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestRetrieveDedup(t *testing.T) {
	// Two catalogue entries share the full ID; dedup keeps one. Two CDs
	// sharing a bare name are distinct IDs and both survive.
	cat := catalog.New([]domain.Symbol{
		{ID: "arith1:gcd", Description: "greatest common divisor"},
		{ID: "arith1:gcd", Description: "greatest common divisor duplicate"},
		{ID: "arith2:gcd", Description: "greatest common divisor extension"},
	}, false)
	hr := newTestRetriever(t, cat)

	opts := DefaultOptions()
	result, err := hr.Retrieve(context.Background(), "greatest common divisor", opts)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]int)
	for _, id := range result.SymbolIDs {
		seen[id]++
	}
	if seen["arith1:gcd"] != 1 {
		t.Errorf("arith1:gcd appears %d times, want 1", seen["arith1:gcd"])
	}
	if seen["arith2:gcd"] != 1 {
		t.Errorf("arith2:gcd appears %d times, want 1 (different CD is a distinct symbol)", seen["arith2:gcd"])
	}

	opts.Dedup = false
	result, err = hr.Retrieve(context.Background(), "greatest common divisor", opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.SymbolIDs) != 3 {
		t.Errorf("without dedup got %d results, want 3", len(result.SymbolIDs))
	}
}

func TestRetrieveRequireMapping(t *testing.T) {
	cat := catalog.New([]domain.Symbol{
		{ID: "arith1:gcd", Description: "greatest common divisor", Mapping: "gcd"},
		{ID: "arith1:lcm", Description: "least common multiple"},
	}, false)
	hr := newTestRetriever(t, cat)

	opts := DefaultOptions()
	opts.RequireMapping = true

	result, err := hr.Retrieve(context.Background(), "common divisor multiple", opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, sym := range result.Symbols {
		if sym.Mapping == "" {
			t.Errorf("unmapped symbol %s returned with RequireMapping", sym.ID)
		}
	}
	if len(result.Symbols) != 1 {
		t.Errorf("got %d symbols, want 1", len(result.Symbols))
	}
}

func TestRetrieveMinScore(t *testing.T) {
	hr := newTestRetriever(t, testCatalog())

	opts := DefaultOptions()
	opts.MinScore = 1.0 // above any possible RRF sum with weights 0.5/0.5

	result, err := hr.Retrieve(context.Background(), "sine", opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 0 {
		t.Errorf("got %d symbols above impossible floor, want 0", len(result.Symbols))
	}
}

func TestRetrieveBatch(t *testing.T) {
	cat := testCatalog()
	hr := newTestRetriever(t, cat)

	queries := map[string]string{
		"p2": "cosine of an angle",
		"p1": "greatest common divisor",
	}

	results, errs, err := hr.RetrieveBatch(context.Background(), queries, BatchOptions{
		Options: DefaultOptions(),
		Progress: func(done, total int) {
			if total != 2 {
				t.Errorf("progress total = %d, want 2", total)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected per-query errors: %v", errs)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if results["p1"].Symbols[0].ID != "arith1:gcd" {
		t.Errorf("p1 top symbol = %s, want arith1:gcd", results["p1"].Symbols[0].ID)
	}
}

func TestRetrieveBatchUsesPrecomputedVectors(t *testing.T) {
	cat := testCatalog()

	embedder := embedding.NewMockEmbedder(16)
	bm25 := NewBM25Index(cat, analyzer.NewTokenizer(), 1.2, 0.75)
	vectors, err := NewVectorStore(context.Background(), cat, embedding.NewMockEmbedder(16), VectorStoreOptions{})
	if err != nil {
		t.Fatal(err)
	}
	hr := NewHybridRetriever(cat, bm25, vectors, embedder, 60)

	query := "sine of an angle"
	vecSource := embedding.NewMockEmbedder(16)
	vec, _ := vecSource.Embed(context.Background(), analyzer.StripAsymptote(query))

	embedder.Calls = 0
	results, errs, err := hr.RetrieveBatch(context.Background(),
		map[string]string{"p1": query},
		BatchOptions{
			Options: DefaultOptions(),
			Vectors: map[string][]float32{"p1": vec},
		})
	if err != nil || len(errs) != 0 {
		t.Fatalf("err=%v errs=%v", err, errs)
	}
	if embedder.Calls != 0 {
		t.Errorf("batch with precomputed vector made %d embed calls, want 0", embedder.Calls)
	}

	// Bit-identical to the live path for the same query.
	live, err := hr.Retrieve(context.Background(), query, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(live.Scores, results["p1"].Scores) {
		t.Errorf("batch scores differ from single-query scores")
	}
}

func TestRetrieveBatchRecordsPerQueryErrors(t *testing.T) {
	cat := testCatalog()
	hr := newTestRetriever(t, cat)

	queries := map[string]string{
		"good": "sine of an angle",
		"bad":  "   ",
	}

	results, errs, err := hr.RetrieveBatch(context.Background(), queries, BatchOptions{Options: DefaultOptions()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := results["good"]; !ok {
		t.Error("good query missing from results")
	}
	if !errors.Is(errs["bad"], domain.ErrInvalidQuery) {
		t.Errorf("errs[bad] = %v, want ErrInvalidQuery", errs["bad"])
	}
}

func TestRetrieveBatchCancellation(t *testing.T) {
	hr := newTestRetriever(t, testCatalog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := hr.RetrieveBatch(ctx, map[string]string{"p1": "sine"}, BatchOptions{Options: DefaultOptions()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// stubEmbedder returns fixed vectors per text, so dense ranks are exact.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 0}, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func TestRetrieveComplementarySignals(t *testing.T) {
	// One symbol wins on lexical overlap only, one on dense similarity
	// only. Fusion must surface both; neither signal alone would.
	cat := catalog.New([]domain.Symbol{
		{ID: "a:x", Name: "xsym", Description: "unit circle radius"},
		{ID: "b:y", Name: "ysym", Description: "orthonormal basis"},
		{ID: "c:z", Name: "zsym", Description: "circle"},
	}, false)

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"unit circle radius": {0.5, 0.5, 0},
		"orthonormal basis":  {0, 1, 0},
		"circle":             {1, 0, 0},
	}}

	bm25 := NewBM25Index(cat, analyzer.NewTokenizer(), 1.2, 0.75)
	vectors, err := NewVectorStore(context.Background(), cat, embedder, VectorStoreOptions{})
	if err != nil {
		t.Fatal(err)
	}
	hr := NewHybridRetriever(cat, bm25, vectors, embedder, 60)

	opts := DefaultOptions()
	opts.TopK = 2
	opts.ExpandQuery = false

	// Query vector points straight at b:y, which shares no tokens with the
	// query; a:x has the strongest lexical match.
	result := hr.RetrieveWithVector("unit circle", []float32{0, 1, 0}, opts)

	got := make(map[string]bool)
	for _, id := range result.SymbolIDs {
		got[id] = true
	}
	if !got["a:x"] {
		t.Errorf("lexical winner a:x missing from top 2: %v", result.SymbolIDs)
	}
	if !got["b:y"] {
		t.Errorf("dense winner b:y missing from top 2: %v", result.SymbolIDs)
	}
	if result.BM25Scores["b:y"] != 0 {
		t.Errorf("b:y bm25 score = %f, want 0 (no token overlap)", result.BM25Scores["b:y"])
	}
}

func TestRetrieveFusionMonotonic(t *testing.T) {
	// a:x outranks c:z on both signals, so its fused score must too.
	cat := catalog.New([]domain.Symbol{
		{ID: "a:x", Name: "xsym", Description: "unit circle radius"},
		{ID: "b:y", Name: "ysym", Description: "orthonormal basis"},
		{ID: "c:z", Name: "zsym", Description: "circle"},
	}, false)

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"unit circle radius": {0.5, 0.5, 0},
		"orthonormal basis":  {0, 1, 0},
		"circle":             {1, 0, 0},
	}}

	bm25 := NewBM25Index(cat, analyzer.NewTokenizer(), 1.2, 0.75)
	vectors, err := NewVectorStore(context.Background(), cat, embedder, VectorStoreOptions{})
	if err != nil {
		t.Fatal(err)
	}
	hr := NewHybridRetriever(cat, bm25, vectors, embedder, 60)

	opts := DefaultOptions()
	opts.ExpandQuery = false

	result := hr.RetrieveWithVector("unit circle", []float32{0, 1, 0}, opts)
	if result.Scores["a:x"] <= result.Scores["c:z"] {
		t.Errorf("a:x fused %f should exceed c:z fused %f",
			result.Scores["a:x"], result.Scores["c:z"])
	}
}

func TestRanksTieBreakByCatalogueOrder(t *testing.T) {
	r := ranks([]float64{0.5, 0.9, 0.5})

	// Highest score ranks 0; the tied pair keeps ascending-index order.
	want := []int{1, 0, 2}
	if !reflect.DeepEqual(r, want) {
		t.Errorf("ranks() = %v, want %v", r, want)
	}
}
