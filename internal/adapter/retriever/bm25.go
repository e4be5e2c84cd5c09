package retriever

import (
	"math"

	"omsearch/internal/adapter/analyzer"
	"omsearch/internal/adapter/catalog"
)

// BM25Index scores symbols lexically against their description cards using
// Okapi BM25. The index is built once; scoring returns one value per symbol
// in catalogue order so the fusion step can rank the full vector.
type BM25Index struct {
	catalog   *catalog.Catalog
	tokenizer *analyzer.Tokenizer
	k1        float64
	b         float64

	termFreqs []map[string]int // per symbol, catalogue order
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
}

// NewBM25Index builds the lexical index over the catalog's description
// cards. Symbols with an empty card get an empty token list and simply
// contribute nothing.
func NewBM25Index(cat *catalog.Catalog, tokenizer *analyzer.Tokenizer, k1, b float64) *BM25Index {
	if k1 <= 0 {
		k1 = 1.2
	}
	if b < 0 || b > 1 {
		b = 0.75
	}

	idx := &BM25Index{
		catalog:   cat,
		tokenizer: tokenizer,
		k1:        k1,
		b:         b,
		docFreq:   make(map[string]int),
	}

	symbols := cat.Symbols()
	idx.termFreqs = make([]map[string]int, len(symbols))
	idx.docLens = make([]int, len(symbols))

	totalLen := 0
	for i, sym := range symbols {
		tokens := tokenizer.Tokenize(analyzer.StripAsymptote(catalog.DescriptionCard(sym)))
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for term := range tf {
			idx.docFreq[term]++
		}
	}

	if len(symbols) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(symbols))
	}

	return idx
}

// ScoreAll returns one BM25 score per symbol in catalogue order. Symbols
// with no overlapping tokens score exactly 0; an empty index yields an
// all-zero vector.
func (x *BM25Index) ScoreAll(query string, expand bool) []float64 {
	scores := make([]float64, len(x.termFreqs))
	if len(x.termFreqs) == 0 || x.avgDocLen == 0 {
		return scores
	}

	if expand {
		query = ExpandQuery(query, x.catalog.NameIndex())
	}
	queryTokens := x.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return scores
	}

	n := float64(len(x.termFreqs))
	for _, term := range queryTokens {
		df := float64(x.docFreq[term])
		if df == 0 {
			continue
		}
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)

		for i, tf := range x.termFreqs {
			count, ok := tf[term]
			if !ok {
				continue
			}
			freq := float64(count)
			dl := float64(x.docLens[i])
			scores[i] += idf * (freq * (x.k1 + 1)) / (freq + x.k1*(1-x.b+x.b*dl/x.avgDocLen))
		}
	}

	return scores
}
