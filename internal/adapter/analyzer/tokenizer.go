package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase tokens with stopword removal.
// Tokens are never stemmed; exact symbol names like "sin" and "gcd" must
// survive tokenization unchanged.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a Tokenizer with the default math stopword set.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: defaultStopwords()}
}

// Tokenize splits text into tokens, dropping stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	words := SplitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// SplitWords splits text on non-alphanumeric boundaries.
func SplitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// defaultStopwords returns the fixed stopword set: generic English function
// words plus imperative words that appear in nearly every math problem
// statement ("find", "calculate", ...) and dilute scores without
// discriminating.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"find", "calculate", "compute", "solve", "determine", "evaluate",
		"what", "which", "how", "many", "much", "value", "answer",
		"the", "a", "an", "of", "to", "in", "for", "is", "are", "on",
		"that", "by", "this", "with", "and", "or", "if", "then",
		"given", "let", "show", "prove", "express", "simplify",
		"it", "its", "be", "been", "being", "has", "have", "had",
		"do", "does", "did", "will", "would", "could", "should",
		"can", "may", "might", "must", "shall",
		"all", "each", "every", "some", "any", "no", "not",
		"number", "numbers", "total", "result",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
