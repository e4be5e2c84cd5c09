package retriever

import (
	"sort"
	"strings"

	"omsearch/internal/adapter/analyzer"
)

// mathSynonyms maps common math phrases to the symbol names they should pull
// into the query. Hand-curated for precision; an auto-harvested table would
// drag in noise.
var mathSynonyms = map[string]string{
	// Arithmetic
	"greatest common divisor": "gcd",
	"highest common factor":   "gcd",
	"hcf":                     "gcd",
	"least common multiple":   "lcm",
	"lowest common multiple":  "lcm",
	"absolute value":          "abs",
	"modulo":                  "remainder",
	"mod":                     "remainder",
	// Trigonometry
	"sine":            "sin",
	"cosine":          "cos",
	"tangent":         "tan",
	"cotangent":       "cot",
	"secant":          "sec",
	"cosecant":        "csc",
	"inverse sine":    "arcsin",
	"inverse cosine":  "arccos",
	"inverse tangent": "arctan",
	// Logarithms and exponentials
	"logarithm":         "log",
	"natural logarithm": "ln",
	"natural log":       "ln",
	"exponential":       "exp",
	"e^x":               "exp",
	"e to the":          "exp",
	// Combinatorics
	"binomial coefficient": "binomial",
	"combination":          "binomial",
	"choose":               "binomial",
	"ncr":                  "binomial",
	"n choose k":           "binomial",
	"permutation":          "permutation",
	"factorial":            "factorial",
	"n!":                   "factorial",
	// Geometry
	"circumference": "circle",
	"diameter":      "circle",
	"perimeter":     "plus",
	// Constants
	"pi":       "pi",
	"euler":    "e",
	"infinity": "infinity",
	// Relations
	"equals":                "eq",
	"equal to":              "eq",
	"less than":             "lt",
	"greater than":          "gt",
	"less than or equal":    "leq",
	"greater than or equal": "geq",
	"not equal":             "neq",
	// Calculus
	"derivative":        "diff",
	"differentiate":     "diff",
	"integral":          "int",
	"integrate":         "int",
	"definite integral": "defint",
	// Algebra
	"square root": "root",
	"sqrt":        "root",
	"cube root":   "root",
	"power":       "power",
	"exponent":    "power",
	"raised to":   "power",
}

// ExpandQuery appends symbol names to the query when the query mentions them
// by synonym phrase or as an exact whole word. Each name is appended at most
// once, in sorted order so expansion is deterministic. The original query
// string is never modified.
func ExpandQuery(query string, nameIndex map[string][]string) string {
	queryLower := strings.ToLower(query)

	expanded := make(map[string]struct{})

	for phrase, name := range mathSynonyms {
		if strings.Contains(queryLower, phrase) {
			expanded[name] = struct{}{}
		}
	}

	// Whole-word matches against known symbol names ("sin" must not match
	// inside "using").
	queryWords := make(map[string]struct{})
	for _, w := range analyzer.SplitWords(queryLower) {
		queryWords[w] = struct{}{}
	}
	for name := range nameIndex {
		if _, ok := queryWords[name]; ok {
			expanded[name] = struct{}{}
		}
	}

	if len(expanded) == 0 {
		return query
	}

	terms := make([]string, 0, len(expanded))
	for name := range expanded {
		terms = append(terms, name)
	}
	sort.Strings(terms)

	return query + " " + strings.Join(terms, " ")
}
