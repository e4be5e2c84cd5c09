package catalog

import (
	"strings"

	"omsearch/internal/domain"
)

// The description card is derived text shared by the lexical index and the
// reranking filter. Both go through the same fallback accessors below:
// normalized fields take priority, raw fields are the fallback, never both.

func description(s domain.Symbol) string {
	if s.DescriptionNormalized != "" {
		return s.DescriptionNormalized
	}
	return s.Description
}

func properties(s domain.Symbol) []string {
	if len(s.PropertiesNormalized) > 0 {
		return s.PropertiesNormalized
	}
	return s.Properties
}

func examples(s domain.Symbol) []string {
	if len(s.ExamplesNormalized) > 0 {
		return s.ExamplesNormalized
	}
	return s.Examples
}

// DescriptionCard concatenates name, description, properties, and examples
// into the flat text the lexical index tokenizes.
func DescriptionCard(s domain.Symbol) string {
	parts := make([]string, 0, 4)
	if s.Name != "" {
		parts = append(parts, s.Name)
	}
	if desc := description(s); desc != "" {
		parts = append(parts, desc)
	}
	parts = append(parts, properties(s)...)
	parts = append(parts, examples(s)...)
	return strings.Join(parts, " ")
}

// EmbeddingText returns the text a symbol is embedded from. Symbol IDs are
// deliberately excluded; they pollute semantic similarity.
func EmbeddingText(s domain.Symbol) string {
	parts := make([]string, 0, 3)
	if desc := description(s); desc != "" {
		parts = append(parts, desc)
	}
	parts = append(parts, properties(s)...)
	parts = append(parts, examples(s)...)
	if len(parts) == 0 {
		return s.Name
	}
	return strings.Join(parts, " ")
}

// FormatCard renders a symbol as the structured text sent to the pairwise
// scorer.
func FormatCard(s domain.Symbol) string {
	parts := []string{
		"Symbol: " + s.ID,
	}
	if desc := description(s); desc != "" {
		parts = append(parts, "Description: "+desc)
	}
	if props := joinNonEmpty(properties(s)); props != "" {
		parts = append(parts, "Properties: "+props)
	}
	if exs := joinNonEmpty(examples(s)); exs != "" {
		parts = append(parts, "Examples: "+exs)
	}
	return strings.Join(parts, "\n")
}

func joinNonEmpty(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, "; ")
}
