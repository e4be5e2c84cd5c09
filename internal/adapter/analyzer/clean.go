package analyzer

import "regexp"

// Asymptote blocks carry vector graphics code that pollutes both lexical
// tokenization and semantic embeddings. The same stripping is applied before
// indexing and before embedding so the two signals see identical text.
var asymptoteBlock = regexp.MustCompile(`(?is)\[asy\].*?\[/asy\]`)

// StripAsymptote removes [asy]...[/asy] blocks from text.
func StripAsymptote(text string) string {
	return asymptoteBlock.ReplaceAllString(text, "")
}
