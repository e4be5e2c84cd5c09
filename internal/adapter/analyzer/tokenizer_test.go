package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenizeDropsStopwords(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("Find the greatest common divisor of 48 and 18")

	want := []string{"greatest", "common", "divisor", "48", "18"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize() = %v, want %v", tokens, want)
	}
}

func TestTokenizeNoStemming(t *testing.T) {
	tok := NewTokenizer()

	// Symbol names must survive exactly: "sine" and "sin" are different
	// tokens and stemming would collapse them.
	tokens := tok.Tokenize("sine sines sin")
	want := []string{"sine", "sines", "sin"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize() = %v, want %v", tokens, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	tok := NewTokenizer()

	if got := tok.Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
	if got := tok.Tokenize("the of and"); len(got) != 0 {
		t.Errorf("Tokenize(all stopwords) = %v, want empty", got)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"x^2 + y^2 = r^2", []string{"x", "2", "y", "2", "r", "2"}},
		{"gcd(48, 18)", []string{"gcd", "48", "18"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := SplitWords(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitWords(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStripAsymptote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single block",
			input: "Triangle ABC [asy]draw((0,0)--(1,0));[/asy] has area 6.",
			want:  "Triangle ABC  has area 6.",
		},
		{
			name:  "multiline block",
			input: "Before [asy]\nline1\nline2\n[/asy] after",
			want:  "Before  after",
		},
		{
			name:  "case insensitive tags",
			input: "x [ASY]code[/ASY] y",
			want:  "x  y",
		},
		{
			name:  "two blocks",
			input: "[asy]a[/asy] mid [asy]b[/asy]",
			want:  " mid ",
		},
		{
			name:  "no block",
			input: "plain problem text",
			want:  "plain problem text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripAsymptote(tt.input); got != tt.want {
				t.Errorf("StripAsymptote(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
