package scorer

import (
	"errors"
	"testing"

	"omsearch/internal/domain"
)

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  float64
		isErr bool
	}{
		{name: "json object", raw: `{"score": 0.85}`, want: 0.85},
		{name: "alternate key", raw: `{"relevance": 0.4}`, want: 0.4},
		{name: "rating key", raw: `{"rating": 0.25}`, want: 0.25},
		{name: "bare number", raw: `0.7`, want: 0.7},
		{name: "number in prose", raw: "I would rate this 0.6 out of 1", want: 0.6},
		{name: "json percentage scale", raw: `{"score": 85}`, want: 0.85},
		{name: "free text percentage", raw: "about 85", want: 0.85},
		{name: "negative clamps to zero", raw: `{"score": -2}`, want: 0},
		{name: "whitespace padded", raw: "  {\"score\": 0.5}\n", want: 0.5},
		{name: "empty", raw: "", isErr: true},
		{name: "no number", raw: "definitely relevant", isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractScore(tt.raw)
			if tt.isErr {
				if !errors.Is(err, domain.ErrMalformedResponse) {
					t.Fatalf("err = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ExtractScore(%q) = %f, want %f", tt.raw, got, tt.want)
			}
		})
	}
}
