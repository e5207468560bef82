package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "snake case",
			input: "calculate_bmi",
			want:  []string{"calculate", "bmi"},
		},
		{
			name:  "camel case",
			input: "parseJsonString",
			want:  []string{"parse", "json", "string"},
		},
		{
			name:  "mixed code line",
			input: "def compute_weight_ratio(w, h):",
			want:  []string{"def", "compute", "weight", "ratio"},
		},
		{
			name:  "capital run stays together",
			input: "HTTPServer",
			want:  []string{"httpserver"},
		},
		{
			name:  "digits split from letters",
			input: "sha256sum",
			want:  []string{"sha", "256", "sum"},
		},
		{
			name:  "single chars dropped",
			input: "a = b + c",
			want:  []string{},
		},
		{
			name:  "empty",
			input: "",
			want:  []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.input)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestTokenizeLowercases(t *testing.T) {
	for _, tok := range Tokenize("QueryEmbeddingCache") {
		for _, r := range tok {
			if r >= 'A' && r <= 'Z' {
				t.Fatalf("token %q not lowercased", tok)
			}
		}
	}
}
