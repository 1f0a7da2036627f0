package textnorm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World!", "hello world"},
		{"  Café   Résumé ", "cafe resume"},
		{"sentence_transformers", "sentence transformers"},
		{"What's C++ vs. C#?", "what s c++ vs c#"},
		{"Veson-Nautical (2022)", "veson nautical 2022"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTerms(t *testing.T) {
	got := Terms("Tell me about the projects you built with Go")
	want := []string{"projects", "built", "go"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Terms mismatch (-want +got):\n%s", diff)
	}
}

func TestContainsPhrase(t *testing.T) {
	if !ContainsPhrase("what is veson", "veson") {
		t.Error("expected whole-word match")
	}
	if ContainsPhrase("golang rocks", "go") {
		t.Error("matched inside a word")
	}
	if !ContainsAny("show all projects", "every", "show all") {
		t.Error("expected phrase match")
	}
}

func TestSingular(t *testing.T) {
	for in, want := range map[string]string{
		"transformers": "transformer",
		"libraries":    "library",
		"classes":      "class",
		"courses":      "course",
		"glass":        "glass",
		"go":           "go",
	} {
		if got := Singular(in); got != want {
			t.Errorf("Singular(%q) = %q, want %q", in, got, want)
		}
	}
}
