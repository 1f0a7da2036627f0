// Package textnorm normalizes text for matching: lowercase, no diacritics,
// no punctuation, single spaces.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics and punctuation, and collapses
// whitespace. Underscores become spaces so skill ids read as words.
// '+' and '#' survive so "c++" and "c#" stay distinct from "c".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens returns the words of an already normalized string.
func Tokens(norm string) []string {
	return strings.Fields(norm)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "with": true, "at": true,
	"by": true, "from": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "do": true, "does": true, "did": true, "you": true,
	"your": true, "me": true, "my": true, "i": true, "it": true, "its": true,
	"what": true, "which": true, "who": true, "how": true, "when": true,
	"where": true, "why": true, "tell": true, "about": true, "have": true,
	"has": true, "any": true, "that": true, "this": true, "there": true,
	"can": true, "some": true, "all": true, "show": true, "list": true,
}

// Terms returns the content words of s: normalized tokens minus stopwords.
func Terms(s string) []string {
	var out []string
	for _, tok := range Tokens(Normalize(s)) {
		if !stopwords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// ContainsPhrase reports whether phrase occurs in norm on word boundaries.
// Both arguments must already be normalized.
func ContainsPhrase(norm, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+norm+" ", " "+phrase+" ")
}

// ContainsAny reports whether any phrase occurs in norm on word boundaries.
func ContainsAny(norm string, phrases ...string) bool {
	for _, p := range phrases {
		if ContainsPhrase(norm, p) {
			return true
		}
	}
	return false
}

// Singular strips a simple English plural suffix.
func Singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}
