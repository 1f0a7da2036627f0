// Package chunker splits knowledge items into passages for embedding.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/rcliao/askfolio/internal/model"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// Options configures passage sizes, measured in runes.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Passage is one embeddable slice of an item.
type Passage struct {
	ItemID string
	Seq    int
	Text   string
}

// Passages returns the passages of an item. Passage 0 is the item header
// (name, summary, highlights, skills); long-form bodies follow, each
// prefixed with the display name so it stays attributable on its own.
func Passages(it model.Item, opts Options) []Passage {
	if opts.TargetSize == 0 {
		opts = DefaultOptions()
	}
	raw := model.Body(it)
	body := strings.TrimSpace(raw)
	full := model.SearchText(it)
	if body == "" || utf8.RuneCountInString(full) <= opts.MaxSize {
		return []Passage{{ItemID: it.ItemID(), Text: full}}
	}

	head := strings.TrimSpace(strings.TrimSuffix(full, raw))
	out := []Passage{{ItemID: it.ItemID(), Text: head}}
	prefix := it.DisplayName()
	for _, c := range Chunk(body, opts) {
		text := c
		if prefix != "" {
			text = prefix + "\n" + c
		}
		out = append(out, Passage{ItemID: it.ItemID(), Seq: len(out), Text: text})
	}
	return out
}

// Chunk splits text into pieces near opts.TargetSize, never above
// opts.MaxSize unless a single word is longer. Short text returns a single
// chunk.
func Chunk(text string, opts Options) []string {
	if opts.TargetSize == 0 {
		opts = DefaultOptions()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= opts.MaxSize {
		return []string{text}
	}

	var units []string
	for _, para := range splitParagraphs(text) {
		if utf8.RuneCountInString(para) <= opts.MaxSize {
			units = append(units, para)
			continue
		}
		units = append(units, splitSentences(para, opts)...)
	}
	return merge(units, opts)
}

// splitParagraphs splits on blank lines and markdown headings.
func splitParagraphs(text string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(cur, "\n")); p != "" {
			paras = append(paras, p)
		}
		cur = nil
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
			cur = append(cur, line)
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return paras
}

// splitSentences breaks an oversized paragraph on sentence ends, falling
// back to word boundaries for run-on text.
func splitSentences(para string, opts Options) []string {
	var out []string
	var b strings.Builder
	n := 0
	words := strings.Fields(para)
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if n > 0 && n+1+wl > opts.TargetSize {
			out = append(out, b.String())
			b.Reset()
			n = 0
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		b.WriteString(w)
		n += wl
		if n >= opts.TargetSize/2 && endsSentence(w) {
			out = append(out, b.String())
			b.Reset()
			n = 0
		}
	}
	if n > 0 {
		out = append(out, b.String())
	}
	return out
}

func endsSentence(w string) bool {
	return strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?")
}

// merge combines adjacent units while they stay under the target size.
func merge(units []string, opts Options) []string {
	var out []string
	acc := ""
	for _, u := range units {
		if acc == "" {
			acc = u
			continue
		}
		if utf8.RuneCountInString(acc)+2+utf8.RuneCountInString(u) <= opts.TargetSize {
			acc += "\n\n" + u
			continue
		}
		out = append(out, acc)
		acc = u
	}
	if acc != "" {
		out = append(out, acc)
	}
	return out
}
