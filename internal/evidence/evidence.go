// Package evidence turns ranked items into the bounded evidence packs an
// answer is generated from, and summarizes how strong that evidence is.
package evidence

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rcliao/askfolio/internal/model"
)

// Limits on one evidence pack.
const (
	MaxSummary   = 300 // runes
	MaxSpecifics = 3
	MaxMetrics   = 3
)

// Assemble builds one pack per item, ranked 1..n in input order.
func Assemble(ranked []model.Item) []model.EvidencePack {
	packs := make([]model.EvidencePack, 0, len(ranked))
	for i, it := range ranked {
		b := it.Core()
		p := model.EvidencePack{
			ID:      b.ID,
			Kind:    b.Kind,
			Title:   it.DisplayName(),
			Summary: Truncate(b.Summary, MaxSummary),
			Dates:   model.DateLabel(it),
			Skills:  append([]string(nil), b.Skills...),
			URL:     b.URL,
			Rank:    i + 1,
		}
		if len(b.Specifics) > 0 {
			n := min(len(b.Specifics), MaxSpecifics)
			p.Specifics = append([]string(nil), b.Specifics[:n]...)
		}
		p.Metrics = ExtractMetrics(append([]string{b.Summary}, b.Specifics...)...)
		packs = append(packs, p)
	}
	return packs
}

// Truncate cuts s to at most n runes on a rune boundary, marking the cut
// with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:n-1]), " ,;:") + "…"
}

var metricPatterns = []*regexp.Regexp{
	// currency
	regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d+)?\s?(?:[kKmMbB]\b|million\b|billion\b|thousand\b)?`),
	// percentages
	regexp.MustCompile(`\d+(?:\.\d+)?\s?%`),
	// count phrases
	regexp.MustCompile(`\b\d[\d,]*\+?\s(?:users|customers|requests|events|students|downloads|stars|engineers|teams|services|people|members|clients|queries|tickets|countries)\b`),
	// large-number suffixes
	regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:[kKmMbB]|million|billion|thousand)\b`),
	// multipliers
	regexp.MustCompile(`\b\d+(?:\.\d+)?x\b`),
}

type span struct{ start, end int }

// ExtractMetrics returns up to MaxMetrics quantitative phrases found in
// texts, in order of appearance, without duplicates.
func ExtractMetrics(texts ...string) []string {
	var out []string
	seen := map[string]bool{}
	for _, text := range texts {
		var spans []span
		for _, re := range metricPatterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				spans = append(spans, span{loc[0], loc[1]})
			}
		}
		sort.Slice(spans, func(i, j int) bool {
			if spans[i].start != spans[j].start {
				return spans[i].start < spans[j].start
			}
			return spans[i].end > spans[j].end
		})
		last := -1
		for _, s := range spans {
			if s.start < last {
				continue
			}
			last = s.end
			m := strings.TrimSpace(text[s.start:s.end])
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
			if len(out) == MaxMetrics {
				return out
			}
		}
	}
	return out
}

// Latest returns the most recent date an item touches. A class counts as
// the end of its term year.
func Latest(it model.Item, now time.Time) (time.Time, bool) {
	if span, ok := it.Span(); ok {
		return span.Latest(now)
	}
	if y, ok := model.TermYear(it); ok {
		return time.Date(y, time.December, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// MonthsSince counts whole months from t to now, never negative.
func MonthsSince(t, now time.Time) int {
	m := (now.Year()-t.Year())*12 + int(now.Month()) - int(t.Month())
	if m < 0 {
		return 0
	}
	return m
}

// Signals summarizes the strength of a set of packs.
type Signals struct {
	EvidenceCount int  `json:"evidence_count"`
	HasMetrics    bool `json:"has_metrics"`
	// FreshnessMonths is the age of the most recent dated item, -1 when
	// nothing is dated.
	FreshnessMonths int `json:"freshness_months"`
	// Coverage is the share of packs carrying a summary and at least one
	// specific.
	Coverage float64 `json:"coverage"`
	// EntityLink is set when some pack points at an organization or URL.
	EntityLink bool `json:"entity_link"`
	// Thin evidence lets the answer steer toward contacting the subject.
	Thin bool `json:"thin"`
}

// Lookup resolves an id to its item.
type Lookup func(id string) (model.Item, bool)

// Compute derives signals for packs.
func Compute(packs []model.EvidencePack, lookup Lookup, now time.Time) Signals {
	s := Signals{EvidenceCount: len(packs), FreshnessMonths: -1}
	covered := 0
	for _, p := range packs {
		if len(p.Metrics) > 0 {
			s.HasMetrics = true
		}
		if p.Summary != "" && len(p.Specifics) > 0 {
			covered++
		}
		if p.URL != "" {
			s.EntityLink = true
		}
		it, ok := lookup(p.ID)
		if !ok {
			continue
		}
		if it.Org() != "" {
			s.EntityLink = true
		}
		if t, ok := Latest(it, now); ok {
			if m := MonthsSince(t, now); s.FreshnessMonths < 0 || m < s.FreshnessMonths {
				s.FreshnessMonths = m
			}
		}
	}
	if len(packs) > 0 {
		s.Coverage = float64(covered) / float64(len(packs))
	}
	s.Thin = s.EvidenceCount == 0 || (s.EvidenceCount == 1 && s.Coverage == 0 && !s.HasMetrics)
	return s
}
