// Package ranking computes offline importance scores for knowledge bases
// that ship without them.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/rcliao/askfolio/internal/evidence"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/rerank"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// Breakdown is the per-signal score of one item. Total is in [0,100].
type Breakdown struct {
	ID         string     `json:"id"`
	Kind       model.Kind `json:"kind"`
	Recency    float64    `json:"recency"`    // 0-30
	Complexity float64    `json:"complexity"` // 0-25
	Evidence   float64    `json:"evidence"`   // 0-25
	Impact     float64    `json:"impact"`     // 0-20
	Total      float64    `json:"total"`
}

var impactTerms = []string{
	"led", "launched", "shipped", "scaled", "reduced", "improved", "increased",
	"saved", "cut", "designed", "architected", "founded", "served", "migrated",
	"migration", "owned", "mentored", "production",
}

// Score rates one item.
func Score(it model.Item, now time.Time) Breakdown {
	b := it.Core()
	text := model.SearchText(it)
	out := Breakdown{
		ID:         b.ID,
		Kind:       b.Kind,
		Recency:    recency(it, now),
		Complexity: math.Min(rerank.TechnicalComplexity(text), 10) / 10 * 25,
		Evidence:   math.Min(float64(len(b.Specifics))*5, 20),
	}
	if len(evidence.ExtractMetrics(append([]string{b.Summary}, b.Specifics...)...)) > 0 {
		out.Evidence += 5
	}
	norm := textnorm.Normalize(text)
	for _, t := range impactTerms {
		if textnorm.ContainsPhrase(norm, t) {
			out.Impact += 4
		}
	}
	out.Impact = math.Min(out.Impact, 20)
	out.Total = round1(out.Recency + out.Complexity + out.Evidence + out.Impact)
	return out
}

func recency(it model.Item, now time.Time) float64 {
	t, ok := evidence.Latest(it, now)
	if !ok {
		return 10
	}
	switch m := evidence.MonthsSince(t, now); {
	case m <= 12:
		return 30
	case m <= 24:
		return 22
	case m <= 36:
		return 15
	case m <= 60:
		return 8
	default:
		return 3
	}
}

// Rank scores every non-skill item, highest first.
func Rank(items []model.Item, now time.Time) []Breakdown {
	var out []Breakdown
	for _, it := range items {
		if it.ItemKind() == model.KindSkill {
			continue
		}
		out = append(out, Score(it, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Fill returns existing plus computed rankings for every non-skill item
// existing does not cover. Existing scores are never overwritten.
func Fill(existing []model.ImportanceRanking, items []model.Item, now time.Time) []model.ImportanceRanking {
	have := make(map[string]bool, len(existing))
	out := append([]model.ImportanceRanking(nil), existing...)
	for _, r := range existing {
		have[r.ID] = true
	}
	for _, b := range Rank(items, now) {
		if have[b.ID] {
			continue
		}
		out = append(out, model.ImportanceRanking{ID: b.ID, Kind: b.Kind, Score: b.Total})
	}
	return out
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
