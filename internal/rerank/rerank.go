// Package rerank adjusts retrieval scores with temporal, technical and
// importance signals and diversifies the final list by kind.
//
// Every boost sets its own factor on the Scored entries and recomputes
// Score from Semantic and all factors, so boosts never compound: applying
// one twice gives the same list as applying it once.
package rerank

import (
	"sort"
	"time"

	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/retrieval"
)

// Scored is one candidate with its score components.
type Scored struct {
	ID       string     `json:"id"`
	Kind     model.Kind `json:"kind"`
	Semantic float64    `json:"semantic"`
	// Temporal and Technical are multipliers on Semantic; zero reads as 1.
	Temporal  float64 `json:"temporal"`
	Technical float64 `json:"technical"`
	// Importance is the offline score in [0,100]. It only counts once
	// ImportanceWeight is set.
	Importance       float64 `json:"importance"`
	ImportanceWeight float64 `json:"importance_weight"`
	Score            float64 `json:"score"`
}

// Lookup resolves an id to its item.
type Lookup func(id string) (model.Item, bool)

// FromHits turns retrieval hits into scored entries in hit order.
func FromHits(hits []retrieval.Hit, lookup Lookup) []Scored {
	out := make([]Scored, 0, len(hits))
	for _, h := range hits {
		s := Scored{ID: h.ID, Semantic: h.Score, Temporal: 1, Technical: 1, Score: h.Score}
		if it, ok := lookup(h.ID); ok {
			s.Kind = it.ItemKind()
		}
		out = append(out, s)
	}
	return out
}

// IDs returns the ids in list order.
func IDs(list []Scored) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func factor(f float64) float64 {
	if f == 0 {
		return 1
	}
	return f
}

func (s Scored) boosted() float64 {
	return s.Semantic * factor(s.Temporal) * factor(s.Technical)
}

// recompute derives Score for every entry and sorts best first, ties by id.
func recompute(list []Scored) []Scored {
	lo, hi := 0.0, 0.0
	for i, s := range list {
		b := s.boosted()
		if i == 0 || b < lo {
			lo = b
		}
		if i == 0 || b > hi {
			hi = b
		}
	}
	for i := range list {
		s := &list[i]
		b := s.boosted()
		if s.ImportanceWeight <= 0 {
			s.Score = b
			continue
		}
		norm := 1.0
		if hi > lo {
			norm = (b - lo) / (hi - lo)
		}
		s.Score = (1-s.ImportanceWeight)*norm + s.ImportanceWeight*s.Importance/100
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func clone(list []Scored) []Scored {
	return append([]Scored(nil), list...)
}

// Temporal multiplies by closeness of the item's years to the nearest
// hinted year: 1.25 inside, 1.12 one year away, 1.05 within two.
func Temporal(list []Scored, lookup Lookup, hints []int, now time.Time) []Scored {
	out := clone(list)
	for i := range out {
		out[i].Temporal = 1
		if len(hints) == 0 {
			continue
		}
		it, ok := lookup(out[i].ID)
		if !ok {
			continue
		}
		if d, ok := yearDistance(it, hints, now); ok {
			out[i].Temporal = temporalFactor(d)
		}
	}
	return recompute(out)
}

func temporalFactor(distance int) float64 {
	switch {
	case distance == 0:
		return 1.25
	case distance == 1:
		return 1.12
	case distance <= 2:
		return 1.05
	}
	return 1
}

// yearDistance is the smallest gap between any hinted year and the item's
// span, 0 when a hint falls inside it.
func yearDistance(it model.Item, hints []int, now time.Time) (int, bool) {
	start, end, ok := model.YearsOf(it, now)
	if !ok {
		y, has := model.TermYear(it)
		if !has {
			return 0, false
		}
		start, end = y, y
	}
	best := -1
	for _, h := range hints {
		d := 0
		switch {
		case h < start:
			d = start - h
		case h > end:
			d = h - end
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best, true
}

// Technical boosts experience items by the technical depth of their text,
// and only for technical queries; otherwise it resets the factor.
func Technical(list []Scored, lookup Lookup, query string) []Scored {
	out := clone(list)
	technical := IsTechnicalQuery(query)
	for i := range out {
		out[i].Technical = 1
		if !technical || out[i].Kind != model.KindExperience {
			continue
		}
		if it, ok := lookup(out[i].ID); ok {
			c := TechnicalComplexity(model.SearchText(it))
			if c > 10 {
				c = 10
			}
			out[i].Technical = 1 + 0.3*c/10
		}
	}
	return recompute(out)
}

// Importance weights for blending offline importance into the score.
const (
	ImportanceWeightDefault    = 0.2
	ImportanceWeightEvaluative = 0.6
)

// Importance blends min-max normalized boosted scores with importance:
// Score = (1-w)*norm + w*importance/100, with w = 0.6 for evaluative
// queries and 0.2 otherwise.
func Importance(list []Scored, rankings map[string]float64, evaluative bool) []Scored {
	w := ImportanceWeightDefault
	if evaluative {
		w = ImportanceWeightEvaluative
	}
	out := clone(list)
	for i := range out {
		out[i].Importance = rankings[out[i].ID]
		out[i].ImportanceWeight = w
	}
	return recompute(out)
}

// Default diversification limits.
var DefaultQuotas = map[model.Kind]int{
	model.KindProject:    3,
	model.KindExperience: 2,
}

const DefaultTotal = 6

// Diversify fills the per-kind quotas in rank order, then tops up to total
// by rank. The result keeps rank order.
func Diversify(list []Scored, quotas map[model.Kind]int, total int) []Scored {
	if quotas == nil {
		quotas = DefaultQuotas
	}
	if total <= 0 {
		total = DefaultTotal
	}
	left := make(map[model.Kind]int, len(quotas))
	for k, n := range quotas {
		left[k] = n
	}

	picked := make([]bool, len(list))
	n := 0
	for i, s := range list {
		if n == total {
			break
		}
		if left[s.Kind] > 0 {
			left[s.Kind]--
			picked[i] = true
			n++
		}
	}
	for i := range list {
		if n == total {
			break
		}
		if !picked[i] {
			picked[i] = true
			n++
		}
	}

	out := make([]Scored, 0, n)
	for i, s := range list {
		if picked[i] {
			out = append(out, s)
		}
	}
	return out
}

// Options drives a full rerank pass.
type Options struct {
	Query      string
	Hints      []int
	Rankings   map[string]float64
	Evaluative bool
	Now        time.Time
}

// Rerank applies the temporal, technical and importance boosts.
func Rerank(list []Scored, lookup Lookup, opts Options) []Scored {
	out := Temporal(list, lookup, opts.Hints, opts.Now)
	out = Technical(out, lookup, opts.Query)
	return Importance(out, opts.Rankings, opts.Evaluative)
}
