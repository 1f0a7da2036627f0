package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// SkillResolver maps a skill term to canonical skill ids.
type SkillResolver interface {
	ResolveSkill(term string) []string
}

// Apply returns the items passing every present dimension of f, in input
// order. It is pure: items and f are never modified.
func Apply(items []model.Item, f *model.QueryFilter, skills SkillResolver) []model.Item {
	return ApplyAt(items, f, skills, time.Now())
}

// ApplyAt is Apply with an explicit clock for ongoing date ranges.
func ApplyAt(items []model.Item, f *model.QueryFilter, skills SkillResolver, now time.Time) []model.Item {
	out := append([]model.Item(nil), items...)
	if f.IsZero() {
		return out
	}
	if len(f.Types) > 0 {
		out = keep(out, func(it model.Item) bool { return f.HasType(it.ItemKind()) })
	}
	if f.TitleMatch != "" {
		out = byTitle(out, f.TitleMatch)
	}
	if len(f.Skills) > 0 {
		req := resolveSkills(f.Skills, skills)
		out = keep(out, func(it model.Item) bool { return matchValues(req, skillValues(it), f.Op()) })
	}
	if len(f.Company) > 0 {
		out = keep(out, func(it model.Item) bool { return matchCompany(it, f.Company) })
	}
	if len(f.Year) > 0 {
		out = keep(out, func(it model.Item) bool { return matchYear(it, f.Year, now) })
	}
	if len(f.Tags) > 0 {
		req := make([]requested, len(f.Tags))
		for i, t := range f.Tags {
			req[i] = requested{raw: textnorm.Normalize(t)}
		}
		out = keep(out, func(it model.Item) bool { return matchValues(req, normAll(it.Core().Tags), f.Op()) })
	}
	return out
}

// Explain names each present dimension of f that matches no item on its
// own. An empty result with a non-zero filter means only the combination
// fails.
func Explain(items []model.Item, f *model.QueryFilter, skills SkillResolver) []string {
	return ExplainAt(items, f, skills, time.Now())
}

// ExplainAt is Explain with an explicit clock.
func ExplainAt(items []model.Item, f *model.QueryFilter, skills SkillResolver, now time.Time) []string {
	if f.IsZero() {
		return nil
	}
	op := f.Operation
	var out []string
	check := func(label string, single *model.QueryFilter) {
		single.Operation = op
		if len(ApplyAt(items, single, skills, now)) == 0 {
			out = append(out, label)
		}
	}
	if len(f.Types) > 0 {
		ks := make([]string, len(f.Types))
		for i, k := range f.Types {
			ks[i] = string(k)
		}
		check("type "+strings.Join(ks, " or "), &model.QueryFilter{Types: f.Types})
	}
	if f.TitleMatch != "" {
		check(fmt.Sprintf("title %q", f.TitleMatch), &model.QueryFilter{TitleMatch: f.TitleMatch})
	}
	if len(f.Skills) > 0 {
		check("skills "+strings.Join(f.Skills, ", "), &model.QueryFilter{Skills: f.Skills})
	}
	if len(f.Company) > 0 {
		check("company "+strings.Join(f.Company, " or "), &model.QueryFilter{Company: f.Company})
	}
	if len(f.Year) > 0 {
		ys := make([]string, len(f.Year))
		for i, y := range f.Year {
			ys[i] = fmt.Sprint(y)
		}
		check("year "+strings.Join(ys, " or "), &model.QueryFilter{Year: f.Year})
	}
	if len(f.Tags) > 0 {
		check("tags "+strings.Join(f.Tags, ", "), &model.QueryFilter{Tags: f.Tags})
	}
	return out
}

func keep(items []model.Item, pred func(model.Item) bool) []model.Item {
	out := items[:0]
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// byTitle prefers an exact id match anywhere in the set, then items with a
// name equal to the title, then substring matches on names, aliases and
// organizations.
func byTitle(items []model.Item, title string) []model.Item {
	for _, it := range items {
		if it.ItemID() == title {
			return []model.Item{it}
		}
	}
	t := textnorm.Normalize(title)
	if t == "" {
		return nil
	}
	exact := keep(append([]model.Item(nil), items...), func(it model.Item) bool {
		return slices.Contains(names(it), t)
	})
	if len(exact) > 0 {
		return exact
	}
	return keep(items, func(it model.Item) bool {
		for _, name := range names(it) {
			if name != "" && strings.Contains(name, t) {
				return true
			}
		}
		return false
	})
}

// TitleCandidates returns the ids of the items title could refer to, in
// input order. Non-skill items are preferred; skills are only returned when
// nothing else matches.
func TitleCandidates(items []model.Item, title string) []string {
	var ids, skills []string
	for _, it := range byTitle(items, title) {
		if it.ItemKind() == model.KindSkill {
			skills = append(skills, it.ItemID())
			continue
		}
		ids = append(ids, it.ItemID())
	}
	if len(ids) == 0 {
		return skills
	}
	return ids
}

// names are the normalized strings a title may match, the same ones the
// alias index treats as names of the item.
func names(it model.Item) []string {
	b := it.Core()
	out := []string{textnorm.Normalize(it.DisplayName()), textnorm.Normalize(b.ID)}
	if c, ok := it.(model.Class); ok {
		out = append(out, textnorm.Normalize(c.Title), textnorm.Normalize(c.Code))
	}
	if org := it.Org(); org != "" {
		out = append(out, textnorm.Normalize(org))
	}
	for _, a := range b.Aliases {
		out = append(out, textnorm.Normalize(a))
	}
	return out
}

type requested struct {
	raw string   // normalized request
	ids []string // normalized canonical ids it resolves to
}

func resolveSkills(values []string, r SkillResolver) []requested {
	out := make([]requested, len(values))
	for i, v := range values {
		out[i] = requested{raw: textnorm.Normalize(v)}
		if r != nil {
			out[i].ids = normAll(r.ResolveSkill(v))
		}
	}
	return out
}

func skillValues(it model.Item) []string {
	return normAll(model.SkillIDs(it))
}

func normAll(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if n := textnorm.Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// matchValues applies the operation semantics to one multi-valued
// dimension. exact needs every request equal to some value. any needs one
// request overlapping some value, and contains needs every request to.
func matchValues(req []requested, values []string, op model.Operation) bool {
	if len(values) == 0 {
		return false
	}
	switch op {
	case model.OpExact:
		for _, r := range req {
			if !anyValue(values, func(v string) bool { return r.equals(v) }) {
				return false
			}
		}
		return true
	case model.OpAny:
		for _, r := range req {
			if anyValue(values, func(v string) bool { return r.equals(v) || overlaps(v, r.raw) }) {
				return true
			}
		}
		return false
	default:
		for _, r := range req {
			if !anyValue(values, func(v string) bool { return r.equals(v) || overlaps(v, r.raw) }) {
				return false
			}
		}
		return true
	}
}

func (r requested) equals(v string) bool {
	if v == r.raw {
		return true
	}
	for _, id := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}

func anyValue(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}

// minOverlap is the shortest string that may match inside another; "go"
// must not match "django".
const minOverlap = 3

// overlaps reports whether either string contains the other.
func overlaps(a, b string) bool {
	if len(a) < minOverlap || len(b) < minOverlap {
		return a != "" && a == b
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func matchCompany(it model.Item, companies []string) bool {
	org := textnorm.Normalize(it.Org())
	if org == "" {
		return false
	}
	for _, c := range companies {
		if overlaps(org, textnorm.Normalize(c)) {
			return true
		}
	}
	return false
}

func matchYear(it model.Item, years []int, now time.Time) bool {
	start, end, ok := model.YearsOf(it, now)
	term, hasTerm := model.TermYear(it)
	for _, y := range years {
		if ok && start <= y && y <= end {
			return true
		}
		if hasTerm && term == y {
			return true
		}
	}
	return false
}
