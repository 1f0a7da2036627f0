// Package filter derives structured filters from a query and applies them
// to the catalog to compute the candidate set retrieval is restricted to.
package filter

import (
	"slices"
	"time"

	"github.com/rcliao/askfolio/internal/alias"
	"github.com/rcliao/askfolio/internal/model"
)

// DeriveInput is everything filter derivation looks at.
type DeriveInput struct {
	Query    string // normalized
	Intent   model.Intent
	Explicit *model.QueryFilter // from the caller
	// Classified holds the model classifier's filters. They fill what the
	// caller left empty, but a type or company guessed next to a title
	// never narrows the title lookup.
	Classified *model.QueryFilter
	Hints      *model.QueryFilter // from the pre-router
	Matches    []alias.Match
	// Items, when set, are checked for how many of them a title not
	// chosen by the caller refers to.
	Items []model.Item
	Now   time.Time
}

// Derived is the outcome of filter derivation.
type Derived struct {
	Filters *model.QueryFilter
	// Ambiguous holds the candidate ids when one entity mention resolves to
	// several items; no filter is guessed in that case.
	Ambiguous []string
	// Inferred names the dimensions filled by inference.
	Inferred []string
}

// Derive merges explicit filters, classifier filters, pre-router hints and
// alias matches. Explicit values always win, classifier and hint values
// fill empty dimensions, and inference fills the rest.
func Derive(in DeriveInput) Derived {
	f := in.Explicit.Clone()
	if f == nil {
		f = &model.QueryFilter{}
	}
	callerTitle := f.TitleMatch != ""
	mergeHints(f, in.Classified)
	mergeHints(f, in.Hints)

	var d Derived
	if in.Intent == model.IntentContact {
		return Derived{Filters: f}
	}

	if f.TitleMatch != "" && !callerTitle && in.Items != nil {
		ids := TitleCandidates(in.Items, f.TitleMatch)
		switch {
		case len(ids) >= 2:
			d.Ambiguous = ids
			d.Filters = f
			return d
		case len(ids) == 1 && ids[0] != f.TitleMatch:
			f.TitleMatch = ids[0]
			d.Inferred = append(d.Inferred, "title_match")
		}
	}

	entity := in.Intent == model.IntentSpecificItem || in.Intent == model.IntentGeneral
	if entity && f.TitleMatch == "" {
		ids := strongestItems(in.Matches)
		switch {
		case len(ids) >= 2:
			d.Ambiguous = ids
			d.Filters = f
			return d
		case len(ids) == 1 && in.Intent == model.IntentSpecificItem:
			f.TitleMatch = ids[0]
			d.Inferred = append(d.Inferred, "title_match")
		}
	}

	// A title match pins the item; only the caller may narrow it further by
	// type or company.
	if f.TitleMatch != "" {
		var explicit model.QueryFilter
		if in.Explicit != nil {
			explicit = *in.Explicit
		}
		f.Types = slices.Clone(explicit.Types)
		f.Company = slices.Clone(explicit.Company)
	} else {
		if len(f.Types) == 0 {
			f.Types = InferTypes(in.Query)
			if len(f.Types) == 0 && in.Intent == model.IntentPersonal {
				f.Types = slices.Clone(personalKinds)
			}
			if len(f.Types) > 0 {
				d.Inferred = append(d.Inferred, "type")
			}
		}
		if len(f.Company) == 0 && in.Intent == model.IntentFilterQuery {
			for _, m := range in.Matches {
				if m.Org != "" && !slices.Contains(f.Company, m.Org) {
					f.Company = append(f.Company, m.Org)
				}
			}
			if len(f.Company) > 0 {
				d.Inferred = append(d.Inferred, "company")
			}
		}
	}

	if len(f.Skills) == 0 && in.Intent == model.IntentFilterQuery {
		for _, m := range in.Matches {
			if m.Entry.Kind == model.KindSkill && !slices.Contains(f.Skills, m.Entry.ID) {
				f.Skills = append(f.Skills, m.Entry.ID)
			}
		}
		if len(f.Skills) > 0 {
			d.Inferred = append(d.Inferred, "skills")
		}
	}

	if len(f.Year) == 0 {
		if f.Year = Years(in.Query); len(f.Year) > 0 {
			d.Inferred = append(d.Inferred, "year")
		}
	}

	d.Filters = f
	return d
}

func mergeHints(f, h *model.QueryFilter) {
	if h == nil {
		return
	}
	if len(f.Types) == 0 {
		f.Types = slices.Clone(h.Types)
	}
	if len(f.Skills) == 0 {
		f.Skills = slices.Clone(h.Skills)
	}
	if len(f.Company) == 0 {
		f.Company = slices.Clone(h.Company)
	}
	if len(f.Year) == 0 {
		f.Year = slices.Clone(h.Year)
	}
	if len(f.Tags) == 0 {
		f.Tags = slices.Clone(h.Tags)
	}
	if f.TitleMatch == "" {
		f.TitleMatch = h.TitleMatch
	}
	if f.Operation == "" {
		f.Operation = h.Operation
	}
	f.ShowAll = f.ShowAll || h.ShowAll
}

// strongestItems returns the distinct non-skill items matched at the
// strongest rule level, provided they all come from a single mention.
func strongestItems(ms []alias.Match) []string {
	var best []alias.Match
	for _, m := range ms {
		if m.Entry.Kind == model.KindSkill {
			continue
		}
		if len(best) == 0 || m.How == best[0].How {
			best = append(best, m)
			continue
		}
		if m.How.Stronger(best[0].How) {
			best = []alias.Match{m}
		}
	}
	if len(best) == 0 {
		return nil
	}
	terms := map[string]bool{}
	var ids []string
	for _, m := range best {
		terms[m.Term] = true
		if !slices.Contains(ids, m.Entry.ID) {
			ids = append(ids, m.Entry.ID)
		}
	}
	if len(terms) > 1 {
		// several mentions: a comparison, not an ambiguous name
		return nil
	}
	return ids
}
