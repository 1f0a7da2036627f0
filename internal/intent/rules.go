package intent

import (
	"github.com/rcliao/askfolio/internal/filter"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// Rule is one deterministic pre-router rule over a normalized query.
type Rule struct {
	Name  string
	Match func(norm string) bool
	Build func(norm string) Classification
}

var (
	listPhrases = []string{
		"list", "show all", "show me all", "every", "all of your", "all your",
		"what are all", "enumerate",
	}
	evaluativePhrases = []string{
		"best", "strongest", "top", "most impressive", "what makes", "vs",
		"versus", "compare", "comparison", "proudest", "most proud",
	}
	contactPhrases = []string{
		"hire", "hiring", "available for", "contact", "reach you", "email you",
		"get in touch", "your email", "your resume",
	}
)

// Rules is evaluated in order; the first match wins.
var Rules = []Rule{
	{
		Name:  "list",
		Match: func(norm string) bool { return textnorm.ContainsAny(norm, listPhrases...) },
		Build: func(norm string) Classification {
			return Classification{
				Intent: model.IntentFilterQuery,
				Filters: &model.QueryFilter{
					Types:   filter.InferTypes(norm),
					ShowAll: true,
				},
			}
		},
	},
	{
		Name:  "evaluative",
		Match: func(norm string) bool { return textnorm.ContainsAny(norm, evaluativePhrases...) },
		Build: func(string) Classification {
			return Classification{Intent: model.IntentGeneral, Evaluative: true}
		},
	},
	{
		Name:  "contact",
		Match: func(norm string) bool { return textnorm.ContainsAny(norm, contactPhrases...) },
		Build: func(string) Classification {
			return Classification{Intent: model.IntentContact}
		},
	},
}

// PreRoute runs Rules over an already normalized query.
func PreRoute(norm string) (Classification, bool) {
	for _, r := range Rules {
		if r.Match(norm) {
			c := r.Build(norm)
			c.AboutSubject = true
			c.Source = SourceRule
			c.Rule = r.Name
			return c, true
		}
	}
	return Classification{}, false
}

// IsEvaluative reports whether a query asks for a judgement across items.
func IsEvaluative(norm string) bool {
	return textnorm.ContainsAny(norm, evaluativePhrases...)
}
