// Package alias resolves the entities and skills a query mentions to
// canonical item ids.
package alias

import (
	"sort"
	"strings"

	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// How names the rule that produced a match.
type How string

const (
	HowExact    How = "exact"
	HowBoundary How = "boundary"
	HowToken    How = "token"
)

// strength orders rules, strongest first.
func (h How) strength() int {
	switch h {
	case HowExact:
		return 0
	case HowBoundary:
		return 1
	}
	return 2
}

// Stronger reports whether h is a stronger rule than o.
func (h How) Stronger(o How) bool { return h.strength() < o.strength() }

// Match is one entity found in a query.
type Match struct {
	Entry model.AliasEntry
	Term  string // normalized name or alias that matched
	How   How
	// Org is set when the match came from the item's organization.
	Org string
}

// minToken is the shortest candidate token matched on its own, and the
// shortest name matched as a plain substring.
const minToken = 4

// generic words never identify a single entity on their own.
var generic = map[string]bool{
	"engineer": true, "engineering": true, "software": true, "senior": true,
	"junior": true, "developer": true, "manager": true, "intern": true,
	"lead": true, "staff": true, "principal": true, "project": true,
	"projects": true, "work": true, "team": true, "university": true,
	"school": true, "college": true, "about": true, "introduction": true,
	"science": true, "computer": true, "systems": true, "system": true,
}

type entry struct {
	model.AliasEntry
	terms []string // normalized, deduplicated
	org   string
	norg  string
}

type skillEntry struct {
	id    string
	names []string // normalized
}

// Index is an immutable alias table built once per catalog.
type Index struct {
	entries []entry
	skills  []skillEntry
}

// Build derives one alias entry per item, plus a skill entry for every
// skill id items reference without a skill item of their own.
func Build(items []model.Item) *Index {
	idx := &Index{}
	known := make(map[string]bool, len(items))
	skillSeen := make(map[string]bool)

	for _, it := range items {
		known[it.ItemID()] = true
	}
	for _, it := range items {
		b := it.Core()
		e := model.AliasEntry{
			ID:            b.ID,
			Kind:          b.Kind,
			CanonicalName: it.DisplayName(),
			Aliases:       append([]string(nil), b.Aliases...),
		}
		if org := it.Org(); org != "" {
			e.Aliases = append(e.Aliases, org)
		}
		switch v := it.(type) {
		case model.Class:
			e.Aliases = append(e.Aliases, v.Title, v.Code)
		case model.Skill:
			e.Aliases = append(e.Aliases, v.Name, strings.ReplaceAll(b.ID, "_", " "))
			skillSeen[b.ID] = true
		}
		ne := newEntry(e)
		ne.org, ne.norg = it.Org(), textnorm.Normalize(it.Org())
		idx.entries = append(idx.entries, ne)
	}

	// Skill ids known only from skills lists.
	for _, it := range items {
		for _, sk := range it.Core().Skills {
			if skillSeen[sk] || known[sk] {
				continue
			}
			skillSeen[sk] = true
			name := strings.ReplaceAll(sk, "_", " ")
			idx.entries = append(idx.entries, newEntry(model.AliasEntry{
				ID: sk, Kind: model.KindSkill, CanonicalName: name,
			}))
		}
	}

	for _, e := range idx.entries {
		if e.Kind == model.KindSkill {
			idx.skills = append(idx.skills, skillEntry{id: e.ID, names: e.terms})
		}
	}
	return idx
}

func newEntry(e model.AliasEntry) entry {
	seen := map[string]bool{}
	var terms []string
	for _, s := range append([]string{e.CanonicalName}, e.Aliases...) {
		n := textnorm.Normalize(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		terms = append(terms, n)
	}
	return entry{AliasEntry: e, terms: terms}
}

// Entries returns every alias entry in catalog order.
func (idx *Index) Entries() []model.AliasEntry {
	out := make([]model.AliasEntry, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.AliasEntry
	}
	return out
}

// Resolve returns the entities mentioned by an already normalized query,
// strongest rule first, then longest matching term.
func (idx *Index) Resolve(norm string) []Match {
	if idx == nil || norm == "" {
		return nil
	}
	padded := " " + norm + " "
	queryTokens := map[string]bool{}
	for _, tok := range textnorm.Tokens(norm) {
		queryTokens[tok] = true
		queryTokens[textnorm.Singular(tok)] = true
	}

	var out []Match
	for _, e := range idx.entries {
		if m, ok := matchEntry(e, padded, queryTokens); ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.How != b.How {
			return a.How.Stronger(b.How)
		}
		if len(a.Term) != len(b.Term) {
			return len(a.Term) > len(b.Term)
		}
		return a.Entry.ID < b.Entry.ID
	})
	return out
}

func matchEntry(e entry, padded string, queryTokens map[string]bool) (Match, bool) {
	m, ok := match(e, padded, queryTokens)
	if ok && e.norg != "" && textnorm.ContainsPhrase(e.norg, m.Term) {
		m.Org = e.org
	}
	return m, ok
}

func match(e entry, padded string, queryTokens map[string]bool) (Match, bool) {
	// exact: the whole name, starting on a word boundary
	for _, t := range e.terms {
		if len(t) >= minToken && strings.Contains(padded, " "+t) {
			return Match{Entry: e.AliasEntry, Term: t, How: HowExact}, true
		}
	}
	// boundary: short names only as whole words
	for _, t := range e.terms {
		if len(t) < minToken && strings.Contains(padded, " "+t+" ") {
			return Match{Entry: e.AliasEntry, Term: t, How: HowBoundary}, true
		}
	}
	// token: any distinctive word of a name
	for _, t := range e.terms {
		for _, tok := range textnorm.Tokens(t) {
			if len(tok) < minToken || generic[tok] {
				continue
			}
			if queryTokens[tok] || queryTokens[textnorm.Singular(tok)] {
				return Match{Entry: e.AliasEntry, Term: tok, How: HowToken}, true
			}
		}
	}
	return Match{}, false
}

// ResolveSkill maps a free-form skill term to canonical skill ids. Plural
// and singular forms match each other, and a name containing the term (or
// contained in it) matches when the shorter side has at least four letters.
func (idx *Index) ResolveSkill(term string) []string {
	if idx == nil {
		return nil
	}
	t := textnorm.Normalize(term)
	if t == "" {
		return nil
	}
	ts := singularPhrase(t)

	var out []string
	for _, sk := range idx.skills {
		for _, name := range sk.names {
			if skillNameMatches(name, t, ts) {
				out = append(out, sk.id)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func skillNameMatches(name, t, ts string) bool {
	if name == t {
		return true
	}
	ns := singularPhrase(name)
	if ns == ts {
		return true
	}
	shorter, longer := ts, ns
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(shorter) >= minToken && strings.Contains(longer, shorter)
}

func singularPhrase(s string) string {
	toks := textnorm.Tokens(s)
	for i, tok := range toks {
		toks[i] = textnorm.Singular(tok)
	}
	return strings.Join(toks, " ")
}
