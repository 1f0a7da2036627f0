// Package planner decides which follow-up actions to offer after an answer.
//
// The plan depends on how deep the conversation already is: early turns get
// item-specific drill-downs, later turns only a free-text follow-up, and
// past that a message to the subject. Items the user has already seen are
// never offered again.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/store"
)

// Catalog is the read-only view the planner needs.
type Catalog interface {
	Item(id string) (model.Item, bool)
	Importance(id string) float64
	Related(id string) []store.Link
}

// Config bounds the plan.
type Config struct {
	// Below SpecificCeiling depth, item-scoped actions are offered.
	SpecificCeiling int
	// Below FollowUpCeiling depth, a free-text follow-up is offered.
	FollowUpCeiling int
	MaxActions      int
}

// DefaultConfig returns the default ceilings.
func DefaultConfig() Config {
	return Config{SpecificCeiling: 2, FollowUpCeiling: 4, MaxActions: 5}
}

// Input is what one turn produced.
type Input struct {
	Intent model.Intent
	Packs  []model.EvidencePack
	State  model.ConversationState
	// SuggestContact is set when the answer asked to hand off to the subject.
	SuggestContact bool
	// Ambiguous holds candidate ids when the question named several items.
	Ambiguous []string
}

// Planner builds action plans.
type Planner struct {
	cat     Catalog
	profile model.Profile
	cfg     Config
}

// New creates a Planner. Zero config fields take their defaults.
func New(cat Catalog, profile model.Profile, cfg Config) *Planner {
	def := DefaultConfig()
	if cfg.SpecificCeiling <= 0 {
		cfg.SpecificCeiling = def.SpecificCeiling
	}
	if cfg.FollowUpCeiling <= 0 {
		cfg.FollowUpCeiling = def.FollowUpCeiling
	}
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = def.MaxActions
	}
	return &Planner{cat: cat, profile: profile, cfg: cfg}
}

// Plan returns the actions for one turn. The result is never empty and
// never references a visited item.
func (p *Planner) Plan(in Input) []model.QuickAction {
	if in.Intent == model.IntentContact || in.SuggestContact {
		return p.Contact()
	}

	depth := in.State.Depth
	var actions []model.QuickAction
	switch {
	case len(in.Ambiguous) > 0:
		if dd, ok := p.clarify(in.Ambiguous, in.State); ok {
			actions = append(actions, dd)
		}
	case depth < p.cfg.SpecificCeiling && len(in.Packs) == 1:
		actions = p.itemActions(in.Packs[0], in.State)
	case depth < p.cfg.SpecificCeiling && len(in.Packs) > 1:
		actions = p.listActions(in.Packs, in.State)
	}

	actions = unvisited(actions, in.State)
	actions = dedupe(actions)
	followUp := depth < p.cfg.FollowUpCeiling
	if followUp {
		if len(actions) > p.cfg.MaxActions-1 {
			actions = actions[:p.cfg.MaxActions-1]
		}
		actions = append(actions, FollowUp())
	}
	if len(actions) == 0 {
		return []model.QuickAction{p.message()}
	}
	if len(actions) > p.cfg.MaxActions {
		actions = actions[:p.cfg.MaxActions]
	}
	return actions
}

// Contact returns the fixed contact set: professional profile, code host,
// message and email, skipping links the profile does not carry.
func (p *Planner) Contact() []model.QuickAction {
	var out []model.QuickAction
	if p.profile.LinkedIn != "" {
		out = append(out, model.LinkAction("LinkedIn", p.profile.LinkedIn, ""))
	}
	if p.profile.GitHub != "" {
		out = append(out, model.LinkAction("GitHub", p.profile.GitHub, ""))
	}
	out = append(out, p.message())
	if p.profile.Email != "" {
		out = append(out, model.LinkAction("Email", "mailto:"+p.profile.Email, ""))
	}
	return out
}

// FollowUp is the free-text follow-up action.
func FollowUp() model.QuickAction {
	return model.CustomInputAction("Ask a follow-up", "What else would you like to know?")
}

func (p *Planner) message() model.QuickAction {
	name := firstName(p.profile.Name)
	if name == "" {
		return model.MessageAction("Send a message", "Hi, ")
	}
	return model.MessageAction("Message "+name, fmt.Sprintf("Hi %s, ", name))
}

func (p *Planner) clarify(ids []string, st model.ConversationState) (model.QuickAction, bool) {
	var opts []model.QuickAction
	for _, id := range ids {
		it, ok := p.cat.Item(id)
		if !ok || st.Visited(id) {
			continue
		}
		opts = append(opts, p.about(it))
	}
	if len(opts) == 0 {
		return model.QuickAction{}, false
	}
	return model.DropdownAction("Which one did you mean?", opts...), true
}

func (p *Planner) about(it model.Item) model.QuickAction {
	name := it.DisplayName()
	return model.QueryAction(name, "Tell me about "+name, model.IntentSpecificItem,
		&model.QueryFilter{TitleMatch: it.ItemID()})
}

// itemActions offers, for a single item: its link, other work with its
// first skill and its strongest unvisited related item.
func (p *Planner) itemActions(pk model.EvidencePack, st model.ConversationState) []model.QuickAction {
	var out []model.QuickAction
	if pk.URL != "" {
		out = append(out, model.LinkAction("Open "+pk.Title, pk.URL, pk.ID))
	}
	if len(pk.Skills) > 0 {
		out = append(out, p.bySkill(pk.Skills[0], []model.Kind{model.KindProject, model.KindExperience}))
	}
	for _, l := range p.cat.Related(pk.ID) {
		if l.ToID == pk.ID || st.Visited(l.ToID) {
			continue
		}
		if it, ok := p.cat.Item(l.ToID); ok {
			out = append(out, p.about(it))
			break
		}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// listActions offers, for a list: the most important unvisited item and a
// narrowing by the skill most of the list shares.
func (p *Planner) listActions(packs []model.EvidencePack, st model.ConversationState) []model.QuickAction {
	var out []model.QuickAction
	var top *model.EvidencePack
	for i := range packs {
		pk := &packs[i]
		if st.Visited(pk.ID) {
			continue
		}
		if top == nil || p.cat.Importance(pk.ID) > p.cat.Importance(top.ID) {
			top = pk
		}
	}
	if top != nil {
		if it, ok := p.cat.Item(top.ID); ok {
			a := p.about(it)
			a.Label = "More on " + top.Title
			out = append(out, a)
		}
	}
	if skill := commonSkill(packs); skill != "" {
		out = append(out, p.bySkill(skill, kindsOf(packs)))
	}
	return out
}

func (p *Planner) bySkill(skill string, kinds []model.Kind) model.QuickAction {
	name := p.skillName(skill)
	return model.QueryAction("More with "+name, "What else have you built with "+name+"?",
		model.IntentFilterQuery, &model.QueryFilter{Types: kinds, Skills: []string{skill}})
}

func (p *Planner) skillName(id string) string {
	if it, ok := p.cat.Item(id); ok && it.ItemKind() == model.KindSkill {
		return it.DisplayName()
	}
	return strings.ReplaceAll(id, "_", " ")
}

// commonSkill returns the skill referenced by the most packs, at least two.
// Ties go to the skill seen first.
func commonSkill(packs []model.EvidencePack) string {
	counts := map[string]int{}
	var order []string
	for _, pk := range packs {
		seen := map[string]bool{}
		for _, s := range pk.Skills {
			if seen[s] {
				continue
			}
			seen[s] = true
			if counts[s] == 0 {
				order = append(order, s)
			}
			counts[s]++
		}
	}
	best := ""
	for _, s := range order {
		if counts[s] >= 2 && counts[s] > counts[best] {
			best = s
		}
	}
	return best
}

func kindsOf(packs []model.EvidencePack) []model.Kind {
	seen := map[model.Kind]bool{}
	var out []model.Kind
	for _, pk := range packs {
		if !seen[pk.Kind] {
			seen[pk.Kind] = true
			out = append(out, pk.Kind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// unvisited drops actions pointing at visited items. Dropdowns lose their
// visited options and vanish when none remain.
func unvisited(actions []model.QuickAction, st model.ConversationState) []model.QuickAction {
	out := actions[:0:0]
	for _, a := range actions {
		if a.Type == model.ActionDropdown {
			opts := unvisited(a.Options, st)
			if len(opts) == 0 {
				continue
			}
			a.Options = opts
		}
		if referencesVisited(a, st) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func referencesVisited(a model.QuickAction, st model.ConversationState) bool {
	for _, id := range a.References() {
		if st.Visited(id) {
			return true
		}
	}
	return false
}

func dedupe(actions []model.QuickAction) []model.QuickAction {
	seen := map[string]bool{}
	out := actions[:0:0]
	for _, a := range actions {
		key := string(a.Type) + "|" + a.Label
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return ""
}
