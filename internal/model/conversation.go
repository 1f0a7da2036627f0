package model

import "strings"

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentContact      Intent = "contact"
	IntentFilterQuery  Intent = "filter_query"
	IntentSpecificItem Intent = "specific_item"
	IntentPersonal     Intent = "personal"
	IntentGeneral      Intent = "general"
)

// ValidIntents are the allowed intents.
var ValidIntents = map[Intent]bool{
	IntentContact:      true,
	IntentFilterQuery:  true,
	IntentSpecificItem: true,
	IntentPersonal:     true,
	IntentGeneral:      true,
}

// ParseIntent maps a string to an Intent.
func ParseIntent(s string) (Intent, bool) {
	i := Intent(strings.ToLower(strings.TrimSpace(s)))
	return i, ValidIntents[i]
}

// ImportanceRanking is the offline importance score of one item.
type ImportanceRanking struct {
	ID    string  `json:"id" yaml:"id"`
	Kind  Kind    `json:"kind" yaml:"kind"`
	Score float64 `json:"score" yaml:"score"`
}

// AliasEntry is the matching view of one item.
type AliasEntry struct {
	ID            string   `json:"id"`
	Kind          Kind     `json:"kind"`
	CanonicalName string   `json:"canonical_name"`
	Aliases       []string `json:"aliases,omitempty"`
}

// EvidencePack is the bounded record of one item handed to the answerer.
type EvidencePack struct {
	ID        string   `json:"id"`
	Kind      Kind     `json:"kind"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary,omitempty"`
	Specifics []string `json:"specifics,omitempty"`
	Dates     string   `json:"dates,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	Metrics   []string `json:"metrics,omitempty"`
	URL       string   `json:"url,omitempty"`
	Rank      int      `json:"rank"`
}

// ConversationState is the caller-owned multi-turn state.
type ConversationState struct {
	Depth          int      `json:"depth"`
	PreviousQuery  string   `json:"previous_query,omitempty"`
	PreviousAnswer string   `json:"previous_answer,omitempty"`
	VisitedItemIDs []string `json:"visited_item_ids,omitempty"`
}

// Visited reports whether id has been surfaced in an earlier turn.
func (s ConversationState) Visited(id string) bool {
	for _, v := range s.VisitedItemIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Profile is the subject's contact data.
type Profile struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty" yaml:"github,omitempty"`
	Website  string `json:"website,omitempty" yaml:"website,omitempty"`
}
