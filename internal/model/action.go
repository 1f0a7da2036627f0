package model

// ActionType discriminates QuickAction variants.
type ActionType string

const (
	ActionLink        ActionType = "link"
	ActionQuery       ActionType = "query"
	ActionDropdown    ActionType = "dropdown"
	ActionMessage     ActionType = "message"
	ActionCustomInput ActionType = "custom_input"
)

// QuickAction is a pre-filled follow-up offered after an answer. Which
// fields are set depends on Type; use the constructors.
type QuickAction struct {
	Type  ActionType `json:"type"`
	Label string     `json:"label"`

	// ItemID is the canonical id of the item the action points at, if any.
	ItemID string `json:"item_id,omitempty"`

	URL         string        `json:"url,omitempty"`
	Query       string        `json:"query,omitempty"`
	Intent      Intent        `json:"intent,omitempty"`
	Filters     *QueryFilter  `json:"filters,omitempty"`
	Options     []QuickAction `json:"options,omitempty"`
	Message     string        `json:"message,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
}

// LinkAction opens an external URL.
func LinkAction(label, url, itemID string) QuickAction {
	return QuickAction{Type: ActionLink, Label: label, URL: url, ItemID: itemID}
}

// QueryAction runs a follow-up query in skip mode with the given intent
// and filters.
func QueryAction(label, query string, intent Intent, f *QueryFilter) QuickAction {
	a := QuickAction{Type: ActionQuery, Label: label, Query: query, Intent: intent, Filters: f}
	if f != nil && f.TitleMatch != "" {
		a.ItemID = f.TitleMatch
	}
	return a
}

// DropdownAction groups sub-options under one label.
func DropdownAction(label string, options ...QuickAction) QuickAction {
	return QuickAction{Type: ActionDropdown, Label: label, Options: options}
}

// MessageAction opens a message to the subject.
func MessageAction(label, message string) QuickAction {
	return QuickAction{Type: ActionMessage, Label: label, Message: message}
}

// CustomInputAction asks the user for a free-text follow-up.
func CustomInputAction(label, placeholder string) QuickAction {
	return QuickAction{Type: ActionCustomInput, Label: label, Placeholder: placeholder}
}

// References returns every item id the action points at, including those
// of nested options.
func (a QuickAction) References() []string {
	var ids []string
	if a.ItemID != "" {
		ids = append(ids, a.ItemID)
	}
	if a.Filters != nil && a.Filters.TitleMatch != "" && a.Filters.TitleMatch != a.ItemID {
		ids = append(ids, a.Filters.TitleMatch)
	}
	for _, o := range a.Options {
		ids = append(ids, o.References()...)
	}
	return ids
}
