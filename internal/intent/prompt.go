package intent

import "github.com/rcliao/askfolio/internal/model"

const systemPrompt = `You classify questions asked to a personal portfolio assistant.
Reply with one JSON object and nothing else:
{"intent": "...", "filters": {...}, "about_subject": true|false}
Follow the rules in the payload exactly. Use only the listed kinds in filters.type.
Set about_subject to false only when the question has nothing to do with the person,
their work, their background or contacting them.`

type payload struct {
	Query         string            `json:"query"`
	PreviousQuery string            `json:"previous_query,omitempty"`
	Kinds         []model.Kind      `json:"kinds"`
	Intents       map[string]string `json:"intents"`
	Filters       map[string]string `json:"filters"`
	Rules         []string          `json:"rules"`
}

func promptPayload(in Input) payload {
	return payload{
		Query:         in.Query,
		PreviousQuery: in.PreviousQuery,
		Kinds:         model.Kinds,
		Intents: map[string]string{
			string(model.IntentContact):      "wants to hire, contact, or get contact details",
			string(model.IntentSpecificItem): "asks about one named project, job, course, article or other item",
			string(model.IntentFilterQuery):  "asks for a set of items narrowed by kind, skill, company, year or tag",
			string(model.IntentPersonal):     "asks about personality, values, hobbies, background or stories",
			string(model.IntentGeneral):      "anything else about the person, including open-ended or evaluative questions",
		},
		Filters: map[string]string{
			"type":        "list of kinds",
			"skills":      "list of skill names as written",
			"company":     "list of organization names",
			"year":        "list of four-digit years",
			"tags":        "list of topic tags",
			"title_match": "name or id of the single item asked about",
			"operation":   "contains (default) | exact | any",
			"show_all":    "true when every matching item is wanted",
		},
		Rules: []string{
			"specific_item requires filters.title_match; without a clear single item use general",
			"filter_query infers filters.type from vocabulary: projects -> project, jobs/work/roles -> experience, classes/courses -> class, articles/blog/posts -> writing",
			"built/created/made with no kind word means filters.type [project, experience] (either kind qualifies)",
			"skills mentioned in a filter_query go to filters.skills; organizations go to filters.company",
			"contact never carries filters",
			"use previous_query only to resolve pronouns such as it, that, there",
		},
	}
}
