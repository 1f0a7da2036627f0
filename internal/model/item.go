// Package model defines the knowledge-base and conversation data types.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the KnowledgeItem variants.
type Kind string

const (
	KindProject    Kind = "project"
	KindExperience Kind = "experience"
	KindClass      Kind = "class"
	KindWriting    Kind = "writing"
	KindStory      Kind = "story"
	KindValue      Kind = "value"
	KindInterest   Kind = "interest"
	KindEducation  Kind = "education"
	KindBio        Kind = "bio"
	KindSkill      Kind = "skill"
)

// Kinds lists every known kind in display order.
var Kinds = []Kind{
	KindProject, KindExperience, KindClass, KindWriting, KindStory,
	KindValue, KindInterest, KindEducation, KindBio, KindSkill,
}

// ValidKinds are the allowed item kinds.
var ValidKinds = map[Kind]bool{
	KindProject:    true,
	KindExperience: true,
	KindClass:      true,
	KindWriting:    true,
	KindStory:      true,
	KindValue:      true,
	KindInterest:   true,
	KindEducation:  true,
	KindBio:        true,
	KindSkill:      true,
}

// ParseKind accepts a kind name, tolerating case and a trailing plural "s".
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k := Kind(s); ValidKinds[k] {
		return k, true
	}
	switch s {
	case "classes", "courses", "course":
		return KindClass, true
	case "experiences", "jobs", "job", "work":
		return KindExperience, true
	case "writings", "articles", "article", "posts", "post", "blog":
		return KindWriting, true
	case "stories":
		return KindStory, true
	}
	if k := Kind(strings.TrimSuffix(s, "s")); ValidKinds[k] {
		return k, true
	}
	return "", false
}

// Item is a single immutable knowledge-base record. The set of
// implementations is closed; kind-specific fields are read through the
// accessors below rather than by type switches at call sites.
type Item interface {
	ItemID() string
	ItemKind() Kind
	DisplayName() string
	// Span returns the date range the item covers, if it has one.
	Span() (DateRange, bool)
	// Org is the company, school or organization attached to the item.
	Org() string
	Core() Base
	sealed()
}

// Base holds the fields every kind shares.
type Base struct {
	ID        string   `json:"id" yaml:"id"`
	Kind      Kind     `json:"kind" yaml:"kind"`
	Summary   string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Specifics []string `json:"specifics,omitempty" yaml:"specifics,omitempty"`
	Skills    []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Aliases   []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	URL       string   `json:"url,omitempty" yaml:"url,omitempty"`
}

func (b Base) ItemID() string { return b.ID }
func (b Base) ItemKind() Kind { return b.Kind }
func (b Base) Core() Base     { return b }
func (b Base) sealed()        {}

// Project is something built, personally or at work.
type Project struct {
	Base         `yaml:",inline"`
	Title        string    `json:"title"`
	Dates        DateRange `json:"dates"`
	Organization string    `json:"organization,omitempty"`
	Repo         string    `json:"repo,omitempty"`
}

func (p Project) DisplayName() string     { return p.Title }
func (p Project) Span() (DateRange, bool) { return p.Dates, p.Dates.Start != "" }
func (p Project) Org() string             { return p.Organization }

// Experience is a job or role.
type Experience struct {
	Base     `yaml:",inline"`
	Role     string    `json:"role"`
	Company  string    `json:"company"`
	Location string    `json:"location,omitempty"`
	Dates    DateRange `json:"dates"`
}

func (e Experience) DisplayName() string {
	if e.Company == "" {
		return e.Role
	}
	if e.Role == "" {
		return e.Company
	}
	return e.Role + " at " + e.Company
}
func (e Experience) Span() (DateRange, bool) { return e.Dates, e.Dates.Start != "" }
func (e Experience) Org() string             { return e.Company }

// Class is a course taken, identified by a term rather than a range.
type Class struct {
	Base   `yaml:",inline"`
	Title  string `json:"title"`
	Code   string `json:"code,omitempty"`
	School string `json:"school,omitempty"`
	Term   string `json:"term,omitempty"`
}

func (c Class) DisplayName() string {
	if c.Code != "" && c.Title != "" {
		return c.Code + ": " + c.Title
	}
	if c.Title == "" {
		return c.Code
	}
	return c.Title
}
func (c Class) Span() (DateRange, bool) { return DateRange{}, false }
func (c Class) Org() string             { return c.School }

// Writing is a published article or post.
type Writing struct {
	Base      `yaml:",inline"`
	Title     string `json:"title"`
	Published string `json:"published,omitempty"`
	Body      string `json:"body,omitempty"`
}

func (w Writing) DisplayName() string { return w.Title }
func (w Writing) Span() (DateRange, bool) {
	return DateRange{Start: w.Published, End: w.Published}, w.Published != ""
}
func (w Writing) Org() string { return "" }

// Story is a personal anecdote.
type Story struct {
	Base  `yaml:",inline"`
	Title string    `json:"title"`
	Dates DateRange `json:"dates"`
	Body  string    `json:"body,omitempty"`
}

func (s Story) DisplayName() string     { return s.Title }
func (s Story) Span() (DateRange, bool) { return s.Dates, s.Dates.Start != "" }
func (s Story) Org() string             { return "" }

// Value is a personal or working value.
type Value struct {
	Base `yaml:",inline"`
	Name string `json:"name"`
	Body string `json:"body,omitempty"`
}

func (v Value) DisplayName() string     { return v.Name }
func (v Value) Span() (DateRange, bool) { return DateRange{}, false }
func (v Value) Org() string             { return "" }

// Interest is a hobby or topic of interest.
type Interest struct {
	Base `yaml:",inline"`
	Name string `json:"name"`
}

func (i Interest) DisplayName() string     { return i.Name }
func (i Interest) Span() (DateRange, bool) { return DateRange{}, false }
func (i Interest) Org() string             { return "" }

// Education is a degree or program.
type Education struct {
	Base   `yaml:",inline"`
	School string    `json:"school"`
	Degree string    `json:"degree,omitempty"`
	Dates  DateRange `json:"dates"`
}

func (e Education) DisplayName() string {
	if e.Degree == "" {
		return e.School
	}
	return e.Degree + ", " + e.School
}
func (e Education) Span() (DateRange, bool) { return e.Dates, e.Dates.Start != "" }
func (e Education) Org() string             { return e.School }

// Bio is a background fact about the subject.
type Bio struct {
	Base `yaml:",inline"`
	Name string `json:"name"`
	Body string `json:"body,omitempty"`
}

func (b Bio) DisplayName() string     { return b.Name }
func (b Bio) Span() (DateRange, bool) { return DateRange{}, false }
func (b Bio) Org() string             { return "" }

// Skill is a technology or competency; other items reference skills by ID.
type Skill struct {
	Base     `yaml:",inline"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Level    string `json:"level,omitempty"`
}

func (s Skill) DisplayName() string {
	if s.Name == "" {
		return strings.ReplaceAll(s.ID, "_", " ")
	}
	return s.Name
}
func (s Skill) Span() (DateRange, bool) { return DateRange{}, false }
func (s Skill) Org() string             { return "" }

// DateRange is a start/end pair in YYYY or YYYY-MM form. An empty or
// "present" End means the range is ongoing.
type DateRange struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Ongoing reports whether the range has no end.
func (d DateRange) Ongoing() bool {
	e := strings.ToLower(strings.TrimSpace(d.End))
	return e == "" || e == "present" || e == "current" || e == "now"
}

// Years returns the inclusive year bounds of the range.
func (d DateRange) Years(now time.Time) (start, end int, ok bool) {
	start, _, ok = ParseYearMonth(d.Start)
	if !ok {
		return 0, 0, false
	}
	if d.Ongoing() {
		return start, now.Year(), true
	}
	end, _, ok = ParseYearMonth(d.End)
	if !ok {
		return start, start, true
	}
	if end < start {
		start, end = end, start
	}
	return start, end, true
}

// Latest returns the most recent moment the range touches.
func (d DateRange) Latest(now time.Time) (time.Time, bool) {
	if d.Ongoing() && d.Start != "" {
		return now, true
	}
	y, m, ok := ParseYearMonth(d.End)
	if !ok {
		y, m, ok = ParseYearMonth(d.Start)
	}
	if !ok {
		return time.Time{}, false
	}
	if m == 0 {
		m = 12
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
}

func (d DateRange) String() string {
	switch {
	case d.Start == "":
		return ""
	case d.Start == d.End:
		return d.Start
	case d.Ongoing():
		return d.Start + " - present"
	default:
		return d.Start + " - " + d.End
	}
}

// ParseYearMonth parses "2021", "2021-06" or "2021-06-15". Month is 0 when
// only a year is given.
func ParseYearMonth(s string) (year, month int, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, 0, false
	}
	if len(s) >= 7 && s[4] == '-' {
		if m, err := strconv.Atoi(s[5:7]); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month, true
}

// YearsOf returns the inclusive year span an item covers, if any.
func YearsOf(it Item, now time.Time) (start, end int, ok bool) {
	span, has := it.Span()
	if !has {
		return 0, 0, false
	}
	return span.Years(now)
}

// TermYear extracts the year from a class term such as "Fall 2021".
func TermYear(it Item) (int, bool) {
	c, ok := it.(Class)
	if !ok {
		return 0, false
	}
	for _, f := range strings.Fields(c.Term) {
		f = strings.Trim(f, ",.()")
		if len(f) == 4 {
			if y, err := strconv.Atoi(f); err == nil {
				return y, true
			}
		}
	}
	return 0, false
}

// TermLabel returns a class's term, or "" for every other kind.
func TermLabel(it Item) string {
	if c, ok := it.(Class); ok {
		return c.Term
	}
	return ""
}

// SkillIDs returns the skill ids an item references. A skill item
// references itself.
func SkillIDs(it Item) []string {
	b := it.Core()
	if b.Kind == KindSkill {
		return append([]string{b.ID}, b.Skills...)
	}
	return b.Skills
}

// Body returns the long-form text of kinds that carry one.
func Body(it Item) string {
	switch v := it.(type) {
	case Writing:
		return v.Body
	case Story:
		return v.Body
	case Value:
		return v.Body
	case Bio:
		return v.Body
	}
	return ""
}

// DateLabel renders the item's dates or term for display.
func DateLabel(it Item) string {
	if term := TermLabel(it); term != "" {
		return term
	}
	span, ok := it.Span()
	if !ok {
		return ""
	}
	return span.String()
}

// SearchText is the text the item is embedded and lexically matched by.
func SearchText(it Item) string {
	b := it.Core()
	parts := []string{it.DisplayName()}
	if org := it.Org(); org != "" {
		parts = append(parts, org)
	}
	if b.Summary != "" {
		parts = append(parts, b.Summary)
	}
	parts = append(parts, b.Specifics...)
	if len(b.Skills) > 0 {
		skills := make([]string, len(b.Skills))
		for i, s := range b.Skills {
			skills[i] = strings.ReplaceAll(s, "_", " ")
		}
		parts = append(parts, "Skills: "+strings.Join(skills, ", "))
	}
	if len(b.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(b.Tags, ", "))
	}
	if body := Body(it); body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n")
}

// Decode builds the concrete item for kind, letting decode fill it. It
// serves both the YAML file and the JSON index columns.
func Decode(kind Kind, decode func(v any) error) (Item, error) {
	switch kind {
	case KindProject:
		return decodeAs[Project](decode)
	case KindExperience:
		return decodeAs[Experience](decode)
	case KindClass:
		return decodeAs[Class](decode)
	case KindWriting:
		return decodeAs[Writing](decode)
	case KindStory:
		return decodeAs[Story](decode)
	case KindValue:
		return decodeAs[Value](decode)
	case KindInterest:
		return decodeAs[Interest](decode)
	case KindEducation:
		return decodeAs[Education](decode)
	case KindBio:
		return decodeAs[Bio](decode)
	case KindSkill:
		return decodeAs[Skill](decode)
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

func decodeAs[T Item](decode func(v any) error) (Item, error) {
	var v T
	if err := decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
