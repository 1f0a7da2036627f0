package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"project", KindProject, true},
		{"Projects", KindProject, true},
		{"courses", KindClass, true},
		{"jobs", KindExperience, true},
		{"articles", KindWriting, true},
		{"stories", KindStory, true},
		{"skills", KindSkill, true},
		{"spaceship", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKind(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseKind(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDateRangeYears(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		dr         DateRange
		start, end int
		ok         bool
	}{
		{"month range", DateRange{Start: "2021-06", End: "2023-01"}, 2021, 2023, true},
		{"present", DateRange{Start: "2022", End: "present"}, 2022, 2025, true},
		{"open", DateRange{Start: "2020-02"}, 2020, 2025, true},
		{"reversed", DateRange{Start: "2023", End: "2021"}, 2021, 2023, true},
		{"empty", DateRange{}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, ok := tt.dr.Years(now)
			if s != tt.start || e != tt.end || ok != tt.ok {
				t.Errorf("Years() = %d, %d, %v; want %d, %d, %v", s, e, ok, tt.start, tt.end, tt.ok)
			}
		})
	}
}

func TestTermYear(t *testing.T) {
	y, ok := TermYear(Class{Term: "Fall 2021"})
	if !ok || y != 2021 {
		t.Errorf("TermYear = %d, %v", y, ok)
	}
	if _, ok := TermYear(Project{}); ok {
		t.Error("project should have no term year")
	}
}

func TestSkillIDs(t *testing.T) {
	s := Skill{Base: Base{ID: "go", Kind: KindSkill}}
	if got := SkillIDs(s); len(got) != 1 || got[0] != "go" {
		t.Errorf("SkillIDs(skill) = %v", got)
	}
	p := Project{Base: Base{ID: "p", Kind: KindProject, Skills: []string{"go", "sql"}}}
	if got := SkillIDs(p); len(got) != 2 {
		t.Errorf("SkillIDs(project) = %v", got)
	}
}

func TestQueryFilterUnmarshalLoose(t *testing.T) {
	var f QueryFilter
	err := json.Unmarshal([]byte(`{"type":"projects","skills":"python","year":["2022",2023],"operation":"ANY"}`), &f)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(f.Types) != 1 || f.Types[0] != KindProject {
		t.Errorf("Types = %v", f.Types)
	}
	if len(f.Skills) != 1 || f.Skills[0] != "python" {
		t.Errorf("Skills = %v", f.Skills)
	}
	if len(f.Year) != 2 || f.Year[0] != 2022 || f.Year[1] != 2023 {
		t.Errorf("Year = %v", f.Year)
	}
	if f.Op() != OpAny {
		t.Errorf("Op = %q", f.Op())
	}
}

func TestQueryFilterClone(t *testing.T) {
	f := &QueryFilter{Skills: []string{"go"}}
	c := f.Clone()
	c.Skills[0] = "rust"
	if f.Skills[0] != "go" {
		t.Error("clone shares slices with the original")
	}
	var nilF *QueryFilter
	if nilF.Clone() != nil || !nilF.IsZero() {
		t.Error("nil filter should clone to nil and be zero")
	}
}

func TestQuickActionReferences(t *testing.T) {
	a := DropdownAction("Which one?",
		QueryAction("A", "tell me about a", IntentSpecificItem, &QueryFilter{TitleMatch: "a"}),
		LinkAction("B", "https://example.com/b", "b"),
		CustomInputAction("Ask", "..."),
	)
	refs := a.References()
	if len(refs) != 2 || refs[0] != "a" || refs[1] != "b" {
		t.Errorf("References() = %v", refs)
	}
}

func TestConversationVisited(t *testing.T) {
	s := ConversationState{VisitedItemIDs: []string{"x"}}
	if !s.Visited("x") || s.Visited("y") {
		t.Error("Visited mismatch")
	}
}
