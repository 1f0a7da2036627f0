package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/askfolio/internal/alias"
	"github.com/rcliao/askfolio/internal/kbtest"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/textnorm"
)

func itemIDs(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID()
	}
	return out
}

func TestApply(t *testing.T) {
	items := kbtest.Items(t)
	idx := alias.Build(items)

	tests := []struct {
		name string
		f    *model.QueryFilter
		want []string
	}{
		{"types", &model.QueryFilter{Types: []model.Kind{model.KindProject}},
			[]string{"proj_portfolio", "proj_router", "proj_voyage"}},
		{"skills within type", &model.QueryFilter{Types: []model.Kind{model.KindProject}, Skills: []string{"python"}},
			[]string{"proj_portfolio", "proj_router"}},
		{"skill alias resolved", &model.QueryFilter{Skills: []string{"sentence transformer"}},
			[]string{"proj_portfolio", "post_rag", "sentence_transformers"}},
		{"company", &model.QueryFilter{Company: []string{"veson"}},
			[]string{"proj_voyage", "exp_veson"}},
		{"year inside range", &model.QueryFilter{Year: []int{2022}},
			[]string{"proj_voyage", "exp_veson"}},
		{"year with ongoing range", &model.QueryFilter{Year: []int{2024}},
			[]string{"proj_portfolio", "exp_acme", "post_rag"}},
		{"class term year", &model.QueryFilter{Types: []model.Kind{model.KindClass}, Year: []int{2021}},
			[]string{"cls_ml"}},
		{"tags", &model.QueryFilter{Tags: []string{"ai"}},
			[]string{"proj_portfolio", "post_rag"}},
		{"contains substring", &model.QueryFilter{Skills: []string{"machine"}},
			[]string{"proj_router", "exp_acme", "cls_ml", "machine_learning"}},
		{"exact requires equality", &model.QueryFilter{Tags: []string{"ra"}, Operation: model.OpExact},
			[]string{}},
		{"any", &model.QueryFilter{Types: []model.Kind{model.KindProject}, Skills: []string{"rust", "go"}, Operation: model.OpAny},
			[]string{"proj_portfolio"}},
		{"contains needs every value", &model.QueryFilter{Types: []model.Kind{model.KindProject}, Skills: []string{"rust", "go"}},
			[]string{}},
		{"short value does not match inside words", &model.QueryFilter{Types: []model.Kind{model.KindProject}, Skills: []string{"go"}},
			[]string{"proj_portfolio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := itemIDs(ApplyAt(items, tt.f, idx, kbtest.Now))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_ZeroFilterKeepsAll(t *testing.T) {
	items := kbtest.Items(t)
	assert.Len(t, Apply(items, nil, nil), len(items))
	assert.Len(t, Apply(items, &model.QueryFilter{ShowAll: true}, nil), len(items))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	items := kbtest.Items(t)
	before := itemIDs(items)
	f := &model.QueryFilter{Types: []model.Kind{model.KindSkill}}
	Apply(items, f, nil)
	assert.Equal(t, before, itemIDs(items))
}

// An exact id anywhere in the set beats substring matches on names, even
// when the substring matches come first.
func TestApply_TitleMatchPriority(t *testing.T) {
	items := []model.Item{
		model.Project{Base: model.Base{ID: "proj_search_ui", Kind: model.KindProject}, Title: "Search UI"},
		model.Project{Base: model.Base{ID: "search", Kind: model.KindProject}, Title: "Search Engine"},
		model.Project{Base: model.Base{ID: "proj_indexer", Kind: model.KindProject}, Title: "Indexer for search"},
	}

	got := itemIDs(Apply(items, &model.QueryFilter{TitleMatch: "search"}, nil))
	assert.Equal(t, []string{"search"}, got)

	got = itemIDs(Apply(items, &model.QueryFilter{TitleMatch: "Search UI"}, nil))
	assert.Equal(t, []string{"proj_search_ui"}, got)

	got = itemIDs(Apply(items, &model.QueryFilter{TitleMatch: "indexer"}, nil))
	assert.Equal(t, []string{"proj_indexer"}, got)
}

func TestApply_TitleMatchAliases(t *testing.T) {
	items := kbtest.Items(t)
	got := itemIDs(Apply(items, &model.QueryFilter{TitleMatch: "askfolio"}, nil))
	assert.Equal(t, []string{"proj_portfolio"}, got)

	got = itemIDs(Apply(items, &model.QueryFilter{TitleMatch: "proj_router", Types: []model.Kind{model.KindProject}}, nil))
	assert.Equal(t, []string{"proj_router"}, got)
}

func TestExplain(t *testing.T) {
	items := kbtest.Items(t)
	idx := alias.Build(items)

	failed := ExplainAt(items, &model.QueryFilter{
		Types:   []model.Kind{model.KindProject},
		Company: []string{"Google"},
	}, idx, kbtest.Now)
	assert.Equal(t, []string{"company Google"}, failed)

	// Each dimension matches something; only the combination fails.
	f := &model.QueryFilter{Types: []model.Kind{model.KindClass}, Year: []int{2024}}
	assert.Empty(t, ApplyAt(items, f, idx, kbtest.Now))
	assert.Empty(t, ExplainAt(items, f, idx, kbtest.Now))

	assert.Nil(t, Explain(items, nil, idx))
}

func derive(t *testing.T, query string, intent model.Intent, explicit, hints *model.QueryFilter) Derived {
	t.Helper()
	idx := alias.Build(kbtest.Items(t))
	norm := textnorm.Normalize(query)
	return Derive(DeriveInput{
		Query:    norm,
		Intent:   intent,
		Explicit: explicit,
		Hints:    hints,
		Matches:  idx.Resolve(norm),
		Now:      kbtest.Now,
	})
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		intent   model.Intent
		explicit *model.QueryFilter
		hints    *model.QueryFilter
		want     *model.QueryFilter
	}{
		{
			name: "list hint", query: "list all projects", intent: model.IntentFilterQuery,
			hints: &model.QueryFilter{Types: []model.Kind{model.KindProject}, ShowAll: true},
			want:  &model.QueryFilter{Types: []model.Kind{model.KindProject}, ShowAll: true},
		},
		{
			name: "explicit wins over hints", query: "list all projects", intent: model.IntentFilterQuery,
			explicit: &model.QueryFilter{Types: []model.Kind{model.KindWriting}},
			hints:    &model.QueryFilter{Types: []model.Kind{model.KindProject}, ShowAll: true},
			want:     &model.QueryFilter{Types: []model.Kind{model.KindWriting}, ShowAll: true},
		},
		{
			name: "skills from aliases", query: "projects using python", intent: model.IntentFilterQuery,
			want: &model.QueryFilter{Types: []model.Kind{model.KindProject}, Skills: []string{"python"}},
		},
		{
			name: "company from aliases", query: "projects at veson", intent: model.IntentFilterQuery,
			want: &model.QueryFilter{Types: []model.Kind{model.KindProject}, Company: []string{"Veson Nautical"}},
		},
		{
			name: "title match skips type inference", query: "tell me about the portfolio assistant project",
			intent: model.IntentSpecificItem,
			want:   &model.QueryFilter{TitleMatch: "proj_portfolio"},
		},
		{
			name: "explicit title match skips company", query: "projects at veson", intent: model.IntentFilterQuery,
			explicit: &model.QueryFilter{TitleMatch: "proj_voyage"},
			want:     &model.QueryFilter{TitleMatch: "proj_voyage"},
		},
		{
			name: "build verb", query: "what have you built with kubernetes", intent: model.IntentGeneral,
			want: &model.QueryFilter{Types: []model.Kind{model.KindProject, model.KindExperience}},
		},
		{
			name: "years", query: "projects from 2022", intent: model.IntentFilterQuery,
			want: &model.QueryFilter{Types: []model.Kind{model.KindProject}, Year: []int{2022}},
		},
		{
			name: "personal default kinds", query: "what do you do for fun", intent: model.IntentPersonal,
			want: &model.QueryFilter{Types: []model.Kind{model.KindBio, model.KindStory, model.KindValue, model.KindInterest}},
		},
		{
			name: "contact infers nothing", query: "can I hire you for a python project", intent: model.IntentContact,
			want: &model.QueryFilter{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := derive(t, tt.query, tt.intent, tt.explicit, tt.hints)
			require.Empty(t, d.Ambiguous)
			if diff := cmp.Diff(tt.want, d.Filters); diff != "" {
				t.Errorf("Derive mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDerive_Ambiguous(t *testing.T) {
	d := derive(t, "what is veson?", model.IntentGeneral, nil, nil)
	assert.Equal(t, []string{"exp_veson", "proj_voyage"}, d.Ambiguous)
	assert.Empty(t, d.Filters.TitleMatch)

	// Two different mentions are a comparison, not an ambiguous name.
	d = derive(t, "compare veson and acme", model.IntentGeneral, nil, nil)
	assert.Empty(t, d.Ambiguous)

	// A filter question about an organization is not ambiguous.
	d = derive(t, "projects at veson", model.IntentFilterQuery, nil, nil)
	assert.Empty(t, d.Ambiguous)
}

func TestDerive_DoesNotMutateExplicit(t *testing.T) {
	explicit := &model.QueryFilter{Types: []model.Kind{model.KindProject}}
	derive(t, "projects using python in 2023", model.IntentFilterQuery, explicit, nil)
	assert.Empty(t, explicit.Skills)
	assert.Empty(t, explicit.Year)
}

func TestInferTypes(t *testing.T) {
	tests := []struct {
		query string
		want  []model.Kind
	}{
		{"list all projects", []model.Kind{model.KindProject}},
		{"what jobs have you had", []model.Kind{model.KindExperience}},
		{"which courses did you take", []model.Kind{model.KindClass}},
		{"any blog posts", []model.Kind{model.KindWriting}},
		{"projects and roles", []model.Kind{model.KindProject, model.KindExperience}},
		{"what did you create", []model.Kind{model.KindProject, model.KindExperience}},
		{"how are you", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTypes(textnorm.Normalize(tt.query)))
		})
	}
}

func TestYears(t *testing.T) {
	assert.Equal(t, []int{2022, 2024}, Years("2022 vs 2024 and 2022 again"))
	assert.Empty(t, Years("version 12345 and 3000"))
}

func TestTitleCandidates(t *testing.T) {
	items := kbtest.Items(t)
	tests := []struct {
		title string
		want  []string
	}{
		{"proj_router", []string{"proj_router"}},
		{"veson", []string{"proj_voyage", "exp_veson"}},
		{"Veson Nautical", []string{"proj_voyage", "exp_veson"}},
		{"Voyage Optimizer", []string{"proj_voyage"}},
		{"machine learning", []string{"cls_ml"}},
		{"go", []string{"go"}},
		{"cobol", nil},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleCandidates(items, tt.title))
		})
	}
}

// A title taken from the classifier is checked against the catalog: several
// items mean a clarification, one item pins the lookup, and a guessed type
// or company never narrows it.
func TestDerive_ClassifiedTitle(t *testing.T) {
	items := kbtest.Items(t)
	idx := alias.Build(items)
	run := func(query string, explicit, classified *model.QueryFilter) Derived {
		norm := textnorm.Normalize(query)
		return Derive(DeriveInput{
			Query:      norm,
			Intent:     model.IntentSpecificItem,
			Explicit:   explicit,
			Classified: classified,
			Matches:    idx.Resolve(norm),
			Items:      items,
			Now:        kbtest.Now,
		})
	}

	d := run("tell me about the veson thing", nil, &model.QueryFilter{TitleMatch: "veson"})
	assert.Equal(t, []string{"proj_voyage", "exp_veson"}, d.Ambiguous)

	d = run("tell me about go", nil, &model.QueryFilter{Types: []model.Kind{model.KindExperience}, TitleMatch: "go"})
	require.Empty(t, d.Ambiguous)
	if diff := cmp.Diff(&model.QueryFilter{TitleMatch: "go"}, d.Filters); diff != "" {
		t.Errorf("Derive mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"go"}, itemIDs(Apply(items, d.Filters, idx)))

	d = run("what was the voyage optimizer", nil, &model.QueryFilter{TitleMatch: "Voyage Optimizer", Company: []string{"Acme AI"}})
	require.Empty(t, d.Ambiguous)
	assert.Equal(t, "proj_voyage", d.Filters.TitleMatch)
	assert.Empty(t, d.Filters.Company)
	assert.Contains(t, d.Inferred, "title_match")

	// The caller's own title and type are taken as given.
	d = run("tell me about veson", &model.QueryFilter{TitleMatch: "veson", Types: []model.Kind{model.KindProject}}, nil)
	require.Empty(t, d.Ambiguous)
	assert.Equal(t, "veson", d.Filters.TitleMatch)
	assert.Equal(t, []model.Kind{model.KindProject}, d.Filters.Types)
}
