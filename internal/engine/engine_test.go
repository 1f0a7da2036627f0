package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rcliao/askfolio/internal/answer"
	"github.com/rcliao/askfolio/internal/embedding"
	"github.com/rcliao/askfolio/internal/intent"
	"github.com/rcliao/askfolio/internal/kbtest"
	"github.com/rcliao/askfolio/internal/llm"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/planner"
	"github.com/rcliao/askfolio/internal/retrieval"
	"github.com/rcliao/askfolio/internal/store"
)

type fixture struct {
	classifier llm.Client
	classify   intent.Config
	generator  answer.Generator
	cache      bool
}

func newCatalog(t *testing.T, emb embedding.Embedder) *store.Catalog {
	t.Helper()
	doc := kbtest.Document(t)
	vectors := map[string][][]float32{}
	for _, it := range doc.Items {
		if it.ItemKind() == model.KindSkill {
			continue
		}
		v, err := emb.Embed(context.Background(), model.SearchText(it))
		require.NoError(t, err)
		vectors[it.ItemID()] = [][]float32{v}
	}
	return store.NewCatalog(store.CatalogData{
		Items:    doc.Items,
		Rankings: doc.Rankings,
		Vectors:  vectors,
		Links:    store.DeriveLinks(doc.Items, 5),
		Profile:  doc.Profile,
	})
}

func newEngine(t *testing.T, fx fixture) *Engine {
	t.Helper()
	emb := embedding.NewHashEmbedder(256)
	cat := newCatalog(t, emb)
	d := Deps{
		Catalog:    cat,
		Classifier: intent.New(fx.classifier, fx.classify, nil),
		Retriever:  retrieval.New(emb, cat, retrieval.Config{}, nil),
		Planner:    planner.New(cat, cat.Profile, planner.Config{}),
		Generator:  fx.generator,
		Now:        func() time.Time { return kbtest.Now },
	}
	if fx.cache {
		s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		d.Cache = s
	}
	return New(d, Config{CacheTTL: "1h"})
}

func evidenceIDs(r Response) []string {
	ids := make([]string, len(r.Evidence))
	for i, p := range r.Evidence {
		ids[i] = p.ID
	}
	return ids
}

func TestAsk_ListAllProjects(t *testing.T) {
	e := newEngine(t, fixture{})
	resp := e.Ask(context.Background(), Request{Query: "List all projects"}, nil)

	assert.Equal(t, model.IntentFilterQuery, resp.Intent)
	assert.Equal(t, intent.SourceRule, resp.Source)
	assert.True(t, resp.Filters.ShowAll)
	assert.ElementsMatch(t, []string{"proj_portfolio", "proj_router", "proj_voyage"}, evidenceIDs(resp))
	assert.Contains(t, resp.Text, "Here is what I found:")
	assert.Equal(t, 1, resp.Depth)
	assert.ElementsMatch(t, evidenceIDs(resp), resp.VisitedItemIDs)
	assert.NotEmpty(t, resp.RequestID)
	assert.NotEmpty(t, resp.QuickActions)
}

func TestAsk_SkipModeSpecificItem(t *testing.T) {
	client := llm.NewScripted(`{"intent":"general"}`)
	e := newEngine(t, fixture{classifier: client})
	resp := e.Ask(context.Background(), Request{
		Query:          "Tell me about Portfolio Assistant",
		Depth:          1,
		Intent:         model.IntentSpecificItem,
		Filters:        &model.QueryFilter{TitleMatch: "proj_portfolio"},
		VisitedItemIDs: []string{"proj_router"},
	}, nil)

	assert.Equal(t, 0, client.Calls(), "skip mode bypasses the classifier")
	assert.Equal(t, intent.SourceSkip, resp.Source)
	assert.Equal(t, []string{"proj_portfolio"}, evidenceIDs(resp))
	assert.True(t, strings.HasPrefix(resp.Text, "**Portfolio Assistant**"))
	assert.Equal(t, 2, resp.Depth)
	assert.Equal(t, []string{"proj_router", "proj_portfolio"}, resp.VisitedItemIDs)
	for _, a := range resp.QuickActions {
		assert.NotContains(t, a.References(), "proj_router")
	}
}

func TestAsk_AmbiguousEntity(t *testing.T) {
	e := newEngine(t, fixture{})
	resp := e.Ask(context.Background(), Request{Query: "what is veson?"}, nil)

	assert.True(t, resp.Clarification)
	assert.Empty(t, resp.Evidence)
	assert.Contains(t, resp.Text, "1. Software Engineer at Veson Nautical")
	assert.Contains(t, resp.Text, "2. Voyage Optimizer")
	require.NotEmpty(t, resp.QuickActions)
	dd := resp.QuickActions[0]
	assert.Equal(t, model.ActionDropdown, dd.Type)
	assert.ElementsMatch(t, []string{"exp_veson", "proj_voyage"}, dd.References())
}

func TestAsk_YearRange(t *testing.T) {
	e := newEngine(t, fixture{})
	tests := []struct {
		query string
		want  []string
	}{
		{"Which jobs did you have in 2022?", []string{"exp_veson"}},
		{"Which jobs did you have in 2024?", []string{"exp_acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := e.Ask(context.Background(), Request{Query: tt.query}, nil)
			assert.Equal(t, tt.want, evidenceIDs(resp))
		})
	}
}

func TestAsk_ClassifierFailure(t *testing.T) {
	e := newEngine(t, fixture{classifier: &llm.Scripted{Err: errors.New("unavailable")}})
	resp := e.Ask(context.Background(), Request{Query: "What drives you?"}, nil)
	assert.Equal(t, intent.SourceFallback, resp.Source)
	assert.Equal(t, model.IntentGeneral, resp.Intent)
	assert.NotEmpty(t, resp.Evidence)
	assert.NotEmpty(t, resp.Text)
}

func TestAsk_ClassifierTimeoutLeavesNothingRunning(t *testing.T) {
	defer goleak.VerifyNone(t)
	e := newEngine(t, fixture{
		classifier: &llm.Scripted{Replies: []string{`{"intent":"personal"}`}, Delay: time.Second},
		classify:   intent.Config{Timeout: 20 * time.Millisecond},
	})
	resp := e.Ask(context.Background(), Request{Query: "What drives you?"}, nil)
	assert.Equal(t, intent.SourceFallback, resp.Source)
}

func TestAsk_NoMatch(t *testing.T) {
	e := newEngine(t, fixture{})
	resp := e.Ask(context.Background(), Request{
		Query:   "What did you do there?",
		Filters: &model.QueryFilter{Company: []string{"Google"}},
	}, nil)

	assert.Empty(t, resp.Evidence)
	assert.Contains(t, resp.Text, "Nothing matches company Google")
	require.NotEmpty(t, resp.QuickActions)
	assert.Equal(t, "LinkedIn", resp.QuickActions[0].Label, "no match offers the contact set")
}

func TestAsk_Contact(t *testing.T) {
	e := newEngine(t, fixture{})
	resp := e.Ask(context.Background(), Request{Query: "Are you available for hire?"}, nil)
	assert.Equal(t, model.IntentContact, resp.Intent)
	assert.Contains(t, resp.Text, "riley@example.com")
	assert.Len(t, resp.QuickActions, 4)
}

func TestAsk_OffTopic(t *testing.T) {
	e := newEngine(t, fixture{classifier: llm.NewScripted(`{"intent":"general","about_subject":false}`)})
	resp := e.Ask(context.Background(), Request{Query: "What's the weather in Paris?"}, nil)
	assert.Equal(t, intent.SourceModel, resp.Source)
	assert.Contains(t, resp.Text, "I can only answer questions about Riley")
	assert.Empty(t, resp.Evidence)
	require.Len(t, resp.QuickActions, 1)
	assert.Equal(t, model.ActionCustomInput, resp.QuickActions[0].Type)
}

func TestAsk_ContactMarkerIsStripped(t *testing.T) {
	gen := answer.NewLLM(llm.NewScripted("Not much on that, sorry. [[CONTACT]]"), answer.Config{}, nil)
	e := newEngine(t, fixture{generator: gen})

	var streamed strings.Builder
	resp := e.Ask(context.Background(), Request{Query: "List all projects"}, func(s string) { streamed.WriteString(s) })

	assert.Equal(t, "Not much on that, sorry.", resp.Text)
	assert.NotContains(t, streamed.String(), answer.ContactMarker)
	assert.Equal(t, "LinkedIn", resp.QuickActions[0].Label, "the marker switches to the contact set")
}

func TestAsk_GenerationFailureFallsBackToTemplate(t *testing.T) {
	gen := answer.NewLLM(&llm.Scripted{Err: errors.New("down")}, answer.Config{}, nil)
	e := newEngine(t, fixture{generator: gen})
	resp := e.Ask(context.Background(), Request{Query: "List all projects"}, nil)
	assert.Contains(t, resp.Text, "Here is what I found:")
}

func TestAsk_Cache(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, fixture{cache: true})

	first := e.Ask(ctx, Request{Query: "List all projects"}, nil)
	require.False(t, first.Cached)

	second := e.Ask(ctx, Request{Query: "list all   PROJECTS!"}, nil)
	assert.True(t, second.Cached, "keyed by the normalized query")
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, evidenceIDs(first), evidenceIDs(second))
	assert.NotEqual(t, first.RequestID, second.RequestID)

	later := e.Ask(ctx, Request{Query: "List all projects", Depth: 1, PreviousQuery: "hi"}, nil)
	assert.False(t, later.Cached, "only first turns are cached")

	skip := e.Ask(ctx, Request{
		Query:   "List all projects",
		Intent:  model.IntentFilterQuery,
		Filters: &model.QueryFilter{Types: []model.Kind{model.KindProject}, ShowAll: true},
	}, nil)
	assert.False(t, skip.Cached, "skip mode is never cached")
}

func TestAsk_ConcurrentRequests(t *testing.T) {
	e := newEngine(t, fixture{})
	queries := []string{"List all projects", "what is veson?", "Which jobs did you have in 2022?", "Are you available for hire?"}
	done := make(chan Response, len(queries)*4)
	for i := 0; i < 4; i++ {
		for _, q := range queries {
			go func(q string) { done <- e.Ask(context.Background(), Request{Query: q}, nil) }(q)
		}
	}
	for i := 0; i < cap(done); i++ {
		assert.NotEmpty(t, (<-done).Text)
	}
}

func TestVisit(t *testing.T) {
	got := visit([]string{"a", "b"}, []model.EvidencePack{{ID: "b"}, {ID: "c"}, {ID: "c"}})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestAsk_ClassifiedTitleAmbiguous(t *testing.T) {
	client := llm.NewScripted(`{"intent":"specific_item","filters":{"title_match":"veson"}}`)
	e := newEngine(t, fixture{classifier: client})
	resp := e.Ask(context.Background(), Request{Query: "tell me about the veson thing"}, nil)

	assert.Equal(t, intent.SourceModel, resp.Source)
	assert.True(t, resp.Clarification)
	assert.Empty(t, resp.Evidence)
	require.NotEmpty(t, resp.QuickActions)
	dd := resp.QuickActions[0]
	assert.Equal(t, model.ActionDropdown, dd.Type)
	assert.ElementsMatch(t, []string{"exp_veson", "proj_voyage"}, dd.References())
}

func TestAsk_ClassifiedTypeDoesNotNarrowTitle(t *testing.T) {
	client := llm.NewScripted(`{"intent":"specific_item","filters":{"type":["experience"],"title_match":"go"}}`)
	e := newEngine(t, fixture{classifier: client})
	resp := e.Ask(context.Background(), Request{Query: "how do you use go"}, nil)

	assert.Equal(t, intent.SourceModel, resp.Source)
	assert.False(t, resp.Clarification)
	require.NotNil(t, resp.Filters)
	assert.Empty(t, resp.Filters.Types)
	assert.Equal(t, []string{"go"}, evidenceIDs(resp))
}

func TestAsk_UnknownIntentKeepsCallerFilters(t *testing.T) {
	client := llm.NewScripted(`{"intent":"general"}`)
	e := newEngine(t, fixture{classifier: client})
	resp := e.Ask(context.Background(), Request{
		Query:   "Tell me about Portfolio Assistant",
		Intent:  "specific",
		Filters: &model.QueryFilter{TitleMatch: "proj_portfolio"},
	}, nil)

	assert.NotEqual(t, intent.SourceSkip, resp.Source)
	assert.Equal(t, []string{"proj_portfolio"}, evidenceIDs(resp))
}
