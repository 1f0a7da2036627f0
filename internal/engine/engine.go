// Package engine runs one question through the whole pipeline: classify,
// filter, retrieve, rerank, assemble evidence, answer and plan follow-ups.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/askfolio/internal/answer"
	"github.com/rcliao/askfolio/internal/evidence"
	"github.com/rcliao/askfolio/internal/filter"
	"github.com/rcliao/askfolio/internal/intent"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/planner"
	"github.com/rcliao/askfolio/internal/rerank"
	"github.com/rcliao/askfolio/internal/retrieval"
	"github.com/rcliao/askfolio/internal/store"
	"github.com/rcliao/askfolio/internal/textnorm"
)

// Request is one conversational turn.
type Request struct {
	Query          string             `json:"query"`
	PreviousQuery  string             `json:"previous_query,omitempty"`
	PreviousAnswer string             `json:"previous_answer,omitempty"`
	Depth          int                `json:"depth,omitempty"`
	Intent         model.Intent       `json:"intent,omitempty"`
	Filters        *model.QueryFilter `json:"filters,omitempty"`
	VisitedItemIDs []string           `json:"visited_item_ids,omitempty"`
}

// Response is the outcome of one turn. Depth and VisitedItemIDs are the
// state the caller should send with the next turn.
type Response struct {
	RequestID      string               `json:"request_id"`
	Text           string               `json:"text"`
	QuickActions   []model.QuickAction  `json:"quick_actions"`
	Cached         bool                 `json:"cached"`
	Intent         model.Intent         `json:"intent"`
	Source         intent.Source        `json:"source,omitempty"`
	Filters        *model.QueryFilter   `json:"filters,omitempty"`
	Evidence       []model.EvidencePack `json:"evidence,omitempty"`
	Clarification  bool                 `json:"clarification,omitempty"`
	Depth          int                  `json:"depth"`
	VisitedItemIDs []string             `json:"visited_item_ids,omitempty"`
}

// Cache stores first-turn answers.
type Cache interface {
	CacheGet(ctx context.Context, key string) (*store.CachedAnswer, error)
	CachePut(ctx context.Context, key string, a store.CachedAnswer, ttl string) error
}

// Config tunes the pipeline.
type Config struct {
	TopK     int
	Quotas   map[model.Kind]int
	Total    int
	CacheTTL string
}

// DefaultTopK is how many hits a normal question retrieves.
const DefaultTopK = 8

// Deps are the collaborators of an Engine. Cache may be nil.
type Deps struct {
	Catalog    *store.Catalog
	Classifier *intent.Classifier
	Retriever  *retrieval.Retriever
	Planner    *planner.Planner
	Generator  answer.Generator
	Cache      Cache
	Log        *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine answers questions. It is safe for concurrent use.
type Engine struct {
	Deps
	cfg Config
}

// New creates an Engine.
func New(d Deps, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Quotas == nil {
		cfg.Quotas = rerank.DefaultQuotas
	}
	if cfg.Total <= 0 {
		cfg.Total = rerank.DefaultTotal
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	d.Log = d.Log.Named("engine")
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Generator == nil {
		d.Generator = answer.Template{}
	}
	return &Engine{Deps: d, cfg: cfg}
}

// turn carries one request through the pipeline.
type turn struct {
	id    string
	req   Request
	norm  string
	state model.ConversationState
	now   time.Time
	log   *zap.Logger
	sink  func(string)
}

// Ask answers one turn, streaming text to sink (which may be nil) as it is
// produced. It never fails: every stage degrades to a deterministic answer.
func (e *Engine) Ask(ctx context.Context, req Request, sink func(string)) Response {
	t := &turn{
		id:   ulid.Make().String(),
		req:  req,
		norm: textnorm.Normalize(req.Query),
		now:  e.Now(),
		sink: sink,
		state: model.ConversationState{
			Depth:          max(req.Depth, 0),
			PreviousQuery:  req.PreviousQuery,
			PreviousAnswer: req.PreviousAnswer,
			VisitedItemIDs: req.VisitedItemIDs,
		},
	}
	t.log = e.Log.With(zap.String("request_id", t.id))
	t.log.Debug("ask", zap.String("query", req.Query), zap.Int("depth", t.state.Depth))

	resp := e.ask(ctx, t)
	resp.RequestID = t.id
	resp.Depth = t.state.Depth + 1
	resp.VisitedItemIDs = visit(t.state.VisitedItemIDs, resp.Evidence)
	t.log.Info("answered",
		zap.String("intent", string(resp.Intent)),
		zap.String("source", string(resp.Source)),
		zap.Int("evidence", len(resp.Evidence)),
		zap.Int("actions", len(resp.QuickActions)),
		zap.Bool("cached", resp.Cached))
	return resp
}

func (e *Engine) ask(ctx context.Context, t *turn) Response {
	skip := skipMode(t.req)
	cacheable := e.Cache != nil && !skip && t.state.Depth == 0 && t.req.PreviousQuery == "" && t.norm != ""
	if cacheable {
		if resp, ok := e.fromCache(ctx, t); ok {
			return resp
		}
	}

	cl := e.Classifier.Classify(ctx, intent.Input{
		Query:         t.req.Query,
		PreviousQuery: t.req.PreviousQuery,
		Intent:        t.req.Intent,
		Filters:       t.req.Filters,
	})
	resp := Response{Intent: cl.Intent, Source: cl.Source}

	switch {
	case cl.Intent == model.IntentContact:
		resp.Text = e.emit(t, answer.Contact(e.Catalog.Profile))
		resp.QuickActions = e.Planner.Plan(planner.Input{Intent: model.IntentContact, State: t.state})
		return resp
	case !cl.AboutSubject:
		resp.Text = e.emit(t, answer.OffTopic(e.Catalog.Profile))
		resp.QuickActions = e.Planner.Plan(planner.Input{Intent: cl.Intent, State: t.state})
		return resp
	}

	f := cl.Filters
	if !skip {
		d := e.derive(t, cl)
		if len(d.Ambiguous) > 0 {
			return e.clarify(t, resp, d.Ambiguous)
		}
		f = d.Filters
	}
	resp.Filters = f

	candidates := filter.ApplyAt(e.Catalog.Items, f, e.Catalog.Aliases, t.now)
	if len(candidates) == 0 {
		t.log.Info("no candidates", zap.Stringer("filters", f))
		return e.noMatch(t, resp, filter.ExplainAt(e.Catalog.Items, f, e.Catalog.Aliases, t.now))
	}

	showAll := f != nil && f.ShowAll
	k := e.cfg.TopK
	if showAll {
		k = len(candidates)
	}
	hits := e.Retriever.Retrieve(ctx, t.req.Query, itemIDs(candidates), k)
	if len(hits) == 0 {
		return e.noMatch(t, resp, nil)
	}

	list := rerank.Rerank(rerank.FromHits(hits, e.Catalog.Item), e.Catalog.Item, rerank.Options{
		Query:      t.req.Query,
		Hints:      rerank.YearHints(t.req.Query, t.now),
		Rankings:   e.Catalog.Rankings(),
		Evaluative: cl.Evaluative,
		Now:        t.now,
	})
	if cl.Intent == model.IntentGeneral && !showAll {
		list = rerank.Diversify(list, e.cfg.Quotas, e.cfg.Total)
	}

	packs := evidence.Assemble(e.Catalog.Lookup(rerank.IDs(list)))
	resp.Evidence = packs
	text, contact := e.generate(ctx, t, cl.Intent, packs)
	resp.Text = text
	resp.QuickActions = e.Planner.Plan(planner.Input{
		Intent:         cl.Intent,
		Packs:          packs,
		State:          t.state,
		SuggestContact: contact,
	})

	if cacheable && text != "" {
		e.remember(ctx, t, cl.Intent, text, contact, packs)
	}
	return resp
}

func (e *Engine) derive(t *turn, cl intent.Classification) filter.Derived {
	in := filter.DeriveInput{
		Query:   t.norm,
		Intent:  cl.Intent,
		Matches: e.Catalog.Aliases.Resolve(t.norm),
		Items:   e.Catalog.Items,
		Now:     t.now,
	}
	switch {
	case t.req.Filters != nil:
		in.Explicit, in.Hints = t.req.Filters, cl.Filters
	case cl.Source == intent.SourceRule:
		in.Hints = cl.Filters
	default:
		in.Classified = cl.Filters
	}
	d := filter.Derive(in)
	if len(d.Inferred) > 0 {
		t.log.Debug("inferred filters", zap.Strings("dimensions", d.Inferred), zap.Stringer("filters", d.Filters))
	}
	return d
}

// skipMode reports whether the caller supplied a usable intent and filters,
// the same test the classifier applies before bypassing itself.
func skipMode(req Request) bool {
	if req.Filters == nil {
		return false
	}
	_, ok := model.ParseIntent(string(req.Intent))
	return ok
}

func (e *Engine) clarify(t *turn, resp Response, ids []string) Response {
	var names []string
	for _, it := range e.Catalog.Lookup(ids) {
		names = append(names, it.DisplayName())
	}
	resp.Clarification = true
	resp.Text = e.emit(t, answer.Clarification(names))
	resp.QuickActions = e.Planner.Plan(planner.Input{Intent: resp.Intent, State: t.state, Ambiguous: ids})
	return resp
}

func (e *Engine) noMatch(t *turn, resp Response, reasons []string) Response {
	resp.Text = e.emit(t, answer.NoMatch(reasons, e.Catalog.Profile))
	resp.QuickActions = e.Planner.Plan(planner.Input{Intent: resp.Intent, State: t.state, SuggestContact: true})
	return resp
}

func (e *Engine) generate(ctx context.Context, t *turn, in model.Intent, packs []model.EvidencePack) (string, bool) {
	ai := answer.Input{
		Query:    t.req.Query,
		Intent:   in,
		Evidence: packs,
		Signals:  evidence.Compute(packs, e.Catalog.Item, t.now),
		State:    t.state,
		Profile:  e.Catalog.Profile,
	}
	chunks, errs := e.Generator.Generate(ctx, ai)
	text, contact, err := answer.Consume(ctx, chunks, errs, t.sink)
	if err != nil {
		t.log.Warn("answer generation failed", zap.Error(err))
	}
	if text == "" {
		var s answer.Stripper
		text = strings.TrimSpace(s.Write(answer.Render(ai)) + s.Flush())
		contact = contact || s.Found()
		e.emit(t, text)
	}
	return text, contact
}

func (e *Engine) emit(t *turn, text string) string {
	if t.sink != nil {
		t.sink(text)
	}
	return text
}

func (e *Engine) fromCache(ctx context.Context, t *turn) (Response, bool) {
	a, err := e.Cache.CacheGet(ctx, t.norm)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			t.log.Warn("cache lookup failed", zap.Error(err))
		}
		return Response{}, false
	}
	var s answer.Stripper
	text := strings.TrimSpace(s.Write(a.Text) + s.Flush())
	packs := evidence.Assemble(e.Catalog.Lookup(a.ItemIDs))
	resp := Response{
		Text:     e.emit(t, text),
		Cached:   true,
		Intent:   a.Intent,
		Evidence: packs,
		QuickActions: e.Planner.Plan(planner.Input{
			Intent:         a.Intent,
			Packs:          packs,
			State:          t.state,
			SuggestContact: s.Found(),
		}),
	}
	return resp, true
}

func (e *Engine) remember(ctx context.Context, t *turn, in model.Intent, text string, contact bool, packs []model.EvidencePack) {
	if contact {
		text += "\n\n" + answer.ContactMarker
	}
	ids := make([]string, len(packs))
	for i, p := range packs {
		ids[i] = p.ID
	}
	err := e.Cache.CachePut(ctx, t.norm, store.CachedAnswer{Intent: in, Text: text, ItemIDs: ids}, e.cfg.CacheTTL)
	if err != nil {
		t.log.Warn("cache store failed", zap.Error(err))
	}
}

func itemIDs(items []model.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ItemID()
	}
	return ids
}

// visit appends the ids of packs not yet visited, keeping order.
func visit(visited []string, packs []model.EvidencePack) []string {
	out := append([]string(nil), visited...)
	seen := make(map[string]bool, len(out))
	for _, id := range out {
		seen[id] = true
	}
	for _, p := range packs {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p.ID)
		}
	}
	return out
}
