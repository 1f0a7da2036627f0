// Package mcpserver exposes askfolio as MCP tools for AI assistants.
package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rcliao/askfolio/internal/engine"
	"github.com/rcliao/askfolio/internal/filter"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/store"
)

// Asker answers one conversational turn.
type Asker interface {
	Ask(ctx context.Context, req engine.Request, sink func(string)) engine.Response
}

// Server wraps the engine and catalog as MCP tools.
type Server struct {
	server *gomcp.Server
	asker  Asker
	cat    *store.Catalog
	log    *zap.Logger
}

// New creates an MCP server.
func New(asker Asker, cat *store.Catalog, version string, log *zap.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{asker: asker, cat: cat, log: log.Named("mcp")}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "askfolio", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type askInput struct {
	Query          string             `json:"query" jsonschema:"the question to answer"`
	PreviousQuery  string             `json:"previous_query,omitempty" jsonschema:"the previous question in this conversation"`
	PreviousAnswer string             `json:"previous_answer,omitempty" jsonschema:"the previous answer in this conversation"`
	Depth          int                `json:"depth,omitempty" jsonschema:"conversation depth returned by the previous turn"`
	Intent         string             `json:"intent,omitempty" jsonschema:"pre-classified intent (contact, filter_query, specific_item, personal, general); used with filters to skip classification"`
	Filters        *model.QueryFilter `json:"filters,omitempty" jsonschema:"pre-computed filters; used with intent to skip classification"`
	VisitedItemIDs []string           `json:"visited_item_ids,omitempty" jsonschema:"ids returned by earlier turns"`
}

type getItemInput struct {
	ID string `json:"id" jsonschema:"the item id, e.g. proj_portfolio"`
}

type itemOutput struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Org        string   `json:"organization,omitempty"`
	Dates      string   `json:"dates,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Specifics  []string `json:"specifics,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	URL        string   `json:"url,omitempty"`
	Importance float64  `json:"importance"`
	Related    []string `json:"related,omitempty"`
}

type listItemsInput struct {
	Kind  string `json:"kind,omitempty" jsonschema:"only items of this kind (project, experience, class, writing, ...)"`
	Skill string `json:"skill,omitempty" jsonschema:"only items using this skill"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of items, 0 for all"`
}

type itemSummary struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title"`
	Dates      string  `json:"dates,omitempty"`
	Importance float64 `json:"importance"`
}

type listItemsOutput struct {
	Items []itemSummary `json:"items"`
	Count int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "ask",
		Description: "Answer a question about the person this knowledge base describes. Returns the answer text, the evidence used and suggested follow-up actions. Pass depth and visited_item_ids from the previous turn to continue a conversation.",
	}, s.handleAsk)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_item",
		Description: "Get one knowledge item by id, with its importance and related items.",
	}, s.handleGetItem)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_items",
		Description: "List knowledge items, optionally by kind or skill, most important first.",
	}, s.handleListItems)
}

// --- Tool handlers ---

// handleAsk returns the engine response as untyped output: quick actions
// nest, which a generated output schema cannot express.
func (s *Server) handleAsk(ctx context.Context, _ *gomcp.CallToolRequest, in askInput) (*gomcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Query) == "" {
		return errorResult("query is required"), nil, nil
	}
	var intent model.Intent
	if in.Intent != "" {
		i, ok := model.ParseIntent(in.Intent)
		if !ok {
			return errorResult(fmt.Sprintf("unknown intent %q", in.Intent)), nil, nil
		}
		intent = i
	}
	resp := s.asker.Ask(ctx, engine.Request{
		Query:          in.Query,
		PreviousQuery:  in.PreviousQuery,
		PreviousAnswer: in.PreviousAnswer,
		Depth:          in.Depth,
		Intent:         intent,
		Filters:        in.Filters,
		VisitedItemIDs: in.VisitedItemIDs,
	}, nil)
	s.log.Debug("ask", zap.String("request_id", resp.RequestID))
	return nil, resp, nil
}

func (s *Server) handleGetItem(_ context.Context, _ *gomcp.CallToolRequest, in getItemInput) (*gomcp.CallToolResult, itemOutput, error) {
	if in.ID == "" {
		return errorResult("id is required"), itemOutput{}, nil
	}
	it, ok := s.cat.Item(in.ID)
	if !ok {
		return errorResult(fmt.Sprintf("getting item %s: %s", in.ID, store.ErrNotFound)), itemOutput{}, nil
	}
	b := it.Core()
	out := itemOutput{
		ID:         b.ID,
		Kind:       string(b.Kind),
		Title:      it.DisplayName(),
		Org:        it.Org(),
		Dates:      model.DateLabel(it),
		Summary:    b.Summary,
		Specifics:  b.Specifics,
		Skills:     b.Skills,
		Tags:       b.Tags,
		URL:        b.URL,
		Importance: s.cat.Importance(b.ID),
	}
	for _, l := range s.cat.Related(b.ID) {
		out.Related = append(out.Related, l.ToID)
	}
	return nil, out, nil
}

func (s *Server) handleListItems(_ context.Context, _ *gomcp.CallToolRequest, in listItemsInput) (*gomcp.CallToolResult, listItemsOutput, error) {
	f := &model.QueryFilter{}
	if in.Kind != "" {
		k, ok := model.ParseKind(in.Kind)
		if !ok {
			return errorResult(fmt.Sprintf("unknown kind %q", in.Kind)), listItemsOutput{}, nil
		}
		f.Types = []model.Kind{k}
	}
	if in.Skill != "" {
		f.Skills = []string{in.Skill}
	}
	items := filter.Apply(s.cat.Items, f, s.cat.Aliases)
	out := listItemsOutput{Items: make([]itemSummary, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, itemSummary{
			ID:         it.ItemID(),
			Kind:       string(it.ItemKind()),
			Title:      it.DisplayName(),
			Dates:      model.DateLabel(it),
			Importance: s.cat.Importance(it.ItemID()),
		})
	}
	sortByImportance(out.Items)
	if in.Limit > 0 && len(out.Items) > in.Limit {
		out.Items = out.Items[:in.Limit]
	}
	out.Count = len(out.Items)
	return nil, out, nil
}

func sortByImportance(items []itemSummary) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Importance > items[j].Importance })
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
