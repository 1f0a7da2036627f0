package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/askfolio/internal/answer"
	"github.com/rcliao/askfolio/internal/config"
	"github.com/rcliao/askfolio/internal/embedding"
	"github.com/rcliao/askfolio/internal/engine"
	"github.com/rcliao/askfolio/internal/intent"
	"github.com/rcliao/askfolio/internal/llm"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/planner"
	"github.com/rcliao/askfolio/internal/retrieval"
	"github.com/rcliao/askfolio/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the knowledge base",
		Long: "Answer one conversational turn. Pass the state printed by the previous turn " +
			"(--depth, --visited, --previous) to continue a conversation.",
		Args: cobra.MinimumNArgs(1),
		Run:  runAsk,
	}

	cmd.Flags().String("previous", "", "Previous question in this conversation")
	cmd.Flags().String("previous-answer", "", "Previous answer in this conversation")
	cmd.Flags().Int("depth", 0, "Conversation depth")
	cmd.Flags().String("intent", "", "Pre-classified intent; with --filters skips classification")
	cmd.Flags().String("filters", "", "Pre-computed filters as JSON")
	cmd.Flags().StringSlice("visited", nil, "Item ids already shown (comma-separated)")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	prev, _ := cmd.Flags().GetString("previous")
	prevAnswer, _ := cmd.Flags().GetString("previous-answer")
	depth, _ := cmd.Flags().GetInt("depth")
	intentStr, _ := cmd.Flags().GetString("intent")
	filtersStr, _ := cmd.Flags().GetString("filters")
	visited, _ := cmd.Flags().GetStringSlice("visited")

	req := engine.Request{
		Query:          strings.Join(args, " "),
		PreviousQuery:  prev,
		PreviousAnswer: prevAnswer,
		Depth:          depth,
		VisitedItemIDs: visited,
	}
	if intentStr != "" {
		it, ok := model.ParseIntent(intentStr)
		if !ok {
			exitErr("parse intent", fmt.Errorf("unknown intent %q", intentStr))
		}
		req.Intent = it
	}
	if filtersStr != "" {
		var f model.QueryFilter
		if err := json.Unmarshal([]byte(filtersStr), &f); err != nil {
			exitErr("parse filters", err)
		}
		req.Filters = &f
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	cat, err := loadCatalog(cmd.Context(), s)
	if err != nil {
		exitErr("load catalog", err)
	}
	eng, err := newEngine(cfg, cat, s, logger)
	if err != nil {
		exitErr("build engine", err)
	}

	if formatFlag == "text" {
		resp := eng.Ask(cmd.Context(), req, func(chunk string) { fmt.Fprint(os.Stdout, chunk) })
		fmt.Println()
		printActions(resp.QuickActions, "")
		return
	}

	resp := eng.Ask(cmd.Context(), req, nil)
	b, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(b))
}

func printActions(actions []model.QuickAction, indent string) {
	for _, a := range actions {
		switch {
		case a.URL != "":
			fmt.Printf("%s- %s <%s>\n", indent, a.Label, a.URL)
		case a.Query != "":
			fmt.Printf("%s- %s (%q)\n", indent, a.Label, a.Query)
		default:
			fmt.Printf("%s- %s\n", indent, a.Label)
		}
		printActions(a.Options, indent+"  ")
	}
}

// newEngine wires the pipeline from configuration. Without an LLM provider
// the classifier relies on its pre-router and answers come from templates.
func newEngine(c *config.Config, cat *store.Catalog, cache engine.Cache, log *zap.Logger) (*engine.Engine, error) {
	client, err := llm.New(c.LLMConfig())
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	var emb embedding.Embedder
	if cat.HasVectors() {
		if emb, err = embedding.New(c.EmbeddingConfig()); err != nil {
			return nil, fmt.Errorf("embedding: %w", err)
		}
	}

	classifierModel := c.LLM.ClassifierModel
	if classifierModel == "" {
		classifierModel = c.LLM.Model
	}

	var gen answer.Generator = answer.Template{}
	if client != nil {
		primary := answer.NewLLM(client, answer.Config{Model: c.LLM.Model, Timeout: c.LLM.AnswerTimeout}, log)
		gen = answer.WithFallback(primary, answer.Template{}, log)
	}
	if !c.Cache.Enabled {
		cache = nil
	}

	return engine.New(engine.Deps{
		Catalog:    cat,
		Classifier: intent.New(client, intent.Config{Model: classifierModel, Timeout: c.LLM.ClassifierTimeout}, log),
		Retriever:  retrieval.New(emb, cat, retrieval.Config{Timeout: c.Embedding.Timeout}, log),
		Planner: planner.New(cat, cat.Profile, planner.Config{
			SpecificCeiling: c.Planner.SpecificCeiling,
			FollowUpCeiling: c.Planner.FollowUpCeiling,
			MaxActions:      c.Planner.MaxActions,
		}),
		Generator: gen,
		Cache:     cache,
		Log:       log,
	}, engine.Config{
		TopK:     c.Retrieval.TopK,
		Quotas:   c.Quotas(),
		Total:    c.Rerank.Total,
		CacheTTL: c.Cache.TTL,
	}), nil
}
