package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/askfolio/internal/chunker"
	"github.com/rcliao/askfolio/internal/embedding"
	"github.com/rcliao/askfolio/internal/kb"
	"github.com/rcliao/askfolio/internal/ranking"
	"github.com/rcliao/askfolio/internal/store"
)

// linksPerItem bounds the related items kept for each item.
const linksPerItem = 5

func init() {
	cmd := &cobra.Command{
		Use:   "index [knowledge.yaml]",
		Short: "Index a knowledge base file",
		Long: "Load the YAML knowledge base, fill in missing importance rankings, embed every " +
			"passage and replace the indexed copy in the database.",
		Args: cobra.MaximumNArgs(1),
		Run:  runIndex,
	}

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	path := cfg.KB.Path
	if len(args) == 1 {
		path = args[0]
	}

	doc, err := kb.NewSource(path).Load()
	if err != nil {
		exitErr("load knowledge base", err)
	}
	emb, err := embedding.New(cfg.EmbeddingConfig())
	if err != nil {
		exitErr("embedding", err)
	}

	data, err := buildIndex(cmd.Context(), doc, emb, cfg.Embedding.Concurrency, time.Now())
	if err != nil {
		exitErr("index", err)
	}
	if emb != nil {
		data.EmbedModel = cfg.Embedding.Provider
		if cfg.Embedding.Model != "" {
			data.EmbedModel += "/" + cfg.Embedding.Model
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, err := s.ReplaceIndex(cmd.Context(), data)
	if err != nil {
		exitErr("write index", err)
	}
	logger.Info("indexed",
		zap.String("path", path),
		zap.Int("items", run.Items),
		zap.Int("passages", run.Passages),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)))

	b, _ := json.MarshalIndent(run, "", "  ")
	fmt.Println(string(b))
}

// buildIndex turns a knowledge-base document into what one index run
// writes. Passages are embedded concurrently, at most limit at a time; a
// nil embedder stores passages without vectors.
func buildIndex(ctx context.Context, doc *kb.Document, emb embedding.Embedder, limit int, now time.Time) (store.IndexData, error) {
	data := store.IndexData{
		Version:  doc.Version,
		Profile:  doc.Profile,
		Items:    doc.Items,
		Rankings: ranking.Fill(doc.Rankings, doc.Items, now),
		Links:    store.DeriveLinks(doc.Items, linksPerItem),
	}

	for _, it := range doc.Items {
		for _, p := range chunker.Passages(it, chunker.DefaultOptions()) {
			data.Passages = append(data.Passages, store.PassageVector{ItemID: p.ItemID, Seq: p.Seq, Text: p.Text})
		}
	}
	if emb == nil {
		return data, nil
	}
	data.Dims = emb.Dims()

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range data.Passages {
		p := &data.Passages[i]
		g.Go(func() error {
			v, err := emb.Embed(gctx, p.Text)
			if err != nil {
				return fmt.Errorf("embed %s/%d: %w", p.ItemID, p.Seq, err)
			}
			p.Vector = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return store.IndexData{}, err
	}
	return data, nil
}
