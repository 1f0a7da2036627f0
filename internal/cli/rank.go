package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/askfolio/internal/kb"
	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/ranking"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rank [knowledge.yaml]",
		Short: "Score items by importance",
		Long:  "Compute the offline importance score of every item with its per-signal breakdown.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRank,
	}

	cmd.Flags().String("kind", "", "Only rank items of this kind")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")

	RootCmd.AddCommand(cmd)
}

func runRank(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")

	path := cfg.KB.Path
	if len(args) == 1 {
		path = args[0]
	}
	doc, err := kb.NewSource(path).Load()
	if err != nil {
		exitErr("load knowledge base", err)
	}

	items := doc.Items
	if kindStr != "" {
		kind, ok := model.ParseKind(kindStr)
		if !ok {
			exitErr("rank", fmt.Errorf("unknown kind %q", kindStr))
		}
		items = nil
		for _, it := range doc.Items {
			if it.ItemKind() == kind {
				items = append(items, it)
			}
		}
	}

	out := ranking.Rank(items, time.Now())
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	if formatFlag == "text" {
		for _, b := range out {
			fmt.Printf("%5.1f  %-12s %s  (recency %.0f, complexity %.1f, evidence %.0f, impact %.0f)\n",
				b.Total, b.Kind, b.ID, b.Recency, b.Complexity, b.Evidence, b.Impact)
		}
		return
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
