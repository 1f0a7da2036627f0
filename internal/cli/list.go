package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/askfolio/internal/model"
	"github.com/rcliao/askfolio/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed items",
		Run:   runList,
	}

	cmd.Flags().String("kind", "", "Filter by kind")
	cmd.Flags().IntP("limit", "l", 50, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output item ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	var kind model.Kind
	if kindStr != "" {
		k, ok := model.ParseKind(kindStr)
		if !ok {
			exitErr("list", fmt.Errorf("unknown kind %q", kindStr))
		}
		kind = k
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	items, err := s.ListItems(cmd.Context(), store.ListParams{Kind: kind, Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, it := range items {
			fmt.Printf("%s\t%s\n", it.ItemKind(), it.ItemID())
		}
		return
	}

	b, _ := json.MarshalIndent(items, "", "  ")
	fmt.Println(string(b))
}
