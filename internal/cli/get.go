package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one indexed item",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("related", false, "Include linked items")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	related, _ := cmd.Flags().GetBool("related")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	item, err := s.GetItem(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	if !related {
		b, _ := json.MarshalIndent(item, "", "  ")
		fmt.Println(string(b))
		return
	}

	links, err := s.GetLinks(cmd.Context(), args[0])
	if err != nil {
		exitErr("get links", err)
	}
	b, _ := json.MarshalIndent(map[string]any{"item": item, "related": links}, "", "  ")
	fmt.Println(string(b))
}
