package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached answers",
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired cached answers",
		Run:   runCachePurge,
	}
	purge.Flags().Bool("all", false, "Delete every cached answer, not just expired ones")

	cmd.AddCommand(purge)
	RootCmd.AddCommand(cmd)
}

func runCachePurge(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.CachePurge(cmd.Context(), all)
	if err != nil {
		exitErr("purge cache", err)
	}
	fmt.Printf(`{"ok":true,"purged":%d}`+"\n", n)
}
