package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		fmt.Printf("db:       %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		fmt.Printf("items:    %d (%d ranked, %d links)\n", stats.TotalItems, stats.Rankings, stats.Links)
		fmt.Printf("passages: %d (%d embedded)\n", stats.Passages, stats.Vectors)
		fmt.Printf("cached:   %d answers\n", stats.CachedAnswers)
		for _, k := range stats.Kinds {
			fmt.Printf("  %-12s %d\n", k.Kind, k.Count)
		}
		if stats.LastRun != nil {
			fmt.Printf("indexed:  %s\n", stats.LastRun.FinishedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
