package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/askfolio/internal/kb"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the index as a knowledge base file",
		Long: "Write the indexed knowledge base back out as YAML, including the importance " +
			"rankings computed at index time. The output can be indexed again.",
		Run: runExport,
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("output")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	doc, err := s.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("create output", err)
		}
		defer f.Close()
		w = f
	}
	if err := kb.Encode(w, doc); err != nil {
		exitErr("export", err)
	}
}
