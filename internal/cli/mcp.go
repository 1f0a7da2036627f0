package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/askfolio/internal/mcpserver"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve askfolio as MCP tools over stdio",
		Run:   runMCP,
	}

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) {
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

	if err := mcpserver.New(eng, cat, Version, logger).Run(cmd.Context()); err != nil {
		exitErr("mcp", err)
	}
}
