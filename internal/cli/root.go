// Package cli implements the askfolio CLI commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/askfolio/internal/config"
	"github.com/rcliao/askfolio/internal/kb"
	"github.com/rcliao/askfolio/internal/logging"
	"github.com/rcliao/askfolio/internal/ranking"
	"github.com/rcliao/askfolio/internal/store"
)

// Version is stamped at build time.
var Version = "dev"

var (
	cfgFile    string
	dbPath     string
	formatFlag string

	cfg    *config.Config
	logger = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "askfolio",
	Short: "Answer questions about a personal knowledge base",
	Long: "askfolio indexes a YAML knowledge base of projects, jobs, classes and skills, " +
		"then answers questions about it with cited evidence and follow-up actions.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./askfolio.yaml or ~/.askfolio/askfolio.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $ASKFOLIO_DB_PATH or ~/.askfolio/askfolio.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dbPath != "" {
		c.DB.Path = dbPath
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(logging.Config{Level: c.Logging.Level, Format: c.Logging.Format})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	cfg, logger = c, log
	if c.File != "" {
		logger.Debug("config loaded", zap.String("file", c.File))
	}
	return nil
}

func getDBPath() string {
	return cfg.DB.Path
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// loadCatalog builds the process-wide catalog from the index, or straight
// from the knowledge-base file when nothing has been indexed yet.
func loadCatalog(ctx context.Context, s *store.SQLiteStore) (*store.Catalog, error) {
	return store.SharedCatalog(ctx, func(ctx context.Context) (*store.Catalog, error) {
		var rs store.RecordStore = s
		if _, err := s.LastRun(ctx); errors.Is(err, store.ErrNotFound) {
			logger.Info("index is empty, reading knowledge base file", zap.String("path", cfg.KB.Path))
			rs = kb.NewSource(cfg.KB.Path)
		} else if err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		d, err := store.LoadData(ctx, rs)
		if err != nil {
			return nil, err
		}
		d.Rankings = ranking.Fill(d.Rankings, d.Items, time.Now())
		return store.NewCatalog(d), nil
	})
}

func exitErr(msg string, err error) {
	logger.Error(msg, zap.Error(err))
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
