package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ironsheep/braille-tools-mcp/internal/history"
	"github.com/ironsheep/braille-tools-mcp/internal/server"
)

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdin/stdout",
	Long:  "Start the MCP server. Requests are read from stdin one per line and responses written to stdout.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.New(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("translation history enabled", "path", cfg.HistoryDB)
	}

	logger.Info("starting braille-mcp", "version", Version, "build_time", BuildTime, "commit", GitCommit)
	logger.Debug("configuration",
		"confidence", cfg.ConfidenceThreshold,
		"iou", cfg.IoUThreshold,
		"model_size", cfg.ModelSize,
		"workers", cfg.Workers)

	srv := server.New(p, server.Options{Version: Version, History: store, Logger: logger})
	if err := srv.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
