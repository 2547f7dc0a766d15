package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/braille-tools-mcp/internal/config"
	"github.com/ironsheep/braille-tools-mcp/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var mainCMD = &cobra.Command{
	Use:   "braille-mcp",
	Short: "MCP server for Braille detection post-processing",
	Long: `braille-mcp turns raw Braille cell detections into reading-ordered cells and
translated text. Without a subcommand it serves MCP over stdin/stdout.

Settings come from BRAILLE_MCP_* environment variables or a .env file.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	mainCMD.PersistentFlags().String("env-file", "", "Load settings from this .env file instead of ./.env")
	mainCMD.AddCommand(serveCMD)
	mainCMD.AddCommand(translateCMD)
	mainCMD.AddCommand(versionCMD)
}

// loadConfig reads settings and installs the stderr logger; stdout is
// reserved for the MCP protocol and command output.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	var cfg *config.Config
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		c, err := config.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = c
	} else {
		cfg = config.Load()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newPipeline builds the processing pipeline from cfg.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	resolver, err := cfg.Resolver()
	if err != nil {
		return nil, err
	}
	return pipeline.New(resolver, pipeline.Options{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		IoUThreshold:        cfg.IoUThreshold,
		ModelSize:           float64(cfg.ModelSize),
		Workers:             cfg.Workers,
		Logger:              logger,
	}), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mainCMD.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
