package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"planforge/internal/config"
	"planforge/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	outputDir  string

	// Shared state built in PersistentPreRunE
	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "planforge",
	Short: "planforge - turn LLM project plans into runnable projects",
	Long: `planforge ingests a model-produced project plan (JSON, possibly
malformed), writes its files under a fresh project directory, detects the
tech stack, installs dependencies and builds with the native toolchain,
and synthesizes run.sh / run.command / run.bat launchers.

Applies never fail on build problems; degraded outcomes surface as
warnings on the result record.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if cfg, err = config.Load(path); err != nil {
			return err
		}
		if outputDir != "" {
			cfg.Paths.OutputDir = outputDir
		}
		if verbose {
			cfg.Logging.Debug = true
			cfg.Logging.Level = "debug"
		}

		if err := logging.Initialize(".", cfg.Logging.Debug, cfg.Logging.Level); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/planforge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "root directory for produced projects")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
