package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"planforge/internal/orchestrator"
	"planforge/internal/watch"
)

var watchScript bool

var watchCmd = &cobra.Command{
	Use:   "watch <drop-dir>",
	Short: "Watch a folder and apply every plan file dropped into it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := orchestrator.New(cfg)
		orch.Observer = recordHistory

		w := watch.New(orch, watch.Options{
			Dir:            args[0],
			Debounce:       time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
			Parallelism:    cfg.Watch.Parallelism,
			DiagnosticsDir: cfg.Paths.DiagnosticsDir,
			IsApp:          !watchScript,
		})
		w.OnResult = func(res orchestrator.Result) {
			fmt.Printf("applied %s -> %s (%s)\n", res.Name, res.ProjectDir, res.Stack)
		}

		logger.Info("watching for plans", zap.String("dir", args[0]))
		err := w.Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchScript, "script", false, "treat dropped plans as plain scripts")
}
