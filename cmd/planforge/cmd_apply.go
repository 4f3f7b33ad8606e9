package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"planforge/internal/history"
	"planforge/internal/orchestrator"
	"planforge/internal/plan"
)

var (
	applyScript bool
	applyJSON   bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <plan-file>",
	Short: "Apply a plan file: write, build and attach launchers",
	Long: `Reads a plan file (raw model output is fine; fenced blocks, trailing
commas and bare file lists are all tolerated), materializes it into a
fresh project directory and prepares it to run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading plan file: %w", err)
		}

		badReply := filepath.Join(cfg.Paths.DiagnosticsDir, filepath.Base(args[0])+".bad_reply.txt")
		p := plan.Normalize(string(raw), badReply)
		logger.Info("plan normalized",
			zap.String("name", p.Name),
			zap.Int("files", len(p.Files)))

		orch := orchestrator.New(cfg)
		orch.Observer = recordHistory

		res, err := orch.ApplyPlan(cmd.Context(), p, orchestrator.Options{IsApp: !applyScript})
		if err != nil {
			return err
		}

		if applyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(res)
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyScript, "script", false, "treat the plan as a plain script (skip HOW_TO_RUN.txt)")
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "print the result record as JSON")
}

func printResult(res orchestrator.Result) {
	fmt.Printf("Project:  %s\n", res.ProjectDir)
	fmt.Printf("Stack:    %s\n", res.Stack)
	if res.Venv != "" {
		fmt.Printf("Venv:     %s\n", res.Venv)
	}
	fmt.Printf("Run:      %s\n", res.RunCmd)
	if len(res.Warnings) > 0 {
		fmt.Printf("Warnings: %d\n", len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Printf("  [%s] %s\n", w.Stage, w.Message)
		}
	}
}

// recordHistory appends the result to the apply history. Failures are
// logged, never surfaced; history must not block an apply.
func recordHistory(res orchestrator.Result) {
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	err = store.Append(history.Record{
		ID:         res.ID.String(),
		Name:       res.Name,
		ProjectDir: res.ProjectDir,
		Stack:      string(res.Stack),
		RunCmd:     res.RunCmd,
		Warnings:   len(res.Warnings),
	})
	if err != nil {
		logger.Warn("history append failed", zap.Error(err))
	}
}
