package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"planforge/internal/shell"
)

var runCmd = &cobra.Command{
	Use:   "run <project-dir>",
	Short: "Execute a produced project via its launcher",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]

		launcherName := "run.sh"
		if runtime.GOOS == "windows" {
			launcherName = "run.bat"
		}
		launcher := filepath.Join(dir, launcherName)
		if _, err := os.Stat(launcher); err != nil {
			return fmt.Errorf("no %s in %s; was this directory produced by apply?", launcherName, dir)
		}

		line := "./" + launcherName
		if runtime.GOOS == "windows" {
			line = launcherName
		}
		runner := shell.NewRunner(0, cfg.Build.MaxOutputBytes)
		res := runner.RunLine(cmd.Context(), line, dir)

		fmt.Print(res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)
		if !res.OK() {
			return fmt.Errorf("%s exited %d", launcherName, res.ExitCode)
		}
		return nil
	},
}
