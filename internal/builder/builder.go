// Package builder installs dependencies and builds artifacts for a
// materialized project, one strategy per detected stack. Every tool
// invocation is best-effort: failures become warnings on the outcome,
// never errors, because a degraded launcher still beats an aborted apply.
package builder

import (
	"context"

	"planforge/internal/logging"
	"planforge/internal/plan"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

// Warning records one degraded sub-step (tool missing, non-zero exit,
// unreadable manifest). Aggregated onto the final apply result so callers
// can inspect why a run command fell back.
type Warning struct {
	Stage   string
	Message string
}

// Outcome is what a strategy learned about how to run the project.
type Outcome struct {
	// ToolchainRef points at an isolated dependency environment when one
	// was created (currently only python's virtual environment).
	ToolchainRef string

	// RunHint is the stack-computed run command; empty means "use the
	// stack's default heuristics at resolution time".
	RunHint string

	Warnings []Warning
}

func (o *Outcome) warnf(stage, format string, args ...interface{}) {
	logging.BuildWarn("[%s] "+format, append([]interface{}{stage}, args...)...)
	o.Warnings = append(o.Warnings, Warning{Stage: stage, Message: sprintf(format, args...)})
}

// Request carries everything a strategy needs.
type Request struct {
	ProjectDir string
	Plan       plan.Plan
}

// Strategy installs dependencies and builds one stack family.
type Strategy interface {
	Tag() stack.Tag
	Build(ctx context.Context, req Request) Outcome
}

// Builder dispatches to the strategy for a detected stack tag. The table
// is closed: every stack.Tag has exactly one entry.
type Builder struct {
	strategies map[stack.Tag]Strategy
}

// New creates a builder with the full strategy table wired to runner.
func New(runner *shell.Runner) *Builder {
	b := &Builder{strategies: make(map[stack.Tag]Strategy)}
	for _, s := range []Strategy{
		&pythonStrategy{runner: runner},
		&nodeStrategy{runner: runner},
		&goStrategy{runner: runner},
		&rustStrategy{runner: runner},
		&gradleStrategy{runner: runner},
		&mavenStrategy{runner: runner},
		&javaPlainStrategy{runner: runner},
		&cppStrategy{runner: runner},
		&genericStrategy{runner: runner},
	} {
		b.strategies[s.Tag()] = s
	}
	return b
}

// Build runs the strategy for tag. Unknown tags (impossible for a closed
// enum, but kept total) behave like generic.
func (b *Builder) Build(ctx context.Context, tag stack.Tag, req Request) Outcome {
	timer := logging.StartTimer(logging.CategoryBuild, "stack build "+string(tag))
	defer timer.Stop()

	s, ok := b.strategies[tag]
	if !ok {
		s = b.strategies[stack.Generic]
	}
	logging.Build("Building %s project in %s", tag, req.ProjectDir)
	return s.Build(ctx, req)
}

// runPostInstall executes each post_install command in the project dir,
// collecting warnings for failures. Extra env entries apply to every
// command (python prepends its venv bin directory to PATH this way).
func runPostInstall(ctx context.Context, runner *shell.Runner, req Request, out *Outcome, env []string) {
	for _, cmdLine := range req.Plan.PostInstall {
		res := runner.Run(ctx, shell.Command{Line: cmdLine, Dir: req.ProjectDir, Env: env})
		if !res.OK() {
			out.warnf("post_install", "command %q exited %d: %s", cmdLine, res.ExitCode, firstLine(res.Stderr))
		}
	}
}
