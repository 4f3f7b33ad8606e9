// Package orchestrator sequences a plan apply: directory allocation, file
// materialization, stack detection, install/build, run-command resolution
// and launcher synthesis, producing one result record per apply.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"planforge/internal/builder"
	"planforge/internal/config"
	"planforge/internal/launcher"
	"planforge/internal/logging"
	"planforge/internal/materialize"
	"planforge/internal/plan"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

// Transformer may rewrite or veto a plan before any file is written.
// Returning an error aborts the apply with nothing on disk.
type Transformer func(plan.Plan) (plan.Plan, error)

// Observer receives the result record after an apply completes.
type Observer func(Result)

// Result is the record returned to the caller for every apply that got
// past plan validation. Degraded outcomes show up as warnings and
// placeholder run commands, never as errors.
type Result struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	ProjectDir string            `json:"project_dir"`
	Stack      stack.Tag         `json:"stack"`
	Venv       string            `json:"venv,omitempty"`
	RunCmd     string            `json:"run_cmd"`
	AbsRunCmd  string            `json:"abs_run_cmd"`
	Warnings   []builder.Warning `json:"warnings,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

// Options adjusts a single apply.
type Options struct {
	// IsApp marks the plan as an end-user application, which adds a
	// HOW_TO_RUN.txt next to the launchers.
	IsApp bool
}

// Orchestrator owns the project-directory lifecycle under one output root.
type Orchestrator struct {
	cfg     *config.Config
	runner  *shell.Runner
	builder *builder.Builder

	// Optional hook points supplied by the embedding caller.
	Transformer Transformer
	Observer    Observer
}

// New builds an orchestrator from config, wiring the shared shell runner
// into every build strategy.
func New(cfg *config.Config) *Orchestrator {
	runner := shell.NewRunner(cfg.GetToolTimeout(), cfg.Build.MaxOutputBytes)
	return &Orchestrator{
		cfg:     cfg,
		runner:  runner,
		builder: builder.New(runner),
	}
}

// ApplyPlan runs the full pipeline for one plan. The only error returned
// is a pre-write one (transformer veto, path traversal, directory
// allocation); once files are on disk the apply always completes and
// reports problems through Result.Warnings.
func (o *Orchestrator) ApplyPlan(ctx context.Context, p plan.Plan, opts Options) (Result, error) {
	log := logging.Get(logging.CategoryApply)
	timer := logging.StartTimer(logging.CategoryApply, "apply_plan")
	start := time.Now()

	if o.Transformer != nil {
		var err error
		if p, err = o.Transformer(p); err != nil {
			return Result{}, fmt.Errorf("plan transformer: %w", err)
		}
	}

	projectDir, err := allocateDir(o.cfg.Paths.OutputDir, Slugify(p.Name))
	if err != nil {
		return Result{}, err
	}
	log.Info("Applying plan %q into %s (%d files)", p.Name, projectDir, len(p.Files))

	written, err := materialize.Write(p, projectDir)
	if err != nil {
		// Traversal writes nothing, so the freshly claimed directory
		// is empty and can be released.
		_ = os.Remove(projectDir)
		return Result{}, err
	}

	tag := stack.Detect(p.Filenames())
	log.Info("Detected stack %s for %q", tag, p.Name)

	outcome := o.builder.Build(ctx, tag, builder.Request{ProjectDir: projectDir, Plan: p})

	runCmd := launcher.Resolve(projectDir, tag, p.Run, outcome.ToolchainRef, outcome.RunHint)
	absCmd, err := launcher.Attach(projectDir, written, runCmd, opts.IsApp)
	if err != nil {
		outcome.Warnings = append(outcome.Warnings, builder.Warning{
			Stage:   "launcher",
			Message: err.Error(),
		})
	}

	if o.cfg.Build.GitInit {
		o.initGit(ctx, projectDir, &outcome)
	}

	res := Result{
		ID:         uuid.New(),
		Name:       p.Name,
		ProjectDir: projectDir,
		Stack:      tag,
		Venv:       outcome.ToolchainRef,
		RunCmd:     runCmd,
		AbsRunCmd:  absCmd,
		Warnings:   outcome.Warnings,
		Duration:   time.Since(start),
	}

	if o.Observer != nil {
		o.Observer(res)
	}
	timer.Stop()
	log.Info("Apply %s done: stack=%s run=%q warnings=%d", res.ID, tag, runCmd, len(res.Warnings))
	return res, nil
}

// Runner exposes the shared shell runner, for callers that execute the
// produced launchers.
func (o *Orchestrator) Runner() *shell.Runner { return o.runner }

var gitignoreBody = strings.Join([]string{
	".venv/",
	"__pycache__/",
	"node_modules/",
	"target/",
	"build/",
	"bin/",
	"*.log",
	"",
}, "\n")

// initGit turns the produced project into a git repository with one
// initial commit. Every step is best-effort.
func (o *Orchestrator) initGit(ctx context.Context, dir string, out *builder.Outcome) {
	if !shell.Which("git") {
		return
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return
	}

	gi := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gi); os.IsNotExist(err) {
		_ = os.WriteFile(gi, []byte(gitignoreBody), 0644)
	}

	if res := o.runner.RunLine(ctx, "git init", dir); !res.OK() {
		out.Warnings = append(out.Warnings, builder.Warning{
			Stage:   "git",
			Message: fmt.Sprintf("git init exited %d", res.ExitCode),
		})
		return
	}
	_ = o.runner.RunLine(ctx, "git add -A", dir)

	// Commit only when an identity is configured; otherwise git would
	// fail and the repo is still usable staged.
	email := o.runner.RunLine(ctx, "git config user.email", dir)
	if email.OK() && strings.TrimSpace(email.Stdout) != "" {
		if res := o.runner.RunLine(ctx, `git commit -m "Initial commit" -q`, dir); !res.OK() {
			out.Warnings = append(out.Warnings, builder.Warning{
				Stage:   "git",
				Message: fmt.Sprintf("git commit exited %d", res.ExitCode),
			})
		}
	}
}

var (
	slugUnsafe   = regexp.MustCompile(`[^A-Za-z0-9_.\-]+`)
	slugCollapse = regexp.MustCompile(`_{2,}`)
)

// Slugify turns a plan name into a filesystem-safe directory name.
func Slugify(name string) string {
	s := slugUnsafe.ReplaceAllString(strings.TrimSpace(name), "_")
	s = slugCollapse.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._-")
	if s == "" {
		return "project"
	}
	return s
}

// allocateDir claims a fresh directory under root named slug, appending
// -2, -3, ... on collision. Mkdir is the claim, so concurrent applies can
// never share a directory.
func allocateDir(root, slug string) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("creating output root: %w", err)
	}
	for n := 1; ; n++ {
		name := slug
		if n > 1 {
			name = fmt.Sprintf("%s-%d", slug, n)
		}
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("allocating project dir: %w", err)
		}
	}
}
