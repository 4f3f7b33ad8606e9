package builder

import (
	"context"
	"os"
	"path/filepath"

	"planforge/internal/materialize"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

// goStrategy tidies modules and tries to build a binary into bin/; when
// the build fails the run hint degrades to `go run .`.
type goStrategy struct {
	runner *shell.Runner
}

func (s *goStrategy) Tag() stack.Tag { return stack.Go }

func (s *goStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	runPostInstall(ctx, s.runner, req, &out, nil)

	if !exists(filepath.Join(dir, "go.mod")) {
		out.RunHint = "go run ."
		return out
	}

	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		out.warnf("go", "creating bin dir: %v", err)
	}
	outPath := filepath.Join(binDir, "app"+exeSuffix())

	if res := s.runner.RunLine(ctx, "go mod tidy", dir); !res.OK() {
		out.warnf("go", "go mod tidy exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}

	res := s.runner.RunLine(ctx, `go build -o `+quote(outPath)+` .`, dir)
	if res.OK() && exists(outPath) {
		materialize.EnsureExecutable(outPath)
		out.RunHint = outPath
		return out
	}
	if !res.OK() {
		out.warnf("go", "go build exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}
	out.RunHint = "go run ."
	return out
}
