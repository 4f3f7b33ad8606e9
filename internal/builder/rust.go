package builder

import (
	"context"
	"path/filepath"
	"regexp"

	"planforge/internal/materialize"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

// rustStrategy builds with cargo and probes target/ for the produced
// binary; the crate name comes from Cargo.toml, defaulting to "app".
type rustStrategy struct {
	runner *shell.Runner
}

func (s *rustStrategy) Tag() stack.Tag { return stack.Rust }

var crateName = regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]+)"`)

func (s *rustStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	runPostInstall(ctx, s.runner, req, &out, nil)

	name := "app"
	if m := crateName.FindStringSubmatch(readText(filepath.Join(dir, "Cargo.toml"))); m != nil {
		name = m[1]
	}

	if res := s.runner.RunLine(ctx, "cargo build --release", dir); !res.OK() {
		out.warnf("rust", "cargo build exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}

	for _, profile := range []string{"release", "debug"} {
		exe := filepath.Join(dir, "target", profile, name+exeSuffix())
		if exists(exe) {
			materialize.EnsureExecutable(exe)
			out.RunHint = exe
			return out
		}
	}
	out.RunHint = "cargo run --release"
	return out
}
