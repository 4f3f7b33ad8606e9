package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"planforge/internal/materialize"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

// cppStrategy prefers a CMake release build, falling back to compiling
// loose .cpp files directly when no CMakeLists.txt or cmake binary is
// available.
type cppStrategy struct {
	runner *shell.Runner
}

func (s *cppStrategy) Tag() stack.Tag { return stack.Cpp }

func (s *cppStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	runPostInstall(ctx, s.runner, req, &out, nil)

	if exists(filepath.Join(dir, "CMakeLists.txt")) && shell.Which("cmake") {
		if hint := s.cmakeBuild(ctx, dir, &out); hint != "" {
			out.RunHint = hint
			return out
		}
	}

	if hint := s.directCompile(ctx, dir, &out); hint != "" {
		out.RunHint = hint
	}
	return out
}

func (s *cppStrategy) cmakeBuild(ctx context.Context, dir string, out *Outcome) string {
	buildDir := filepath.Join(dir, "build")
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		out.warnf("cpp", "creating build dir: %v", err)
		return ""
	}

	res := s.runner.RunLine(ctx, "cmake .. -DCMAKE_BUILD_TYPE=Release", buildDir)
	if !res.OK() {
		out.warnf("cpp", "cmake configure exited %d: %s", res.ExitCode, firstLine(res.Stderr))
		return ""
	}
	if res := s.runner.RunLine(ctx, "cmake --build . --config Release", buildDir); !res.OK() {
		out.warnf("cpp", "cmake build exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}

	if exe := largestExecutable(buildDir); exe != "" {
		materialize.EnsureExecutable(exe)
		return exe
	}
	return ""
}

func (s *cppStrategy) directCompile(ctx context.Context, dir string, out *Outcome) string {
	sources := findFiles(dir, ".cpp")
	if len(sources) == 0 || !shell.Which("g++") {
		return ""
	}

	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		out.warnf("cpp", "creating bin dir: %v", err)
		return ""
	}
	outPath := filepath.Join(binDir, "app"+exeSuffix())

	quoted := make([]string, len(sources))
	for i, src := range sources {
		quoted[i] = quote(src)
	}
	line := "g++ -O2 -std=c++17 " + strings.Join(quoted, " ") + " -o " + quote(outPath)
	if res := s.runner.RunLine(ctx, line, dir); !res.OK() {
		out.warnf("cpp", "g++ exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}

	if exists(outPath) {
		materialize.EnsureExecutable(outPath)
		return outPath
	}
	return ""
}
