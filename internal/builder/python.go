package builder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"planforge/internal/materialize"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

// pythonStrategy creates or reuses an isolated interpreter environment at
// <project>/.venv and installs dependencies into it. Projects declaring
// Poetry or PDM delegate entirely to that tool instead.
type pythonStrategy struct {
	runner *shell.Runner
}

func (s *pythonStrategy) Tag() stack.Tag { return stack.Python }

// VenvDir returns the conventional virtual environment root.
func VenvDir(projectDir string) string {
	return filepath.Join(projectDir, ".venv")
}

// VenvPython returns the interpreter path inside a virtual environment.
func VenvPython(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}

// VenvPip returns the pip path inside a virtual environment.
func VenvPip(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "pip.exe")
	}
	return filepath.Join(venvDir, "bin", "pip")
}

func hostPython() string {
	if shell.Which("python3") {
		return "python3"
	}
	return "python"
}

func (s *pythonStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	// Poetry/PDM take precedence over manual installation: when the
	// project declares one and the CLI exists, it owns the whole
	// environment and the run wrapper.
	pyproject := readText(filepath.Join(dir, "pyproject.toml"))
	defaultRun := req.Plan.Run
	if defaultRun == "" {
		defaultRun = "python main.py"
	}
	if strings.Contains(pyproject, "[tool.poetry]") && shell.Which("poetry") {
		if res := s.runner.RunLine(ctx, "poetry install", dir); !res.OK() {
			out.warnf("python", "poetry install exited %d: %s", res.ExitCode, firstLine(res.Stderr))
		}
		out.RunHint = "poetry run " + defaultRun
		return out
	}
	if strings.Contains(pyproject, "[tool.pdm]") && shell.Which("pdm") {
		if res := s.runner.RunLine(ctx, "pdm install", dir); !res.OK() {
			out.warnf("python", "pdm install exited %d: %s", res.ExitCode, firstLine(res.Stderr))
		}
		out.RunHint = "pdm run " + defaultRun
		return out
	}

	venv := VenvDir(dir)
	if !exists(venv) {
		res := s.runner.RunLine(ctx, hostPython()+` -m venv ".venv"`, dir)
		if !res.OK() {
			out.warnf("python", "venv creation failed (exit %d): %s", res.ExitCode, firstLine(res.Stderr))
		}
	}

	if exists(venv) {
		out.ToolchainRef = venv
		materialize.EnsureExecutable(VenvPython(venv))

		pip := VenvPip(venv)
		// Upgrade pip first for install reliability.
		if res := s.runner.RunLine(ctx, quote(pip)+" install --upgrade pip", dir); !res.OK() {
			out.warnf("python", "pip upgrade failed; continuing with existing version")
		}
		if exists(filepath.Join(dir, "requirements.txt")) {
			res := s.runner.RunLine(ctx, quote(pip)+" install -r requirements.txt", dir)
			if !res.OK() {
				out.warnf("python", "requirements install exited %d: %s", res.ExitCode, firstLine(res.Stderr))
			}
		}
	}

	// Post-install commands see the venv's executables first on PATH.
	var env []string
	if out.ToolchainRef != "" {
		binDir := filepath.Dir(VenvPython(out.ToolchainRef))
		env = []string{"PATH=" + binDir + string(os.PathListSeparator) + os.Getenv("PATH")}
	}
	runPostInstall(ctx, s.runner, req, &out, env)

	return out
}

// quote wraps a path for use inside a shell command line.
func quote(path string) string {
	return `"` + path + `"`
}
