package builder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"planforge/internal/shell"
	"planforge/internal/stack"
)

// nodeStrategy installs dependencies with the package manager the lock
// file points at, then heals the common LLM-generation gap of a vite
// config referencing plugins that were never declared.
type nodeStrategy struct {
	runner *shell.Runner
}

func (s *nodeStrategy) Tag() stack.Tag { return stack.Node }

func (s *nodeStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	// Lock-file evidence picks the package manager; bare npm install is
	// the no-lockfile fallback.
	var installCmd string
	switch {
	case exists(filepath.Join(dir, "yarn.lock")) && shell.Which("yarn"):
		installCmd = "yarn install"
	case exists(filepath.Join(dir, "pnpm-lock.yaml")) && shell.Which("pnpm"):
		installCmd = "pnpm install"
	case exists(filepath.Join(dir, "package-lock.json")):
		installCmd = "npm ci"
	default:
		installCmd = "npm install"
	}
	if res := s.runner.RunLine(ctx, installCmd, dir); !res.OK() {
		out.warnf("node", "%s exited %d: %s", installCmd, res.ExitCode, firstLine(res.Stderr))
	}

	s.healVitePlugins(ctx, dir, &out)

	runPostInstall(ctx, s.runner, req, &out, nil)
	return out
}

// vitePlugins maps a vite.config reference to the dev dependency that
// provides it.
var vitePlugins = []string{
	"@vitejs/plugin-react",
	"@vitejs/plugin-vue",
	"@sveltejs/vite-plugin-svelte",
}

// healVitePlugins installs vite plugins the config references but
// package.json never declared.
func (s *nodeStrategy) healVitePlugins(ctx context.Context, dir string, out *Outcome) {
	deps := declaredDeps(filepath.Join(dir, "package.json"))

	var cfgText string
	for _, name := range []string{"vite.config.ts", "vite.config.js", "vite.config.mjs", "vite.config.cjs"} {
		if txt := readText(filepath.Join(dir, name)); txt != "" {
			cfgText = txt
			break
		}
	}
	if cfgText == "" {
		return
	}

	install := func(pkg string) {
		res := s.runner.RunLine(ctx, "npm install -D "+pkg, dir)
		if !res.OK() {
			out.warnf("node", "proactive install of %s exited %d", pkg, res.ExitCode)
		}
	}

	if strings.Contains(cfgText, "vite") && !deps["vite"] {
		install("vite")
	}
	for _, plugin := range vitePlugins {
		if strings.Contains(cfgText, plugin) && !deps[plugin] {
			install(plugin)
		}
	}
}

// declaredDeps returns the union of dependencies and devDependencies keys
// from a package.json, empty on any parse trouble.
func declaredDeps(pkgPath string) map[string]bool {
	deps := make(map[string]bool)
	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return deps
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return deps
	}
	for k := range pkg.Dependencies {
		deps[k] = true
	}
	for k := range pkg.DevDependencies {
		deps[k] = true
	}
	return deps
}
