// Package launcher resolves the final run command for a built project and
// writes the cross-platform launcher files next to it.
package launcher

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"planforge/internal/builder"
	"planforge/internal/logging"
	"planforge/internal/materialize"
	"planforge/internal/stack"
)

// Resolve determines the final run command. Resolution order: the plan's
// explicit run hint (rewritten onto the venv interpreter for python),
// then the stack-computed hint, then stack default heuristics. The result
// may be a diagnostic placeholder but is never meaningless to execute.
func Resolve(projectDir string, tag stack.Tag, planRun, toolchainRef, stackHint string) string {
	if planRun = strings.TrimSpace(planRun); planRun != "" {
		if tag == stack.Python && toolchainRef != "" {
			parts := splitCommand(planRun)
			if len(parts) > 0 && strings.HasPrefix(parts[0], "python") {
				parts[0] = builder.VenvPython(toolchainRef)
				return strings.Join(parts, " ")
			}
		}
		return planRun
	}

	switch tag {
	case stack.Python:
		return resolvePython(projectDir, toolchainRef, stackHint)
	case stack.Node:
		return resolveNode(projectDir)
	case stack.Go:
		return hintOr(stackHint, "go run .")
	case stack.Rust:
		return hintOr(stackHint, "cargo run --release")
	case stack.JavaGradle:
		return hintOr(stackHint, "gradle run")
	case stack.JavaMaven:
		return hintOr(stackHint, "mvn -q exec:java")
	case stack.JavaPlain:
		return hintOr(stackHint, "echo 'No main class found'")
	case stack.Cpp:
		return hintOr(stackHint, "echo 'No executable built'")
	default:
		return stackHint
	}
}

func hintOr(hint, fallback string) string {
	if hint != "" {
		return hint
	}
	return fallback
}

func resolvePython(projectDir, toolchainRef, stackHint string) string {
	// Poetry/PDM wrappers computed at build time win.
	if stackHint != "" {
		return stackHint
	}

	venv := toolchainRef
	if venv == "" {
		venv = builder.VenvDir(projectDir)
	}
	py := builder.VenvPython(venv)

	for _, cand := range []string{"main.py", "app.py"} {
		if fileExists(filepath.Join(projectDir, cand)) {
			return py + " " + cand
		}
	}

	// A package with a __main__.py is runnable via -m.
	var mainPkg string
	_ = filepath.WalkDir(projectDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || mainPkg != "" {
			return nil
		}
		if filepath.Base(path) == "__main__.py" {
			mainPkg = filepath.Base(filepath.Dir(path))
		}
		return nil
	})
	if mainPkg != "" && mainPkg != "." {
		return py + " -m " + mainPkg
	}

	return py + ` -c "print('No entry point; edit run.sh')"`
}

func resolveNode(projectDir string) string {
	pkgPath := filepath.Join(projectDir, "package.json")
	if data, err := os.ReadFile(pkgPath); err == nil {
		var pkg struct {
			Scripts map[string]string `json:"scripts"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			if _, ok := pkg.Scripts["start"]; ok {
				return "npm start"
			}
		}
	}
	for _, cand := range []string{"app.js", "main.js", "index.js"} {
		if fileExists(filepath.Join(projectDir, cand)) {
			return "node " + cand
		}
	}
	return `node -e "console.log('No entry point');"`
}

// Attach ensures run.sh, run.command and run.bat exist next to the
// program and returns the absolute-path variant of the run command.
// Existing launchers are never overwritten, so repeated applies against
// the same directory are idempotent. HOW_TO_RUN.txt is written only for
// plans marked as applications.
func Attach(projectDir string, written []string, directCmd string, isApp bool) (string, error) {
	log := logging.Get(logging.CategoryLauncher)

	effective := strings.TrimSpace(directCmd)
	if effective == "" {
		effective = detectMain(written)
		log.Debug("No resolved command; detected %q from written files", effective)
	}
	absCmd := Absolutize(projectDir, effective)

	posixBody := "#!/usr/bin/env bash\ncd \"$(dirname \"$0\")\"\n" + effective + "\n"
	batBody := "@echo off\r\ncd /d %~dp0\r\n" + effective + "\r\n"

	for _, l := range []struct {
		name, body string
		executable bool
	}{
		{"run.sh", posixBody, true},
		{"run.command", posixBody, true},
		{"run.bat", batBody, false},
	} {
		path := filepath.Join(projectDir, l.name)
		if fileExists(path) {
			continue
		}
		if err := os.WriteFile(path, []byte(l.body), 0644); err != nil {
			return absCmd, err
		}
		if l.executable {
			materialize.EnsureExecutable(path)
		}
		log.Debug("Wrote launcher %s", path)
	}

	if isApp {
		if err := writeHowToRun(projectDir, effective, absCmd); err != nil {
			return absCmd, err
		}
	}

	log.Info("Launchers attached in %s (cmd=%q)", projectDir, effective)
	return absCmd, nil
}

func writeHowToRun(projectDir, effective, absCmd string) error {
	path := filepath.Join(projectDir, "HOW_TO_RUN.txt")
	if fileExists(path) {
		return nil
	}
	absProj, err := filepath.Abs(projectDir)
	if err != nil {
		absProj = projectDir
	}

	var b strings.Builder
	b.WriteString("# How to Run (App)\n\n")
	b.WriteString("## Direct app launch (absolute)\n")
	b.WriteString(absCmd + "\n\n")
	b.WriteString("## Direct app launch (relative; first cd into the folder)\n")
	b.WriteString(effective + "\n\n")
	b.WriteString("## Via launchers\n")
	b.WriteString("Linux (absolute):   " + filepath.Join(absProj, "run.sh") + "\n")
	b.WriteString("macOS (absolute):   " + filepath.Join(absProj, "run.command") + "\n")
	b.WriteString("Windows (absolute): " + filepath.Join(absProj, "run.bat") + "\n\n")
	b.WriteString("Linux (relative):   ./run.sh\n")
	b.WriteString("macOS (relative):   ./run.command\n")
	b.WriteString("Windows (relative): run.bat\n")

	return os.WriteFile(path, []byte(b.String()), 0644)
}

// Absolutize rewrites the first file-like argument of a command to an
// absolute path under projectDir so the command works without a cd.
// Tokens after -m/-c are left alone: module and inline-code invocation
// have no file to absolutize.
func Absolutize(projectDir, cmd string) string {
	if cmd == "" {
		return cmd
	}
	parts := splitCommand(cmd)
	if len(parts) == 0 {
		return cmd
	}

	for i := 1; i < len(parts); i++ {
		tok := parts[i]
		if tok == "-m" || tok == "-c" {
			return cmd
		}
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if strings.ContainsAny(tok, `/\`) || filepath.Ext(tok) != "" {
			if !filepath.IsAbs(tok) {
				if abs, err := filepath.Abs(filepath.Join(projectDir, tok)); err == nil {
					parts[i] = abs
				}
			}
			break
		}
	}
	return joinCommand(parts)
}

var dunderMain = regexp.MustCompile(`if\s+__name__\s*==\s*["']__main__["']\s*:`)

// detectMain derives a last-resort run command from the files an apply
// just wrote: a script guarded by __main__, else any python file, else a
// package with __init__.py, else a diagnostic echo.
func detectMain(written []string) string {
	var pyFiles []string
	for _, p := range written {
		if strings.HasSuffix(p, ".py") {
			pyFiles = append(pyFiles, p)
		}
	}

	for _, p := range pyFiles {
		if data, err := os.ReadFile(p); err == nil && dunderMain.Match(data) {
			return "python3 " + filepath.Base(p)
		}
	}
	if len(pyFiles) > 0 {
		return "python3 " + filepath.Base(pyFiles[0])
	}

	seen := map[string]bool{}
	for _, p := range written {
		dir := filepath.Dir(p)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if fileExists(filepath.Join(dir, "__init__.py")) {
			return "python3 -m " + filepath.Base(dir)
		}
	}

	return "echo 'No entry point detected'"
}

// splitCommand splits a shell command line on whitespace, honoring single
// and double quotes.
func splitCommand(cmd string) []string {
	var parts []string
	var cur strings.Builder
	var quoteCh byte
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case inQuote:
			if c == quoteCh {
				inQuote = false
			} else {
				cur.WriteByte(c)
			}
		case c == '"' || c == '\'':
			inQuote = true
			quoteCh = c
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return parts
}

// joinCommand rejoins tokens, quoting any that contain whitespace.
func joinCommand(parts []string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		if strings.ContainsAny(p, " \t") {
			out[i] = `"` + p + `"`
		} else {
			out[i] = p
		}
	}
	return strings.Join(out, " ")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
