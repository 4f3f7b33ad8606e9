package launcher

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"planforge/internal/builder"
	"planforge/internal/stack"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolvePlanRunWinsVerbatim(t *testing.T) {
	got := Resolve(t.TempDir(), stack.Node, "npm run dev", "", "node app.js")
	if got != "npm run dev" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolveRewritesPythonInterpreterOntoVenv(t *testing.T) {
	dir := t.TempDir()
	venv := builder.VenvDir(dir)
	got := Resolve(dir, stack.Python, "python main.py --debug", venv, "")
	want := builder.VenvPython(venv) + " main.py --debug"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}

	// python3 counts as a python interpreter token too.
	got = Resolve(dir, stack.Python, "python3 app.py", venv, "")
	if !strings.HasPrefix(got, builder.VenvPython(venv)) {
		t.Errorf("Resolve = %q, want venv interpreter prefix", got)
	}
}

func TestResolvePythonEntryPoints(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "app.py", "print('hi')\n")

	venv := builder.VenvDir(dir)
	got := Resolve(dir, stack.Python, "", venv, "")
	want := builder.VenvPython(venv) + " app.py"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolvePythonModulePackage(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, filepath.Join("mytool", "__main__.py"), "")

	got := Resolve(dir, stack.Python, "", "", "")
	if !strings.HasSuffix(got, " -m mytool") {
		t.Errorf("Resolve = %q, want -m mytool suffix", got)
	}
}

func TestResolvePythonNoEntryPointIsDiagnostic(t *testing.T) {
	got := Resolve(t.TempDir(), stack.Python, "", "", "")
	if !strings.Contains(got, "No entry point") {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolveNodePrefersStartScript(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "package.json", `{"scripts": {"start": "node server.js"}}`)
	write(t, dir, "index.js", "")

	if got := Resolve(dir, stack.Node, "", "", ""); got != "npm start" {
		t.Errorf("Resolve = %q, want npm start", got)
	}
}

func TestResolveNodeEntryFileFallback(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "index.js", "console.log(1)\n")

	if got := Resolve(dir, stack.Node, "", "", ""); got != "node index.js" {
		t.Errorf("Resolve = %q, want node index.js", got)
	}
}

func TestResolveStackDefaults(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		tag  stack.Tag
		hint string
		want string
	}{
		{stack.Go, "", "go run ."},
		{stack.Go, "/abs/bin/app", "/abs/bin/app"},
		{stack.Rust, "", "cargo run --release"},
		{stack.JavaGradle, "", "gradle run"},
		{stack.JavaMaven, "", "mvn -q exec:java"},
		{stack.JavaPlain, "", "echo 'No main class found'"},
		{stack.Cpp, "", "echo 'No executable built'"},
		{stack.Generic, "", ""},
	}
	for _, tc := range cases {
		if got := Resolve(dir, tc.tag, "", "", tc.hint); got != tc.want {
			t.Errorf("Resolve(%s, hint=%q) = %q, want %q", tc.tag, tc.hint, got, tc.want)
		}
	}
}

func TestAttachWritesAllThreeLaunchers(t *testing.T) {
	dir := t.TempDir()
	abs, err := Attach(dir, nil, "python3 main.py", false)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"run.sh", "run.command", "run.bat"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	sh, err := os.ReadFile(filepath.Join(dir, "run.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(sh), `cd "$(dirname "$0")"`) {
		t.Errorf("run.sh missing cd guard:\n%s", sh)
	}
	if !strings.Contains(string(sh), "python3 main.py") {
		t.Errorf("run.sh missing command:\n%s", sh)
	}

	bat, _ := os.ReadFile(filepath.Join(dir, "run.bat"))
	if !strings.Contains(string(bat), "cd /d %~dp0") {
		t.Errorf("run.bat missing cd guard:\n%s", bat)
	}

	if !strings.Contains(abs, dir) {
		t.Errorf("absolute command %q does not reference project dir", abs)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "run.sh"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode()&0111 == 0 {
			t.Error("run.sh is not executable")
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "HOW_TO_RUN.txt")); !os.IsNotExist(err) {
		t.Error("HOW_TO_RUN.txt written for non-app plan")
	}
}

func TestAttachNeverOverwritesExistingLauncher(t *testing.T) {
	dir := t.TempDir()
	custom := "#!/bin/sh\necho custom\n"
	write(t, dir, "run.sh", custom)

	if _, err := Attach(dir, nil, "node app.js", false); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "run.sh"))
	if string(data) != custom {
		t.Errorf("run.sh overwritten: %q", data)
	}
}

func TestAttachWritesHowToRunForApps(t *testing.T) {
	dir := t.TempDir()
	if _, err := Attach(dir, nil, "python3 main.py", true); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "HOW_TO_RUN.txt"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"run.sh", "run.command", "run.bat", "python3 main.py"} {
		if !strings.Contains(text, want) {
			t.Errorf("HOW_TO_RUN.txt missing %q", want)
		}
	}
}

func TestAttachDetectsMainFromWrittenFiles(t *testing.T) {
	dir := t.TempDir()
	helper := write(t, dir, "helper.py", "def f():\n    pass\n")
	main := write(t, dir, "cli.py", "if __name__ == \"__main__\":\n    f()\n")

	if _, err := Attach(dir, []string{helper, main}, "", false); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "run.sh"))
	if !strings.Contains(string(data), "python3 cli.py") {
		t.Errorf("run.sh = %q, want python3 cli.py", data)
	}
}

func TestAbsolutize(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		cmd  string
		want string
	}{
		{"python3 main.py", "python3 " + filepath.Join(dir, "main.py")},
		{"python3 -m mytool", "python3 -m mytool"},
		{`python3 -c "print(1)"`, `python3 -c "print(1)"`},
		{"npm start", "npm start"},
		{"node --trace-warnings app.js", "node --trace-warnings " + filepath.Join(dir, "app.js")},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Absolutize(dir, tc.cmd); got != tc.want {
			t.Errorf("Absolutize(%q) = %q, want %q", tc.cmd, got, tc.want)
		}
	}
}

func TestAbsolutizeQuotesPathsWithSpaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my project")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	got := Absolutize(dir, "python3 main.py")
	if !strings.Contains(got, `"`) {
		t.Errorf("Absolutize = %q, want quoted path", got)
	}
}

func TestSplitCommandHonorsQuotes(t *testing.T) {
	parts := splitCommand(`python3 -c "print('No entry point')"`)
	if len(parts) != 3 {
		t.Fatalf("parts = %q", parts)
	}
	if parts[2] != "print('No entry point')" {
		t.Errorf("quoted token = %q", parts[2])
	}
}
