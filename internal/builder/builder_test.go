package builder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"planforge/internal/plan"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

func testRunner() *shell.Runner {
	return shell.NewRunner(0, 0)
}

func TestNewCoversEveryTag(t *testing.T) {
	b := New(testRunner())
	for _, tag := range []stack.Tag{
		stack.Python, stack.Node, stack.Go, stack.Rust,
		stack.JavaGradle, stack.JavaMaven, stack.JavaPlain,
		stack.Cpp, stack.Generic,
	} {
		s, ok := b.strategies[tag]
		if !ok {
			t.Fatalf("no strategy registered for %s", tag)
		}
		if s.Tag() != tag {
			t.Errorf("strategy for %s reports tag %s", tag, s.Tag())
		}
	}
}

func TestGoStrategyWithoutModuleFallsBack(t *testing.T) {
	dir := t.TempDir()
	s := &goStrategy{runner: testRunner()}
	out := s.Build(context.Background(), Request{ProjectDir: dir})
	if out.RunHint != "go run ." {
		t.Errorf("RunHint = %q, want go run .", out.RunHint)
	}
}

func TestRustStrategyParsesCrateNameAndDegrades(t *testing.T) {
	dir := t.TempDir()
	cargo := "[package]\nname = \"mycrate\"\nversion = \"0.1.0\"\n"
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(cargo), 0644); err != nil {
		t.Fatal(err)
	}
	// Pre-place a fake built binary so the probe finds it without cargo.
	relDir := filepath.Join(dir, "target", "release")
	if err := os.MkdirAll(relDir, 0755); err != nil {
		t.Fatal(err)
	}
	exe := filepath.Join(relDir, "mycrate"+exeSuffix())
	if err := os.WriteFile(exe, []byte("binary"), 0755); err != nil {
		t.Fatal(err)
	}

	s := &rustStrategy{runner: testRunner()}
	out := s.Build(context.Background(), Request{ProjectDir: dir})
	if out.RunHint != exe {
		t.Errorf("RunHint = %q, want %q", out.RunHint, exe)
	}
}

func TestRustStrategyNoArtifactFallsBack(t *testing.T) {
	s := &rustStrategy{runner: testRunner()}
	out := s.Build(context.Background(), Request{ProjectDir: t.TempDir()})
	if out.RunHint != "cargo run --release" {
		t.Errorf("RunHint = %q", out.RunHint)
	}
}

func TestGenericStrategyRecordsPostInstallFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell test")
	}
	s := &genericStrategy{runner: testRunner()}
	out := s.Build(context.Background(), Request{
		ProjectDir: t.TempDir(),
		Plan:       plan.Plan{PostInstall: []string{"true", "exit 9"}},
	})
	if len(out.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want exactly one", out.Warnings)
	}
	if out.Warnings[0].Stage != "post_install" {
		t.Errorf("warning stage = %q", out.Warnings[0].Stage)
	}
}

func TestGradleStrategyPicksLargestJar(t *testing.T) {
	dir := t.TempDir()
	libs := filepath.Join(dir, "build", "libs")
	if err := os.MkdirAll(libs, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(libs, "thin.jar"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(libs, "fat.jar"), make([]byte, 4096), 0644)

	s := &gradleStrategy{runner: testRunner()}
	out := s.Build(context.Background(), Request{ProjectDir: dir})
	want := `java -jar "` + filepath.Join(libs, "fat.jar") + `"`
	if out.RunHint != want {
		t.Errorf("RunHint = %q, want %q", out.RunHint, want)
	}
}

func TestFirstMainClass(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "main", "java", "com", "example", "App.java")
	if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
		t.Fatal(err)
	}
	code := "package com.example;\npublic class App { public static void main(String[] a) {} }\n"
	if err := os.WriteFile(src, []byte(code), 0644); err != nil {
		t.Fatal(err)
	}
	helper := filepath.Join(dir, "src", "main", "java", "com", "example", "Util.java")
	os.WriteFile(helper, []byte("package com.example;\nclass Util {}\n"), 0644)

	got := firstMainClass(dir, []string{helper, src})
	if got != "com.example.App" {
		t.Errorf("firstMainClass = %q, want com.example.App", got)
	}
}

func TestLargestExecutableSkipsSharedLibs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are POSIX-only")
	}
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "libbig.so"), make([]byte, 8192), 0755)
	os.WriteFile(filepath.Join(dir, "app"), make([]byte, 1024), 0755)
	os.WriteFile(filepath.Join(dir, "data.bin"), make([]byte, 16384), 0644)

	got := largestExecutable(dir)
	if got != filepath.Join(dir, "app") {
		t.Errorf("largestExecutable = %q", got)
	}
}

func TestDeclaredDeps(t *testing.T) {
	dir := t.TempDir()
	pkg := `{"dependencies": {"react": "^18"}, "devDependencies": {"vite": "^5"}}`
	path := filepath.Join(dir, "package.json")
	os.WriteFile(path, []byte(pkg), 0644)

	deps := declaredDeps(path)
	if !deps["react"] || !deps["vite"] {
		t.Errorf("deps = %v", deps)
	}
	if len(declaredDeps(filepath.Join(dir, "missing.json"))) != 0 {
		t.Error("missing package.json should yield no deps")
	}
}
