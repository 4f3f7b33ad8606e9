package builder

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"planforge/internal/materialize"
	"planforge/internal/shell"
	"planforge/internal/stack"
)

// gradleStrategy builds with the wrapper script when present, else the
// system gradle, and picks the largest jar under build/libs as the
// runnable artifact.
type gradleStrategy struct {
	runner *shell.Runner
}

func (s *gradleStrategy) Tag() stack.Tag { return stack.JavaGradle }

func (s *gradleStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	runPostInstall(ctx, s.runner, req, &out, nil)

	buildLine := "gradle build -x test"
	if wrapper := filepath.Join(dir, "gradlew"); exists(wrapper) {
		materialize.EnsureExecutable(wrapper)
		buildLine = "./gradlew build -x test"
	}
	if res := s.runner.RunLine(ctx, buildLine, dir); !res.OK() {
		out.warnf("java-gradle", "%s exited %d: %s", buildLine, res.ExitCode, firstLine(res.Stderr))
	}

	if jar := largestFile(filepath.Join(dir, "build", "libs"), "*.jar"); jar != "" {
		out.RunHint = `java -jar ` + quote(jar)
	}
	return out
}

// mavenStrategy packages with maven and applies the same largest-jar
// heuristic under target/.
type mavenStrategy struct {
	runner *shell.Runner
}

func (s *mavenStrategy) Tag() stack.Tag { return stack.JavaMaven }

func (s *mavenStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	runPostInstall(ctx, s.runner, req, &out, nil)

	if res := s.runner.RunLine(ctx, "mvn -q -DskipTests package", dir); !res.OK() {
		out.warnf("java-maven", "mvn package exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}

	if jar := largestFile(filepath.Join(dir, "target"), "*.jar"); jar != "" {
		out.RunHint = `java -jar ` + quote(jar)
	}
	return out
}

// javaPlainStrategy compiles loose .java sources with javac into bin/ and
// runs the first class that declares a main method.
type javaPlainStrategy struct {
	runner *shell.Runner
}

func (s *javaPlainStrategy) Tag() stack.Tag { return stack.JavaPlain }

func (s *javaPlainStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	dir := req.ProjectDir

	runPostInstall(ctx, s.runner, req, &out, nil)

	sources := findFiles(dir, ".java")
	if len(sources) == 0 {
		return out
	}

	binDir := filepath.Join(dir, "bin")
	quoted := make([]string, len(sources))
	for i, src := range sources {
		quoted[i] = quote(src)
	}
	line := "javac -d " + quote(binDir) + " " + strings.Join(quoted, " ")
	if res := s.runner.RunLine(ctx, line, dir); !res.OK() {
		out.warnf("java-plain", "javac exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}

	if fqcn := firstMainClass(dir, sources); fqcn != "" {
		out.RunHint = "java -cp " + quote(binDir) + " " + fqcn
	}
	return out
}

// firstMainClass scans sources for a main method and derives the
// fully-qualified class name by dropping src/main/java-style prefix
// components and dot-joining the rest.
func firstMainClass(projectDir string, sources []string) string {
	for _, src := range sources {
		if !strings.Contains(readText(src), "public static void main") {
			continue
		}
		rel, err := filepath.Rel(projectDir, src)
		if err != nil {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		for len(parts) > 0 {
			switch strings.ToLower(parts[0]) {
			case "src", "main", "java":
				parts = parts[1:]
				continue
			}
			break
		}
		if len(parts) == 0 {
			continue
		}
		parts[len(parts)-1] = strings.TrimSuffix(parts[len(parts)-1], ".java")
		return strings.Join(parts, ".")
	}
	return ""
}

// findFiles walks root for regular files with the given suffix.
func findFiles(root, suffix string) []string {
	var found []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, suffix) {
			found = append(found, path)
		}
		return nil
	})
	return found
}
