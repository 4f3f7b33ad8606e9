// Package stack classifies a plan's file set into a technology stack.
package stack

import (
	"path/filepath"
	"strings"
)

// Tag is the detected technology/toolchain family. The enumeration is
// closed; Detect always returns one of these values.
type Tag string

const (
	Python     Tag = "python"
	Node       Tag = "node"
	Go         Tag = "go"
	Rust       Tag = "rust"
	JavaGradle Tag = "java-gradle"
	JavaMaven  Tag = "java-maven"
	JavaPlain  Tag = "java-plain"
	Cpp        Tag = "cpp"
	Generic    Tag = "generic"
)

// Detect classifies a file-name set. Pure and order-independent: the same
// set yields the same tag regardless of input order. Precedence matters
// because signals coexist (a Python project can carry a frontend
// package.json); first match wins.
func Detect(names []string) Tag {
	set := make(map[string]bool, len(names))
	anySuffix := func(suffixes ...string) bool {
		for n := range set {
			for _, s := range suffixes {
				if strings.HasSuffix(n, s) {
					return true
				}
			}
		}
		return false
	}
	for _, n := range names {
		set[strings.ToLower(filepath.ToSlash(n))] = true
	}

	has := func(exact ...string) bool {
		for _, e := range exact {
			if set[e] {
				return true
			}
		}
		return false
	}

	switch {
	case has("pyproject.toml", "requirements.txt") || anySuffix(".py"):
		return Python
	case has("package.json") || anySuffix(".js", ".ts", ".tsx"):
		return Node
	case has("go.mod") || anySuffix(".go"):
		return Go
	case has("cargo.toml"):
		return Rust
	case has("build.gradle", "settings.gradle", "gradlew", "gradlew.bat"):
		return JavaGradle
	case has("pom.xml"):
		return JavaMaven
	case anySuffix(".java"):
		return JavaPlain
	case has("cmakelists.txt") || anySuffix(".cpp", ".hpp", ".cc", ".cxx"):
		return Cpp
	default:
		return Generic
	}
}
