package builder

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func sprintf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readText reads a file, returning "" on any error; manifest probing is
// best-effort throughout the builder.
func readText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// largestFile returns the biggest file matching pattern in dir, or "".
// "Biggest" is a heuristic proxy for "the fat/shaded artifact": build
// systems that emit several jars usually make the runnable one largest.
func largestFile(dir, pattern string) string {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	var best string
	var bestSize int64 = -1
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = m, info.Size()
		}
	}
	return best
}

// sharedLibExts are artifacts that carry executable bits but are not
// programs.
var sharedLibExts = map[string]bool{".so": true, ".dylib": true, ".dll": true}

// largestExecutable walks root for the biggest executable-bit regular file
// that is not a shared library, or "".
func largestExecutable(root string) string {
	var best string
	var bestSize int64 = -1
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if sharedLibExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode()&0111 == 0 {
			return nil
		}
		if info.Size() > bestSize {
			best, bestSize = path, info.Size()
		}
		return nil
	})
	return best
}
