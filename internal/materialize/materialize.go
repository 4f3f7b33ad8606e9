// Package materialize writes a plan's files to disk under a project
// directory, enforcing path containment.
package materialize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"planforge/internal/logging"
	"planforge/internal/plan"
)

// ErrPathTraversal is returned when a plan filename resolves outside the
// project directory. It is the only error kind that aborts an apply, so
// callers can refuse to blindly retry.
var ErrPathTraversal = errors.New("path escapes project directory")

// SafeJoin joins rel onto base and fails closed if the cleaned result is
// not a descendant of base.
func SafeJoin(base, rel string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving base dir: %w", err)
	}
	dest := filepath.Join(absBase, filepath.FromSlash(rel))

	within, err := filepath.Rel(absBase, dest)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	if within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	return dest, nil
}

// Write materializes every file entry under projectDir and returns the
// written paths. All destinations are validated before the first write, so
// a traversal attempt anywhere in the plan writes nothing. Writing itself
// is not transactional; the directory is freshly allocated per attempt, so
// a partial write never corrupts prior state.
func Write(p plan.Plan, projectDir string) ([]string, error) {
	log := logging.Get(logging.CategoryMaterialize)

	dests := make([]string, len(p.Files))
	for i, f := range p.Files {
		dest, err := SafeJoin(projectDir, f.Filename)
		if err != nil {
			log.Error("Rejected filename %q: %v", f.Filename, err)
			return nil, err
		}
		dests[i] = dest
	}

	written := make([]string, 0, len(p.Files))
	for i, f := range p.Files {
		dest := dests[i]
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return written, fmt.Errorf("creating parent for %s: %w", f.Filename, err)
		}
		if err := os.WriteFile(dest, []byte(f.Code), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Filename, err)
		}
		if isScriptName(dest) {
			EnsureExecutable(dest)
		}
		written = append(written, dest)
		log.Debug("Wrote %s (%d bytes)", dest, len(f.Code))
	}
	log.Info("Wrote %d files under %s", len(written), projectDir)
	return written, nil
}

// isScriptName reports whether a path should carry executable bits:
// .sh/.command suffixes plus the canonical launcher names.
func isScriptName(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if name == "run.sh" || name == "run.command" {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sh", ".command":
		return true
	}
	return false
}

// EnsureExecutable adds execute bits, preserving existing mode bits.
// Best-effort: failures are ignored, matching launcher semantics where a
// missing +x only degrades convenience.
func EnsureExecutable(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	_ = os.Chmod(path, info.Mode()|0111)
}
