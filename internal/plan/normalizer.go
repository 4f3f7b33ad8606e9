package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"planforge/internal/logging"
)

// Normalize turns arbitrary model output into a Plan. It is total: any
// input, including unparseable garbage, yields a usable Plan. When every
// JSON candidate fails and badReplyPath is non-empty, the raw text is
// persisted there for post-mortem inspection.
func Normalize(raw string, badReplyPath string) Plan {
	for _, cand := range extractCandidates(raw) {
		root, err := decodeLenient(cand)
		if err != nil {
			logging.PlanWarn("JSON candidate rejected: %v", err)
			continue
		}
		logging.Plan("Parsed JSON candidate (%d bytes)", len(cand))
		return fromValue(root)
	}

	if root, err := decodeLenient(raw); err == nil {
		logging.Plan("Parsed raw reply as JSON")
		return fromValue(root)
	}

	logging.PlanWarn("All JSON parsing failed; wrapping raw text as a script")
	if badReplyPath != "" {
		if err := os.MkdirAll(filepath.Dir(badReplyPath), 0755); err == nil {
			if err := os.WriteFile(badReplyPath, []byte(raw), 0644); err != nil {
				logging.PlanWarn("Failed to save bad reply: %v", err)
			} else {
				logging.Plan("Saved bad reply to %s", badReplyPath)
			}
		}
	}
	return fromValue(raw)
}

var jsonFence = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\}|\\[.*?\\])\\s*```")

// extractCandidates returns candidate JSON substrings in decode order:
// fenced blocks first, then the first balanced object and array found
// anywhere in the input.
func extractCandidates(raw string) []string {
	var cands []string
	for _, m := range jsonFence.FindAllStringSubmatch(raw, -1) {
		cands = append(cands, m[1])
	}
	if len(cands) > 0 {
		return cands
	}
	if obj := balancedSlice(raw, '{', '}'); obj != "" {
		cands = append(cands, obj)
	}
	if arr := balancedSlice(raw, '[', ']'); arr != "" {
		cands = append(cands, arr)
	}
	return cands
}

// balancedSlice finds the first top-level open..close span, tracking JSON
// string literals so braces inside file contents do not unbalance the scan.
func balancedSlice(raw string, open, close byte) string {
	start := strings.IndexByte(raw, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// decodeLenient parses JSON with trailing-comma tolerance.
func decodeLenient(txt string) (interface{}, error) {
	cleaned := trailingComma.ReplaceAllString(txt, "$1")
	var root interface{}
	if err := json.Unmarshal([]byte(cleaned), &root); err != nil {
		return nil, err
	}
	return root, nil
}

// fileLikeExts are key suffixes that mark an object key as a file path
// when a plan object has no "files" list.
var fileLikeExts = []string{
	".py", ".js", ".ts", ".tsx", ".txt", ".md", ".sh", ".bat", ".command",
	".json", ".yaml", ".yml", ".go", ".rs", ".java", ".cpp", ".hpp", ".cc", ".cxx",
	"CMakeLists.txt", "build.gradle", "settings.gradle", "pom.xml",
}

func fileLikeKey(k string) bool {
	for _, ext := range fileLikeExts {
		if strings.HasSuffix(k, ext) {
			return true
		}
	}
	return false
}

// fromValue maps a decoded JSON value onto a Plan, one normalization per
// structural shape: plan object, file array, bare string, anything else.
func fromValue(root interface{}) Plan {
	switch v := root.(type) {
	case map[string]interface{}:
		return fromObject(v)
	case []interface{}:
		return fromArray(v)
	case string:
		return Plan{
			Name:        "Generated Script",
			Description: "Wrapped single code block",
			Files:       []FileEntry{{Filename: "main.py", Code: v}},
			PostInstall: []string{},
			Run:         "python main.py",
		}
	default:
		return Plan{
			Name:        "Generated Project",
			Description: "Unrecognized model shape",
			Files:       []FileEntry{{Filename: "main.txt", Code: fmt.Sprintf("%v", root)}},
			PostInstall: []string{},
			Run:         "",
		}
	}
}

func fromObject(root map[string]interface{}) Plan {
	var files []FileEntry

	if rawFiles, ok := root["files"].([]interface{}); ok {
		files = cleanFileList(rawFiles)
	} else {
		// Harvest file-like keys: {"main.py": "...", "requirements.txt": "..."}
		keys := make([]string, 0, len(root))
		for k := range root {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if code, ok := root[k].(string); ok && fileLikeKey(k) {
				files = append(files, FileEntry{Filename: stripLeadingSeps(k), Code: code})
			}
		}
	}

	p := Plan{
		Name:        stringField(root, "name", "Generated Project"),
		Description: stringField(root, "description", ""),
		Files:       files,
		PostInstall: coercePostInstall(root["post_install"]),
		Run:         stringField(root, "run", ""),
	}
	if p.Run == "" {
		p.Run = GuessRun(p.Filenames())
	}
	return p
}

func fromArray(arr []interface{}) Plan {
	files := cleanFileList(arr)
	if len(files) == 0 {
		dump, _ := json.MarshalIndent(arr, "", "  ")
		return Plan{
			Name:        "Generated Project",
			Description: "Auto-wrapped array response",
			Files:       []FileEntry{{Filename: "main.txt", Code: string(dump)}},
			PostInstall: []string{},
			Run:         "",
		}
	}
	p := Plan{
		Name:        "Generated Project",
		Description: "Auto-wrapped file list",
		Files:       files,
		PostInstall: []string{},
	}
	p.Run = GuessRun(p.Filenames())
	return p
}

// cleanFileList keeps only well-formed {filename, code} objects and strips
// leading path separators so entries stay relative.
func cleanFileList(items []interface{}) []FileEntry {
	var files []FileEntry
	for _, it := range items {
		obj, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		name, nameOK := obj["filename"].(string)
		code, codeOK := obj["code"].(string)
		if !nameOK || !codeOK || name == "" {
			continue
		}
		files = append(files, FileEntry{Filename: stripLeadingSeps(name), Code: code})
	}
	return files
}

func stripLeadingSeps(name string) string {
	return strings.TrimLeft(name, "/\\")
}

func stringField(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

// coercePostInstall normalizes post_install to a string list. Scalars are
// stringified; composite values are dropped.
func coercePostInstall(v interface{}) []string {
	switch pv := v.(type) {
	case nil:
		return []string{}
	case []interface{}:
		out := make([]string, 0, len(pv))
		for _, item := range pv {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case float64, bool:
				out = append(out, fmt.Sprintf("%v", s))
			default:
				logging.PlanWarn("Dropping non-scalar post_install entry: %T", item)
			}
		}
		return out
	case string:
		return []string{pv}
	default:
		return []string{fmt.Sprintf("%v", pv)}
	}
}

// GuessRun infers a run hint from the file-name set, in priority order:
// explicit launchers, python -m packages, conventional python entry files,
// npm start. Empty means "infer later from the materialized files".
func GuessRun(names []string) string {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	if set["run.sh"] {
		return "./run.sh"
	}
	if set["run.command"] {
		return "./run.command"
	}
	if set["run.bat"] {
		return "run.bat"
	}

	var pkgs []string
	for _, n := range names {
		if strings.HasSuffix(n, "/__main__.py") {
			pkgs = append(pkgs, strings.SplitN(n, "/", 2)[0])
		}
	}
	if len(pkgs) > 0 {
		sort.Slice(pkgs, func(i, j int) bool { return len(pkgs[i]) < len(pkgs[j]) })
		return "python -m " + pkgs[0]
	}

	for _, cand := range []string{"main.py", "app.py"} {
		if set[cand] {
			return "python " + cand
		}
	}
	if set["package.json"] {
		return "npm start"
	}
	return ""
}
