package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizePlanObjectRoundTrip(t *testing.T) {
	raw := `{
		"name": "hello",
		"description": "demo",
		"files": [
			{"filename": "main.py", "code": "print('hi')\n"},
			{"filename": "pkg/util.py", "code": "X = 1\n"}
		],
		"post_install": ["pip install requests"],
		"run": "python main.py"
	}`

	got := Normalize(raw, "")
	want := Plan{
		Name:        "hello",
		Description: "demo",
		Files: []FileEntry{
			{Filename: "main.py", Code: "print('hi')\n"},
			{Filename: "pkg/util.py", Code: "X = 1\n"},
		},
		PostInstall: []string{"pip install requests"},
		Run:         "python main.py",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeFencedBlock(t *testing.T) {
	raw := "Here is your project:\n```json\n{\"name\": \"x\", \"files\": [{\"filename\": \"a.py\", \"code\": \"pass\"}]}\n```\nEnjoy!"
	got := Normalize(raw, "")
	if got.Name != "x" || len(got.Files) != 1 || got.Files[0].Filename != "a.py" {
		t.Errorf("fenced block not extracted: %+v", got)
	}
}

func TestNormalizeBracesInsideStrings(t *testing.T) {
	// File contents contain unbalanced braces inside JSON strings; the
	// balanced scan must not be fooled by them.
	raw := "noise {\"name\": \"b\", \"files\": [{\"filename\": \"m.go\", \"code\": \"func main() { fmt.Println(\\\"}}}\\\") \"}]} trailing"
	got := Normalize(raw, "")
	if got.Name != "b" || len(got.Files) != 1 {
		t.Fatalf("balanced extraction failed: %+v", got)
	}
	if got.Files[0].Filename != "m.go" {
		t.Errorf("filename = %q", got.Files[0].Filename)
	}
}

func TestNormalizeFileKeyedObject(t *testing.T) {
	raw := `{"main.py": "print(1)", "requirements.txt": "requests", "notes": "ignored"}`
	got := Normalize(raw, "")
	if len(got.Files) != 2 {
		t.Fatalf("expected 2 harvested files, got %d: %+v", len(got.Files), got.Files)
	}
	names := map[string]bool{}
	for _, f := range got.Files {
		names[f.Filename] = true
	}
	if !names["main.py"] || !names["requirements.txt"] {
		t.Errorf("harvested names = %v", names)
	}
	if got.Run != "python main.py" {
		t.Errorf("inferred run = %q", got.Run)
	}
}

func TestNormalizeFileArray(t *testing.T) {
	raw := `[{"filename": "/index.js", "code": "console.log(1)"}, {"filename": "package.json", "code": "{}"}]`
	got := Normalize(raw, "")
	if len(got.Files) != 2 {
		t.Fatalf("expected 2 files, got %+v", got.Files)
	}
	if got.Files[0].Filename != "index.js" {
		t.Errorf("leading separator not stripped: %q", got.Files[0].Filename)
	}
	if got.Run != "npm start" {
		t.Errorf("run = %q, want npm start", got.Run)
	}
}

func TestNormalizeTrailingCommas(t *testing.T) {
	raw := `{"name": "t", "files": [{"filename": "a.py", "code": "pass"},],}`
	got := Normalize(raw, "")
	if got.Name != "t" || len(got.Files) != 1 {
		t.Errorf("trailing commas not tolerated: %+v", got)
	}
}

func TestNormalizeGarbageWrapsAndPersists(t *testing.T) {
	badPath := filepath.Join(t.TempDir(), "diag", "bad_reply.txt")
	raw := "{ broken json"

	got := Normalize(raw, badPath)
	if len(got.Files) != 1 {
		t.Fatalf("expected one wrapped file, got %+v", got.Files)
	}
	if got.Files[0].Filename != "main.py" || got.Files[0].Code != raw {
		t.Errorf("wrapped file = %+v", got.Files[0])
	}
	if got.Run != "python main.py" {
		t.Errorf("run = %q", got.Run)
	}

	saved, err := os.ReadFile(badPath)
	if err != nil {
		t.Fatalf("diagnostic file not written: %v", err)
	}
	if string(saved) != raw {
		t.Errorf("diagnostic content = %q, want verbatim raw", saved)
	}
}

func TestNormalizeNeverReturnsEmptyFiles(t *testing.T) {
	for _, raw := range []string{"just some text", "{ nope", "[1, 2, 3]", "42"} {
		got := Normalize(raw, "")
		if len(got.Files) == 0 {
			t.Errorf("Normalize(%q) returned no files", raw)
		}
	}
}

func TestNormalizePostInstallCoercion(t *testing.T) {
	raw := `{"name": "p", "files": [{"filename": "a.py", "code": ""}], "post_install": "pip install x"}`
	got := Normalize(raw, "")
	if len(got.PostInstall) != 1 || got.PostInstall[0] != "pip install x" {
		t.Errorf("post_install = %v", got.PostInstall)
	}

	raw = `{"name": "p", "files": [{"filename": "a.py", "code": ""}], "post_install": ["ok", 5, {"bad": true}]}`
	got = Normalize(raw, "")
	if diff := cmp.Diff([]string{"ok", "5"}, got.PostInstall); diff != "" {
		t.Errorf("post_install mismatch (-want +got):\n%s", diff)
	}
}

func TestGuessRunPriority(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{[]string{"run.sh", "main.py"}, "./run.sh"},
		{[]string{"run.command"}, "./run.command"},
		{[]string{"run.bat"}, "run.bat"},
		{[]string{"tool/__main__.py", "tool/core.py"}, "python -m tool"},
		{[]string{"longpkg/__main__.py", "ab/__main__.py"}, "python -m ab"},
		{[]string{"main.py", "app.py"}, "python main.py"},
		{[]string{"app.py"}, "python app.py"},
		{[]string{"package.json", "index.js"}, "npm start"},
		{[]string{"whatever.rs"}, ""},
	}
	for _, tc := range cases {
		if got := GuessRun(tc.names); got != tc.want {
			t.Errorf("GuessRun(%v) = %q, want %q", tc.names, got, tc.want)
		}
	}
}
