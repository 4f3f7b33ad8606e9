// Package plan defines the canonical project plan and the tolerant
// normalizer that produces one from raw model output.
package plan

// FileEntry is one (relative path, content) pair. Entries are produced
// once by normalization and never mutated afterwards.
type FileEntry struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
}

// Plan is the canonical unit of work: a named set of files plus optional
// post-install commands and a run hint.
type Plan struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Files       []FileEntry `json:"files"`
	PostInstall []string    `json:"post_install"`

	// Run is a hint command; empty means "infer at build time".
	Run string `json:"run"`
}

// Filenames returns the plan's file names in plan order.
func (p Plan) Filenames() []string {
	names := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		names = append(names, f.Filename)
	}
	return names
}
