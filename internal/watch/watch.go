// Package watch turns a drop folder into an apply queue: plan files
// created or modified under the watched directory are normalized and
// applied automatically.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"planforge/internal/logging"
	"planforge/internal/orchestrator"
	"planforge/internal/plan"
)

// Options configures a watcher.
type Options struct {
	// Dir is the drop folder to watch. Must exist.
	Dir string

	// Debounce is how long a plan file must stay quiet before it is
	// applied, so editors and partial writes settle first.
	Debounce time.Duration

	// Parallelism bounds concurrent applies. Concurrent applies are safe
	// because each gets a distinct project directory.
	Parallelism int

	// DiagnosticsDir receives bad-reply dumps from normalization.
	DiagnosticsDir string

	// IsApp marks every dropped plan as an application.
	IsApp bool
}

// Watcher applies plan files dropped into a directory.
type Watcher struct {
	orch *orchestrator.Orchestrator
	opts Options

	// OnResult, when set, receives every apply result.
	OnResult func(orchestrator.Result)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher. Zero Debounce and Parallelism get sane defaults.
func New(orch *orchestrator.Orchestrator, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 2
	}
	return &Watcher{
		orch:    orch,
		opts:    opts,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is canceled. Individual apply failures are logged
// and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryWatch)

	info, err := os.Stat(w.opts.Dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("watch dir %s is not a directory", w.opts.Dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.opts.Dir, err)
	}
	log.Info("Watching %s (debounce=%v, parallelism=%d)", w.opts.Dir, w.opts.Debounce, w.opts.Parallelism)

	ready := make(chan string)
	g := new(errgroup.Group)
	g.SetLimit(w.opts.Parallelism)

	defer func() {
		w.mu.Lock()
		for _, t := range w.pending {
			t.Stop()
		}
		w.mu.Unlock()
		g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsPlanFile(ev.Name) {
				continue
			}
			w.schedule(ctx, ev.Name, ready)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error: %v", err)

		case path := <-ready:
			g.Go(func() error {
				w.applyFile(ctx, path)
				return nil
			})
		}
	}
}

// IsPlanFile reports whether a dropped file looks like a plan: .json or
// .txt and not one of our own processed markers.
func IsPlanFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".applied") {
		return false
	}
	switch filepath.Ext(name) {
	case ".json", ".txt":
		return true
	}
	return false
}

// schedule arms (or re-arms) the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

// applyFile normalizes and applies one dropped plan file, then renames it
// with an .applied suffix so re-watching does not reprocess it.
func (w *Watcher) applyFile(ctx context.Context, path string) {
	log := logging.Get(logging.CategoryWatch)

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Cannot read dropped plan %s: %v", path, err)
		return
	}

	badReply := filepath.Join(w.opts.DiagnosticsDir, filepath.Base(path)+".bad_reply.txt")
	p := plan.Normalize(string(raw), badReply)

	res, err := w.orch.ApplyPlan(ctx, p, orchestrator.Options{IsApp: w.opts.IsApp})
	if err != nil {
		log.Warn("Apply of %s failed: %v", path, err)
		return
	}
	log.Info("Applied %s -> %s (stack=%s)", path, res.ProjectDir, res.Stack)

	if err := os.Rename(path, path+".applied"); err != nil {
		log.Warn("Could not mark %s applied: %v", path, err)
	}
	if w.OnResult != nil {
		w.OnResult(res)
	}
}
