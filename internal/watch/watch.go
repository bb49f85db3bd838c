// Package watch implements the supplemented file-watcher feature (see
// SPEC_FULL.md [MODULE watch]): it gives the teacher's previously
// unused fsnotify dependency a home by watching a session's project
// directory and turning filesystem events on *.lean files into
// workspace/didChangeWatchedFiles notifications.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
)

// LSP FileChangeType values (textDocument/didChangeWatchedFiles).
const (
	ChangeTypeCreated = 1
	ChangeTypeChanged = 2
	ChangeTypeDeleted = 3
)

// Event is a normalized filesystem change for one Lean source file.
type Event struct {
	Path       string
	ChangeType int
}

// Watcher watches a project directory (recursively, one level at a
// time as fsnotify reports new subdirectories) for *.lean file
// changes.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan Event
	done   chan struct{}
	log    logging.Logger
}

// New starts watching root. Failure to start is non-fatal to the
// caller (a session runs fine without a watcher); the caller decides
// whether to log and continue.
func New(root string, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	if err := addRecursive(fsw, root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: watch %s: %w", root, err)
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan Event),
		done:   make(chan struct{}),
		log:    log,
	}

	go w.run()

	return w, nil
}

func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	if err := fsw.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // best-effort: a directory disappearing mid-walk is not fatal
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() {
			_ = addRecursive(fsw, filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

// Events returns the channel of normalized *.lean file events.
func (w *Watcher) Events() <-chan Event { return w.events }

// Stop shuts the watcher down. Safe to call once.
func (w *Watcher) Stop() {
	close(w.done)
	w.fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch: fsnotify error", "error", err.Error())
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".lean") {
		if ev.Op&fsnotify.Create != 0 {
			_ = w.fsw.Add(ev.Name) // best-effort: newly created subdirectory
		}
		return
	}

	var changeType int
	switch {
	case ev.Op&fsnotify.Create != 0:
		changeType = ChangeTypeCreated
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		changeType = ChangeTypeDeleted
	case ev.Op&fsnotify.Write != 0:
		changeType = ChangeTypeChanged
	default:
		return
	}

	select {
	case w.events <- Event{Path: ev.Name, ChangeType: changeType}:
	case <-w.done:
	}
}
