// Package watch turns filesystem activity in a vault into debounced rebuilds.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 200 * time.Millisecond

// Change kinds.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Change is one vault path touched since the previous rebuild.
type Change struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// RebuildFunc is called once per debounce window with the accumulated
// changes, sorted by path. A returned error is logged; watching continues.
type RebuildFunc func(ctx context.Context, changes []Change) error

// Options tune the watcher.
type Options struct {
	Debounce time.Duration
	// Ignore lists directories or files that never trigger a rebuild,
	// e.g. an output directory placed inside the vault.
	Ignore []string
	// Extensions limits rebuilds to files with these extensions. Paths
	// without an extension always pass since they may be directories.
	Extensions []string
}

// Watch starts an fsnotify watcher on the vault root and calls rebuild after
// each burst of changes until ctx is cancelled.
//
// New directories created at runtime are added to the watch list and the
// files already inside them are reported as created. Hidden files and
// directories are ignored.
func Watch(ctx context.Context, root string, opts Options, logger *slog.Logger, rebuild RebuildFunc) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	ignored := make([]string, 0, len(opts.Ignore))
	for _, p := range opts.Ignore {
		if abs, err := filepath.Abs(p); err == nil {
			ignored = append(ignored, abs)
		}
	}
	relevant := func(abs string) bool {
		ext := filepath.Ext(abs)
		if ext == "" || len(opts.Extensions) == 0 {
			return true
		}
		for _, e := range opts.Extensions {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}
	skip := func(abs string) bool {
		for _, ig := range ignored {
			if abs == ig || strings.HasPrefix(abs, ig+string(filepath.Separator)) {
				return true
			}
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." {
			return false
		}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if strings.HasPrefix(part, ".") {
				return true
			}
		}
		return false
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, skip); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]string)
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	record := func(kind, abs string) {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return
		}
		rel = filepath.ToSlash(rel)
		// A create followed by writes is still a create.
		if prev, ok := pending[rel]; ok && prev == Created && kind == Updated {
			kind = Created
		}
		pending[rel] = kind
		if timer == nil {
			timer = time.NewTimer(opts.Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			changes := drain(pending)
			if len(changes) == 0 {
				continue
			}
			logger.Debug("watcher: rebuilding", slog.Int("changes", len(changes)))
			if err := rebuild(ctx, changes); err != nil {
				logger.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			if skip(absPath) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath, skip); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					walkFiles(absPath, skip, func(p string) {
						if relevant(p) {
							record(Created, p)
						}
					})
					continue
				}
			}

			if !relevant(absPath) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				record(Created, absPath)
			case ev.Op&fsnotify.Write != 0:
				record(Updated, absPath)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create.
				record(Deleted, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func drain(pending map[string]string) []Change {
	out := make([]Change, 0, len(pending))
	for p, kind := range pending {
		out = append(out, Change{Kind: kind, Path: p})
		delete(pending, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func walkFiles(dir string, skip func(string) bool, fn func(string)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if skip(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			fn(p)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-skipped subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, skip func(string) bool) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skip(p) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
