package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) rebuild(_ context.Context, changes []Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changes)
	return nil
}

func (r *recorder) seen(kind, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		for _, c := range b {
			if c.Kind == kind && c.Path == path {
				return true
			}
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, dir string, opts Options) *recorder {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	go Watch(ctx, dir, opts, logger, rec.rebuild)
	time.Sleep(100 * time.Millisecond)
	return rec
}

func TestWatch_NewFileTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	rec := startWatch(t, dir, Options{Debounce: 50 * time.Millisecond})

	_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(Created, "new.md")
	}, "expected created:new.md change")
}

func TestWatch_BurstIsDebounced(t *testing.T) {
	dir := t.TempDir()
	rec := startWatch(t, dir, Options{Debounce: 300 * time.Millisecond})

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(dir, "burst.md"), []byte{byte('a' + i)}, 0o644)
		time.Sleep(20 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(Created, "burst.md")
	}, "burst not reported")
	time.Sleep(500 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("rebuilds = %d, want 1", n)
	}
}

func TestWatch_NewDirWatched(t *testing.T) {
	dir := t.TempDir()
	rec := startWatch(t, dir, Options{Debounce: 50 * time.Millisecond})

	sub := filepath.Join(dir, "subdir")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(Created, "subdir/deep.md") || rec.seen(Updated, "subdir/deep.md")
	}, "file in new subdir not reported")
}

func TestWatch_DeleteReported(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "del.md")
	_ = os.WriteFile(target, []byte("# Delete Me"), 0o644)
	rec := startWatch(t, dir, Options{Debounce: 50 * time.Millisecond})

	_ = os.Remove(target)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(Deleted, "del.md")
	}, "expected deleted:del.md change")
}

func TestWatch_IgnoredAndHiddenPaths(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "_site")
	_ = os.MkdirAll(out, 0o755)
	_ = os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755)
	rec := startWatch(t, dir, Options{Debounce: 50 * time.Millisecond, Ignore: []string{out}})

	_ = os.WriteFile(filepath.Join(out, "page.html"), []byte("<p>"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".obsidian", "workspace.json"), []byte("{}"), 0o644)
	time.Sleep(400 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Fatalf("ignored paths triggered %d rebuilds", n)
	}

	_ = os.WriteFile(filepath.Join(dir, "real.md"), []byte("# Real"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(Created, "real.md")
	}, "vault change not reported")
}

func TestWatch_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	rec := startWatch(t, dir, Options{Debounce: 50 * time.Millisecond, Extensions: []string{".md"}})

	_ = os.WriteFile(filepath.Join(dir, "site.db"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "site.db-wal"), []byte("x"), 0o644)
	time.Sleep(400 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Fatalf("non-markdown files triggered %d rebuilds", n)
	}

	_ = os.WriteFile(filepath.Join(dir, "Note.MD"), []byte("# Note"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(Created, "Note.MD")
	}, "markdown change not reported")
}
