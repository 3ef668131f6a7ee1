package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nguyentantai21042004/folder-scribe/internal/media"
)

func (w *implWatcher) SetRoot(ctx context.Context, root string) error {
	root, err := media.Canonical(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", root)
	}

	w.mu.Lock()
	for dir := range w.watched {
		w.watcher.Remove(dir)
	}
	w.root = root
	w.current = make(map[string]bool)
	w.seen = make(map[string]bool)
	w.watched = make(map[string]bool)
	w.mu.Unlock()

	w.logger.Info(ctx, "Watching %s (recursive)", root)
	w.rescan(ctx)
	return nil
}

func (w *implWatcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.current))
	for f := range w.current {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Start rescans the tree whenever events settle, until ctx is done.
// Event semantics are not trusted; every rescan diffs against the seen set.
func (w *implWatcher) Start(ctx context.Context) error {
	exts := media.Extensions()
	sort.Strings(exts)
	w.logger.Info(ctx, "File watcher started. Supported formats: %s", strings.Join(exts, ", "))

	var (
		timer   *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "File watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug(ctx, "Filesystem event: %s", event)

			if timer == nil {
				timer = time.NewTimer(w.opts.SettleDelay)
			} else {
				timer.Reset(w.opts.SettleDelay)
			}
			settled = timer.C

		case <-settled:
			settled = nil
			w.rescan(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

// rescan enumerates the tree and notifies the handler of unseen files.
// A failed enumeration changes nothing.
func (w *implWatcher) rescan(ctx context.Context) {
	w.mu.Lock()
	root := w.root
	w.mu.Unlock()
	if root == "" {
		return
	}

	w.metrics.Scans.Inc()
	files, dirs, err := w.enumerate(ctx, root)
	if err != nil {
		w.metrics.ScanErrors.Inc()
		w.logger.Warn(ctx, "Scan of %s failed, will retry on next event: %v", root, err)
		return
	}

	w.mu.Lock()
	if w.root != root {
		// Root replaced mid-scan
		w.mu.Unlock()
		return
	}
	w.syncWatchesLocked(ctx, dirs)
	w.current = files

	var fresh []string
	for f := range files {
		if !w.seen[f] {
			w.seen[f] = true
			fresh = append(fresh, f)
		}
	}
	w.mu.Unlock()

	sort.Strings(fresh)
	for _, f := range fresh {
		w.metrics.FilesDiscovered.Inc()
		w.logger.Info(ctx, "New media detected: %s", f)
		if err := w.handler(ctx, f); err != nil {
			w.logger.Error(ctx, "Failed to submit %s: %v", f, err)
		}
	}
}

func (w *implWatcher) enumerate(ctx context.Context, root string) (map[string]bool, map[string]bool, error) {
	files := make(map[string]bool)
	dirs := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Permission problems or entries deleted mid-walk
			w.logger.Debug(ctx, "Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (name == w.opts.SkipDir || strings.HasPrefix(name, ".")) {
				return fs.SkipDir
			}
			dirs[path] = true
			return nil
		}

		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		if media.IsSupported(path) {
			files[path] = true
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	return files, dirs, nil
}

// syncWatchesLocked makes the fsnotify watch list match dirs.
// fsnotify is not recursive, so every directory is watched individually.
func (w *implWatcher) syncWatchesLocked(ctx context.Context, dirs map[string]bool) {
	for dir := range w.watched {
		if !dirs[dir] {
			w.watcher.Remove(dir)
			delete(w.watched, dir)
		}
	}
	for dir := range dirs {
		if w.watched[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn(ctx, "Failed to watch %s: %v", dir, err)
			continue
		}
		w.watched[dir] = true
	}
}
