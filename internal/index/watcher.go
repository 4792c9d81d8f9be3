package index

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

	"github.com/starford/nbsite/internal/checksum"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 300 * time.Millisecond

// ChangeCallback receives the absolute paths whose content changed since the
// previous callback, sorted.
type ChangeCallback func(paths []string)

// Watch starts an fsnotify watcher on every existing directory in dirs
// (recursively) and reports content changes until ctx is cancelled.
//
// Events are debounced: bursts of writes produce a single callback. A path
// is only reported when its content checksum differs from the last one seen,
// so editors that rewrite unchanged files do not trigger rebuilds. Removed
// files are always reported. New directories are added to the watch list.
func Watch(ctx context.Context, dirs []string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	sums := make(map[string]string)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			logger.Debug("watcher: skipping missing dir", slog.String("path", dir))
			continue
		}
		if err := addDirsRecursive(w, dir); err != nil {
			return err
		}
		recordSums(dir, sums)
		logger.Info("watcher: started", slog.String("root", dir))
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
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
			changed := flush(pending, sums)
			pending = make(map[string]struct{})
			if len(changed) == 0 {
				logger.Debug("watcher: no content changes")
				continue
			}
			logger.Debug("watcher: changes detected", slog.Int("files", len(changed)))
			if cb != nil {
				cb(changed)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					// Files copied in together with the directory produce no events.
					_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() && !ignored(p) {
							pending[p] = struct{}{}
						}
						return nil
					})
					schedule()
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[ev.Name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush compares every pending path against its last known checksum and
// returns the ones that changed, updating sums.
func flush(pending map[string]struct{}, sums map[string]string) []string {
	var changed []string
	for p := range pending {
		cs, err := checksum.File(p)
		if err != nil {
			if _, known := sums[p]; known {
				delete(sums, p)
				changed = append(changed, p)
			}
			continue
		}
		if sums[p] == cs {
			continue
		}
		sums[p] = cs
		changed = append(changed, p)
	}
	sort.Strings(changed)
	return changed
}

func recordSums(root string, sums map[string]string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || ignored(p) {
			return nil
		}
		if cs, err := checksum.File(p); err == nil {
			sums[p] = cs
		}
		return nil
	})
}

// ignored reports editor swap files, dotfiles and atomic-write temporaries.
func ignored(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
