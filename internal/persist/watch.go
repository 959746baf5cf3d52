package persist

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/holmsten/stepwise/internal/tourstore"
)

// Watch runs an fsnotify watcher on the file backend's library
// directory and mirrors external edits into the store until ctx is
// cancelled. Documents this process just wrote are recognized by
// checksum and skipped, so store mutations don't echo back as phantom
// external edits.
//
// fsnotify fires Rename on the old path only; the new path arrives as
// a separate Create if it stays in the directory. Renames therefore
// schedule a short debounced resync that prunes store entries whose
// files are gone and picks up files the event stream missed.
func Watch(ctx context.Context, fs *FSJSON, store *tourstore.Store, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fs.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("library", fs.Root()))

	var resyncTimer *time.Timer
	var resyncCh <-chan time.Time

	scheduleResync := func() {
		if resyncTimer == nil {
			resyncTimer = time.NewTimer(200 * time.Millisecond)
			resyncCh = resyncTimer.C
		} else {
			resyncTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if resyncTimer != nil {
				resyncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-resyncCh:
			Resync(fs, store, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			id := strings.TrimSuffix(name, ".json")

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					// Likely a rename/delete race; the follow-up event handles it.
					continue
				}
				if fs.Unchanged(id, data) {
					continue
				}
				t, _, loadErr := fs.loadFile(ev.Name)
				if loadErr != nil {
					logger.Warn("watcher: bad document", slog.String("file", name), slog.String("error", loadErr.Error()))
					continue
				}
				fs.markSeen(id, data)
				store.Restore(t)
				logger.Debug("watcher: restored", slog.String("tour", t.ID))

			case ev.Op&fsnotify.Remove != 0:
				if store.Evict(id) {
					logger.Debug("watcher: evicted", slog.String("tour", id))
				}

			case ev.Op&fsnotify.Rename != 0:
				store.Evict(id)
				scheduleResync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// Resync brings the store in line with the library directory:
// documents that changed on disk are restored, store entries without a
// backing file are evicted. Used at rename reconciliation; startup
// hydration goes through Persister.LoadAll and Store.Load instead.
func Resync(fs *FSJSON, store *tourstore.Store, logger *slog.Logger) {
	entries, err := os.ReadDir(fs.Root())
	if err != nil {
		logger.Warn("resync: read library dir failed", slog.String("error", err.Error()))
		return
	}

	onDisk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(fs.Root(), e.Name())
		id := strings.TrimSuffix(e.Name(), ".json")
		onDisk[id] = struct{}{}

		data, readErr := os.ReadFile(path)
		if readErr != nil || fs.Unchanged(id, data) {
			continue
		}
		t, _, loadErr := fs.loadFile(path)
		if loadErr != nil {
			logger.Warn("resync: bad document", slog.String("file", e.Name()), slog.String("error", loadErr.Error()))
			continue
		}
		fs.markSeen(id, data)
		store.Restore(t)
		logger.Debug("resync: restored", slog.String("tour", t.ID))
	}

	for _, id := range store.TourIDs() {
		if _, ok := onDisk[id]; !ok {
			store.Evict(id)
			logger.Debug("resync: evicted", slog.String("tour", id))
		}
	}
}
