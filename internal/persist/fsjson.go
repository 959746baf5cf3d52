package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/holmsten/stepwise/internal/models"
)

// FSJSON persists each tour as <id>.json in a flat library directory.
// Writes are atomic (tmp file, fsync, rename) so an externally watched
// library never exposes a half-written document.
type FSJSON struct {
	root string // absolute path to the library directory

	mu    sync.Mutex
	saved map[string]string // tour id -> checksum of the last self-written payload
}

// NewFSJSON creates a backend rooted at the given directory.
// The directory must already exist.
func NewFSJSON(root string) (*FSJSON, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("persist: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("persist: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("persist: root is not a directory: %s", abs)
	}
	return &FSJSON{root: abs, saved: make(map[string]string)}, nil
}

// Root returns the absolute library directory path.
func (f *FSJSON) Root() string {
	return f.root
}

// SaveTour writes the tour document atomically and remembers its
// checksum so the library watcher can tell self-writes from external
// edits.
func (f *FSJSON) SaveTour(t models.Tour) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal tour %s: %w", t.ID, err)
	}
	data = append(data, '\n')

	if err := f.writeAtomic(f.tourPath(t.ID), data); err != nil {
		return err
	}

	f.mu.Lock()
	f.saved[t.ID] = checksum(data)
	f.mu.Unlock()
	return nil
}

// DeleteTour removes the tour document. Removing an absent document is
// not an error.
func (f *FSJSON) DeleteTour(id string) error {
	f.mu.Lock()
	delete(f.saved, id)
	f.mu.Unlock()

	if err := os.Remove(f.tourPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("persist: delete %s: %w", id, err)
	}
	return nil
}

// LoadAll reads every tour document in the library. Unreadable or
// malformed files are skipped, not fatal; one corrupt document must
// not take the whole library down.
func (f *FSJSON) LoadAll() ([]models.Tour, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("persist: read library dir: %w", err)
	}
	var out []models.Tour
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		t, data, err := f.loadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			continue
		}
		f.mu.Lock()
		f.saved[t.ID] = checksum(data)
		f.mu.Unlock()
		out = append(out, t)
	}
	return out, nil
}

// Close is a no-op; the backend holds no open handles between calls.
func (f *FSJSON) Close() error {
	return nil
}

// LoadTour reads a single tour document by id.
func (f *FSJSON) LoadTour(id string) (models.Tour, error) {
	t, _, err := f.loadFile(f.tourPath(id))
	return t, err
}

// Unchanged reports whether data matches the last payload this process
// wrote for the tour, meaning a watcher event for it is self-inflicted.
func (f *FSJSON) Unchanged(id string, data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved[id] == checksum(data)
}

// markSeen records the checksum of an externally observed payload so a
// repeated watcher event for the same content is skipped.
func (f *FSJSON) markSeen(id string, data []byte) {
	f.mu.Lock()
	f.saved[id] = checksum(data)
	f.mu.Unlock()
}

func (f *FSJSON) tourPath(id string) string {
	return filepath.Join(f.root, id+".json")
}

func (f *FSJSON) loadFile(path string) (models.Tour, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Tour{}, nil, fmt.Errorf("persist: read %s: %w", filepath.Base(path), err)
	}
	var t models.Tour
	if err := json.Unmarshal(data, &t); err != nil {
		return models.Tour{}, nil, fmt.Errorf("persist: decode %s: %w", filepath.Base(path), err)
	}
	if t.ID == "" {
		return models.Tour{}, nil, fmt.Errorf("persist: %s has no tour id", filepath.Base(path))
	}
	if t.Steps == nil {
		t.Steps = []models.TourStep{}
	}
	return t, data, nil
}

// writeAtomic writes content via tmp file, fsync, rename.
func (f *FSJSON) writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(f.root, ".stepwise-tmp-*")
	if err != nil {
		return fmt.Errorf("persist: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("persist: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("persist: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("persist: rename: %w", err)
	}
	success = true
	return nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
