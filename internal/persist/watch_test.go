package persist

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/holmsten/stepwise/internal/tourstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResync(t *testing.T) {
	fs := testFSJSON(t)
	store := tourstore.New(fs, discardLogger())

	// Seed the store (which writes through to the library).
	tour, err := store.CreateTour("Seeded", "", "", nil)
	if err != nil {
		t.Fatalf("CreateTour: %v", err)
	}

	// Simulate an external edit: rewrite the document with a new title.
	edited, _ := fs.LoadTour(tour.ID)
	edited.Title = "Edited Outside"
	data, _ := json.Marshal(edited)
	if err := os.WriteFile(filepath.Join(fs.Root(), tour.ID+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	// Simulate an externally dropped-in document.
	extra := sampleTour("dropped-in")
	extraData, _ := json.Marshal(extra)
	if err := os.WriteFile(filepath.Join(fs.Root(), "dropped-in.json"), extraData, 0o644); err != nil {
		t.Fatal(err)
	}

	Resync(fs, store, discardLogger())

	got, err := store.GetTour(tour.ID)
	if err != nil {
		t.Fatalf("GetTour: %v", err)
	}
	if got.Title != "Edited Outside" {
		t.Errorf("title = %q, want external edit applied", got.Title)
	}
	if _, err := store.GetTour("dropped-in"); err != nil {
		t.Errorf("dropped-in document not restored: %v", err)
	}
}

func TestResyncEvictsOrphans(t *testing.T) {
	fs := testFSJSON(t)
	store := tourstore.New(fs, discardLogger())

	tour, _ := store.CreateTour("Orphan", "", "", nil)
	if err := os.Remove(filepath.Join(fs.Root(), tour.ID+".json")); err != nil {
		t.Fatal(err)
	}

	Resync(fs, store, discardLogger())

	if _, err := store.GetTour(tour.ID); err == nil {
		t.Error("tour with no backing file survived resync")
	}
}

func TestResyncSkipsSelfWrites(t *testing.T) {
	fs := testFSJSON(t)
	store := tourstore.New(fs, discardLogger())

	var events int
	store.OnEvent(func(kind, id string) { events++ })

	_, _ = store.CreateTour("Quiet", "", "", nil) // 1 event
	Resync(fs, store, discardLogger())

	if events != 1 {
		t.Errorf("events = %d, want 1 (resync must not echo self-writes)", events)
	}
}
