package persist

import (
	"os"
	"testing"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "stepwise-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := OpenSQLite(f.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteRoundTrip(t *testing.T) {
	db := testSQLite(t)
	want := sampleTour("tour-1")

	if err := db.SaveTour(want); err != nil {
		t.Fatalf("SaveTour: %v", err)
	}

	tours, err := db.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(tours) != 1 {
		t.Fatalf("len = %d, want 1", len(tours))
	}
	got := tours[0]
	if got.ID != "tour-1" || got.Title != want.Title {
		t.Errorf("got %+v", got)
	}
	if len(got.Steps) != 1 || len(got.Steps[0].Annotations) != 1 {
		t.Errorf("entity graph did not round-trip: %+v", got.Steps)
	}
}

func TestSQLiteUpsert(t *testing.T) {
	db := testSQLite(t)
	tour := sampleTour("same-id")
	_ = db.SaveTour(tour)

	tour.Title = "Renamed"
	if err := db.SaveTour(tour); err != nil {
		t.Fatalf("second save: %v", err)
	}

	tours, _ := db.LoadAll()
	if len(tours) != 1 {
		t.Fatalf("len = %d, want 1 (upsert, not insert)", len(tours))
	}
	if tours[0].Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", tours[0].Title)
	}
}

func TestSQLiteDelete(t *testing.T) {
	db := testSQLite(t)
	_ = db.SaveTour(sampleTour("doomed"))

	if err := db.DeleteTour("doomed"); err != nil {
		t.Fatalf("DeleteTour: %v", err)
	}
	tours, _ := db.LoadAll()
	if len(tours) != 0 {
		t.Errorf("len = %d, want 0", len(tours))
	}
	if err := db.DeleteTour("doomed"); err != nil {
		t.Errorf("delete of absent id: %v", err)
	}
}
