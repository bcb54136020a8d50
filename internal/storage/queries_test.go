package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"transitmon/internal/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func station() config.Station {
	s := config.Station{
		Provider:       "vrr",
		Place:          "Düsseldorf",
		Name:           "Hauptbahnhof",
		TransportTypes: []string{"train", "tram"},
	}
	s.ApplyDefaults()
	return s
}

func TestInsertAndGetEntry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e, err := db.InsertEntry(ctx, station())
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}
	if e.ID == "" {
		t.Fatal("InsertEntry should assign an id")
	}
	if e.UniqueID != "vrr_düsseldorf_hauptbahnhof" {
		t.Errorf("UniqueID = %q", e.UniqueID)
	}

	got, err := db.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Title != "VRR Düsseldorf - Hauptbahnhof" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Station.Departures != 10 || got.Station.ScanInterval != 60 {
		t.Errorf("Station = %+v", got.Station)
	}
	if len(got.Station.TransportTypes) != 2 || got.Station.TransportTypes[1] != "tram" {
		t.Errorf("TransportTypes = %v", got.Station.TransportTypes)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestInsertEntry_Duplicate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertEntry(ctx, station()); err != nil {
		t.Fatal(err)
	}
	_, err := db.InsertEntry(ctx, station())
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second insert error = %v, want ErrDuplicate", err)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetEntry(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListAndDeleteEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if db.HasEntries(ctx) {
		t.Fatal("new database should have no entries")
	}

	a, err := db.InsertEntry(ctx, station())
	if err != nil {
		t.Fatal(err)
	}
	other := station()
	other.StationID = "20018235"
	b, err := db.InsertEntry(ctx, other)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := db.ListEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ID != a.ID || entries[1].ID != b.ID {
		t.Fatalf("ListEntries = %+v", entries)
	}

	if err := db.DeleteEntry(ctx, a.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := db.DeleteEntry(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}

	entries, _ = db.ListEntries(ctx)
	if len(entries) != 1 || entries[0].ID != b.ID {
		t.Errorf("after delete ListEntries = %+v", entries)
	}
	if !db.HasEntries(ctx) {
		t.Error("HasEntries should be true")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertEntry(context.Background(), station()); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if !db.HasEntries(context.Background()) {
		t.Error("entries should survive reopen")
	}
}
