package overview

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ddm-research/donation-monitor/app/table"
)

func TestSnapshotStoreWriteAndReadLatest(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	if _, err := store.Latest(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Expected ErrNoSnapshot, got %v", err)
	}

	older := table.New("participant_id")
	older.Append(table.Row{"participant_id": "A"})
	newer := table.New("participant_id")
	newer.Append(table.Row{"participant_id": "A"})
	newer.Append(table.Row{"participant_id": "B"})

	olderPath, err := store.WriteSnapshot(older, time.Date(2025, 3, 1, 9, 5, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if filepath.Base(olderPath) != "overview_2025-03-01-09-05.csv" {
		t.Errorf("Unexpected snapshot name %s", filepath.Base(olderPath))
	}

	newerPath, err := store.WriteSnapshot(newer, time.Date(2025, 2, 1, 9, 5, 0, 0, time.Local))
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(olderPath, past, past); err != nil {
		t.Fatal(err)
	}

	got, path, err := store.ReadLatest()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if path != newerPath {
		t.Errorf("Expected latest by modification time %s, got %s", newerPath, path)
	}
	if got.Len() != 2 {
		t.Errorf("Expected 2 rows, got %d", got.Len())
	}
}

func TestSnapshotStoreUsable(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	usable := table.New("participant_id", "Q2_age")
	usable.Append(table.Row{"participant_id": "A", "Q2_age": "34"})

	if _, err := store.WriteUsable(usable); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := store.ReadUsable()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got.Get(0, "Q2_age") != "34" {
		t.Errorf("Expected age 34, got %v", got.Get(0, "Q2_age"))
	}

	if _, err := store.Latest(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected usable view not to count as snapshot, got %v", err)
	}
}
