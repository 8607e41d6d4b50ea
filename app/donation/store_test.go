package donation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeFetcher struct {
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) GetDonation(_ context.Context, participantID string) ([]byte, error) {
	f.calls = append(f.calls, participantID)
	if err, ok := f.errs[participantID]; ok {
		return nil, err
	}
	return []byte(f.bodies[participantID]), nil
}

func newTestStore(t *testing.T, fetcher RawFetcher) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "overview", "donation_overview.json"), filepath.Join(dir, "donations"), fetcher), dir
}

func TestStoreLoadMissingLedger(t *testing.T) {
	store, _ := newTestStore(t, &fakeFetcher{})

	entries, err := store.Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected empty non-nil ledger, got %v", entries)
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	store, _ := newTestStore(t, &fakeFetcher{})

	entries := []LedgerEntry{
		{ParticipantID: "A"},
		{ParticipantID: "B", Handled: true},
	}
	if err := store.Save(entries); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff(entries, loaded); diff != "" {
		t.Errorf("Loaded ledger mismatch (-want +got):\n%s", diff)
	}

	// A second save replaces the file and leaves no temp files behind.
	if err := store.Save(entries[:1]); err != nil {
		t.Fatal(err)
	}
	files, err := os.ReadDir(filepath.Dir(store.LedgerPath()))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("Expected only the ledger file, got %d files", len(files))
	}
}

func TestStoreLoadCorruptLedger(t *testing.T) {
	store, _ := newTestStore(t, &fakeFetcher{})
	if err := WriteFileAtomic(store.LedgerPath(), []byte(`{not json`)); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load()

	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("Expected FileError, got %v", err)
	}
}

func TestStoreFetchAndCacheRaw(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{
		"B": `{"blueprints": {"1": {"donations": []}}}`,
	}}
	store, _ := newTestStore(t, fetcher)

	raw, err := store.FetchAndCacheRaw(context.Background(), "B")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, ok := raw.Blueprints["1"]; !ok {
		t.Error("Expected blueprint 1 in payload")
	}

	cached, err := os.ReadFile(store.CachePath("B"))
	if err != nil {
		t.Fatalf("Expected cache file, got: %v", err)
	}
	if string(cached) != fetcher.bodies["B"] {
		t.Errorf("Expected verbatim cache, got %s", cached)
	}

	if _, err := store.FetchAndCacheRaw(context.Background(), "B"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("Expected exactly one fetch, got %d", len(fetcher.calls))
	}
}

func TestStoreFetchErrorPropagates(t *testing.T) {
	fetchErr := errors.New("connection reset")
	fetcher := &fakeFetcher{errs: map[string]error{"C": fetchErr}}
	store, _ := newTestStore(t, fetcher)

	_, err := store.FetchAndCacheRaw(context.Background(), "C")
	if !errors.Is(err, fetchErr) {
		t.Errorf("Expected fetch error, got %v", err)
	}
	if _, statErr := os.Stat(store.CachePath("C")); !os.IsNotExist(statErr) {
		t.Error("Expected no cache file after failed fetch")
	}
}

func TestStoreUndecodableCache(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"D": `{"errors": ["boom"]}`}}
	store, _ := newTestStore(t, fetcher)

	_, err := store.FetchAndCacheRaw(context.Background(), "D")

	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("Expected FileError, got %v", err)
	}
	if fileErr.Op != "decode" {
		t.Errorf("Expected decode error, got %s", fileErr.Op)
	}
}

func TestStoreRefetchesRejectedDonation(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"B": `{"detail": "temporarily unavailable"}`}}
	store, _ := newTestStore(t, fetcher)

	if _, err := store.FetchAndCacheRaw(context.Background(), "B"); err == nil {
		t.Fatal("Expected error for body without blueprints")
	}
	if _, statErr := os.Stat(store.CachePath("B")); !os.IsNotExist(statErr) {
		t.Error("Expected rejected body not to be cached")
	}

	fetcher.bodies["B"] = `{"blueprints": {"1": {"donations": []}}}`
	raw, err := store.FetchAndCacheRaw(context.Background(), "B")
	if err != nil {
		t.Fatalf("Expected second fetch to succeed, got %v", err)
	}
	if _, ok := raw.Blueprints["1"]; !ok {
		t.Error("Expected blueprint 1 in refetched donation")
	}

	if diff := cmp.Diff([]string{"B", "B"}, fetcher.calls); diff != "" {
		t.Errorf("Unexpected fetch calls (-want +got):\n%s", diff)
	}
	if _, statErr := os.Stat(store.CachePath("B")); statErr != nil {
		t.Errorf("Expected valid donation to be cached, got %v", statErr)
	}
}

func TestStoreRejectsPathLikeIDs(t *testing.T) {
	fetcher := &fakeFetcher{}
	store, _ := newTestStore(t, fetcher)

	for _, id := range []string{"", "..", "../etc", `a\b`} {
		_, err := store.FetchAndCacheRaw(context.Background(), id)
		var fileErr *FileError
		if !errors.As(err, &fileErr) {
			t.Errorf("Expected FileError for %q, got %v", id, err)
		}
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("Expected no fetches, got %v", fetcher.calls)
	}
}

func TestStoreCachedParticipants(t *testing.T) {
	store, dir := newTestStore(t, &fakeFetcher{})

	ids, err := store.CachedParticipants()
	if err != nil || len(ids) != 0 {
		t.Fatalf("Expected no cached participants, got %v, %v", ids, err)
	}

	for _, name := range []string{"Z.json", "A.json", "notes.txt", ".A.json.123.tmp"} {
		if err := WriteFileAtomic(filepath.Join(dir, "donations", name), []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}

	ids, err = store.CachedParticipants()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "Z"}, ids); diff != "" {
		t.Errorf("Unexpected IDs (-want +got):\n%s", diff)
	}
}
