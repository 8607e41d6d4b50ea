package donation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ddm-research/donation-monitor/app/blueprint"
)

// RawFetcher returns the raw donation body of one participant.
type RawFetcher interface {
	GetDonation(ctx context.Context, participantID string) ([]byte, error)
}

// Store persists the ledger of processed participants and caches raw
// donations, one file per participant. Cached files are never rewritten.
type Store struct {
	ledgerPath string
	cacheDir   string
	fetcher    RawFetcher
}

func NewStore(ledgerPath, cacheDir string, fetcher RawFetcher) *Store {
	return &Store{
		ledgerPath: ledgerPath,
		cacheDir:   cacheDir,
		fetcher:    fetcher,
	}
}

func (s *Store) LedgerPath() string {
	return s.ledgerPath
}

// Load reads the ledger. A missing ledger is an empty one.
func (s *Store) Load() ([]LedgerEntry, error) {
	data, err := os.ReadFile(s.ledgerPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("No ledger found, starting empty", "path", s.ledgerPath)
		return []LedgerEntry{}, nil
	}
	if err != nil {
		return nil, &FileError{Path: s.ledgerPath, Op: "read", Err: err}
	}

	var entries []LedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &FileError{Path: s.ledgerPath, Op: "decode", Err: err}
	}
	if entries == nil {
		entries = []LedgerEntry{}
	}

	slog.Debug("Ledger loaded", "path", s.ledgerPath, "entries", len(entries))

	return entries, nil
}

// Save replaces the ledger with entries.
func (s *Store) Save(entries []LedgerEntry) error {
	if entries == nil {
		entries = []LedgerEntry{}
	}

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := WriteFileAtomic(s.ledgerPath, data); err != nil {
		return err
	}

	slog.Debug("Ledger saved", "path", s.ledgerPath, "entries", len(entries))

	return nil
}

func (s *Store) CachePath(participantID string) string {
	return filepath.Join(s.cacheDir, participantID+".json")
}

// FetchAndCacheRaw returns the participant's donation, fetching it only
// when no cache file exists. Fetch errors are returned unchanged. Only
// bodies with a valid donation envelope are cached, so a rejected body is
// fetched again on the next call.
func (s *Store) FetchAndCacheRaw(ctx context.Context, participantID string) (*blueprint.RawDonation, error) {
	if err := ValidateID(participantID); err != nil {
		return nil, err
	}

	path := s.CachePath(participantID)

	data, err := os.ReadFile(path)
	if err == nil {
		slog.Debug("Donation cache hit", "participant", participantID)
		raw, err := blueprint.ParseRawDonation(data)
		if err != nil {
			return nil, &FileError{Path: path, Op: "decode", Err: err}
		}
		return raw, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, &FileError{Path: path, Op: "read", Err: err}
	}

	data, err = s.fetcher.GetDonation(ctx, participantID)
	if err != nil {
		return nil, err
	}

	raw, err := blueprint.ParseRawDonation(data)
	if err != nil {
		slog.Warn("Fetched donation rejected, not cached", "participant", participantID, "error", err)
		return nil, &FileError{Path: path, Op: "decode", Err: err}
	}

	if err := WriteFileAtomic(path, data); err != nil {
		return nil, err
	}
	slog.Debug("Donation cached", "participant", participantID, "bytes", len(data))

	return raw, nil
}

// ReadCached decodes a cached donation without fetching.
func (s *Store) ReadCached(participantID string) (*blueprint.RawDonation, error) {
	if err := ValidateID(participantID); err != nil {
		return nil, err
	}

	path := s.CachePath(participantID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Op: "read", Err: err}
	}

	raw, err := blueprint.ParseRawDonation(data)
	if err != nil {
		return nil, &FileError{Path: path, Op: "decode", Err: err}
	}

	return raw, nil
}

// CachedParticipants lists the IDs with a cache file, sorted.
func (s *Store) CachedParticipants() ([]string, error) {
	dirEntries, err := os.ReadDir(s.cacheDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &FileError{Path: s.cacheDir, Op: "list", Err: err}
	}

	var ids []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)

	return ids, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it
// and renames it over path. Parent directories are created.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FileError{Path: dir, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &FileError{Path: path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &FileError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &FileError{Path: path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &FileError{Path: path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &FileError{Path: path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &FileError{Path: path, Op: "rename", Err: err}
	}

	return nil
}
