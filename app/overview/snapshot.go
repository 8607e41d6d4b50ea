package overview

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/table"
)

const (
	snapshotPrefix = "overview_"
	snapshotLayout = "2006-01-02-15-04"
	UsableFileName = "usable_overview.csv"
)

var ErrNoSnapshot = errors.New("no overview snapshot found")

// SnapshotStore keeps the timestamped overview snapshots and the usable
// view in one directory.
type SnapshotStore struct {
	dir string
}

func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

func (s *SnapshotStore) Dir() string {
	return s.dir
}

func (s *SnapshotStore) UsablePath() string {
	return filepath.Join(s.dir, UsableFileName)
}

// WriteSnapshot writes t as overview_<YYYY-MM-DD-HH-MM>.csv and returns the
// path.
func (s *SnapshotStore) WriteSnapshot(t *table.Table, now time.Time) (string, error) {
	path := filepath.Join(s.dir, snapshotPrefix+now.Format(snapshotLayout)+".csv")
	if err := writeTable(path, t); err != nil {
		return "", err
	}
	return path, nil
}

func (s *SnapshotStore) WriteUsable(t *table.Table) (string, error) {
	path := s.UsablePath()
	if err := writeTable(path, t); err != nil {
		return "", err
	}
	return path, nil
}

// Latest returns the most recently modified snapshot.
func (s *SnapshotStore) Latest() (string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, snapshotPrefix+"*.csv"))
	if err != nil {
		return "", err
	}

	var latest string
	var latestMod time.Time
	for _, path := range paths {
		if strings.HasPrefix(filepath.Base(path), ".") {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if latest == "" || mod.After(latestMod) || (mod.Equal(latestMod) && path > latest) {
			latest, latestMod = path, mod
		}
	}

	if latest == "" {
		return "", ErrNoSnapshot
	}
	return latest, nil
}

func (s *SnapshotStore) Read(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &donation.FileError{Path: path, Op: "read", Err: err}
	}
	defer f.Close()

	t, err := table.ReadCSV(f)
	if err != nil {
		return nil, &donation.FileError{Path: path, Op: "decode", Err: err}
	}
	return t, nil
}

func (s *SnapshotStore) ReadUsable() (*table.Table, error) {
	return s.Read(s.UsablePath())
}

// ReadLatest reads the most recently modified snapshot.
func (s *SnapshotStore) ReadLatest() (*table.Table, string, error) {
	path, err := s.Latest()
	if err != nil {
		return nil, "", err
	}
	t, err := s.Read(path)
	if err != nil {
		return nil, "", err
	}
	return t, path, nil
}

func writeTable(path string, t *table.Table) error {
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, t); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return donation.WriteFileAtomic(path, buf.Bytes())
}
