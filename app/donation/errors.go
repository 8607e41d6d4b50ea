package donation

import (
	"fmt"
	"strings"
)

// FileError reports a local file the store could not read or write, or a
// participant ID that cannot name a file.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ValidateID rejects IDs that would escape the cache directory.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return &FileError{Path: id, Op: "validate", Err: fmt.Errorf("participant id %q cannot be used as a file name", id)}
	}
	return nil
}
