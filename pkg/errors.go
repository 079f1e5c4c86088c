package dirchecker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Fatal errors. Callers should test with errors.Is.
var (
	ErrNotFound       = errors.New("directory not found")
	ErrNotADirectory  = errors.New("not a directory")
	ErrPermission     = errors.New("permission denied")
	ErrPartialRead    = errors.New("partial read")
	ErrNilIndex       = errors.New("nil index")
	ErrUnpersistable  = errors.New("path cannot be persisted")
	ErrMalformedIndex = errors.New("malformed index")
)

// SkippedEntry records a path the walk could not read. It is not an error:
// skipped entries are collected and reported alongside the result.
type SkippedEntry struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"` // underlying cause, nil when the reason is not an I/O error
}

// skippedFor builds a SkippedEntry whose reason reads "<what>: <err>"
func skippedFor(relPath, what string, err error) SkippedEntry {
	err = fmt.Errorf("%s: %w", what, err)
	return SkippedEntry{Path: relPath, Reason: err.Error(), Err: err}
}

func (s SkippedEntry) String() string {
	return s.Path + ": " + s.Reason
}

// PartialReadError is returned in strict mode for the first entry that could not be read.
type PartialReadError struct {
	Path string
	Err  error
}

func (e *PartialReadError) Error() string {
	return fmt.Sprintf("partial read at %s: %v", e.Path, e.Err)
}

func (e *PartialReadError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPartialRead) match any PartialReadError
func (e *PartialReadError) Is(target error) bool {
	return target == ErrPartialRead
}

// rootError maps a stat/open failure on the root directory onto the fatal taxonomy
func rootError(rootDir string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, rootDir)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermission, rootDir)
	default:
		return fmt.Errorf("failed to access %s: %w", rootDir, err)
	}
}

// checkRoot validates that rootDir exists, is a directory and can be listed
func checkRoot(rootDir string) error {
	info, err := os.Stat(rootDir)
	if err != nil {
		return rootError(rootDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, rootDir)
	}

	dir, err := os.Open(rootDir)
	if err != nil {
		return rootError(rootDir, err)
	}
	defer dir.Close()

	if _, err := dir.Readdirnames(1); err != nil && !isEOF(err) {
		return rootError(rootDir, err)
	}
	return nil
}
