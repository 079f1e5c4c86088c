package dirchecker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// scannedPath represents a regular file found during the walk
type scannedPath struct {
	AbsPath string
	RelPath string      // forward-slash path relative to the root
	Info    os.FileInfo // target info when reached through a followed symlink
}

// walker performs a path-ordered traversal of one root under one policy
type walker struct {
	rootDir string
	policy  Policy
	ignore  *IgnoreManager
	visited map[string]bool // real paths of traversed directories, only when following symlinks
}

func newWalker(rootDir string, policy Policy) (*walker, error) {
	ignore, err := NewIgnoreManager(rootDir, policy)
	if err != nil {
		return nil, err
	}
	return &walker{
		rootDir: filepath.Clean(rootDir),
		policy:  policy,
		ignore:  ignore,
		visited: make(map[string]bool),
	}, nil
}

// walk streams regular files to resultChan in path order and closes it on return.
// Per-entry failures are handed to skip; a non-nil return from skip aborts the walk.
func (w *walker) walk(ctx context.Context, resultChan chan<- *scannedPath, skip func(SkippedEntry) error) error {
	defer VerboseEnter()()
	defer close(resultChan)

	if w.policy.FollowSymlinks {
		if real, err := filepath.EvalSymlinks(w.rootDir); err == nil {
			w.visited[real] = true
		}
	}

	// Sorted queue: the lexicographically smallest path is always processed next,
	// so files come out in the same order as the index keys.
	pathQueue, err := w.readDir(w.rootDir)
	if err != nil {
		return rootError(w.rootDir, err)
	}

	for len(pathQueue) > 0 {
		select {
		case <-ctx.Done():
			DebugLog(DebugScan, "walk of %s interrupted", w.rootDir)
			return fmt.Errorf("walk of %s interrupted: %w", w.rootDir, ctx.Err())
		default:
		}

		currentPath := pathQueue[0]
		pathQueue = pathQueue[1:]

		rel, err := filepath.Rel(w.rootDir, currentPath)
		if err != nil {
			return fmt.Errorf("failed to relativise %s: %w", currentPath, err)
		}
		relPath := filepath.ToSlash(rel)

		info, err := os.Lstat(currentPath)
		if err != nil {
			if err := skip(skippedFor(relPath, "vanished during walk", err)); err != nil {
				return err
			}
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if !w.policy.FollowSymlinks {
				DebugLog(DebugScan, "not following symlink %s", relPath)
				continue
			}
			targetInfo, err := os.Stat(currentPath)
			if err != nil {
				if err := skip(skippedFor(relPath, "broken symlink", err)); err != nil {
					return err
				}
				continue
			}
			info = targetInfo
		}

		if w.ignore.ShouldIgnore(relPath, info.IsDir()) {
			DebugLog(DebugScan, "ignoring %s", relPath)
			continue
		}

		switch {
		case info.IsDir():
			if w.policy.FollowSymlinks {
				real, err := filepath.EvalSymlinks(currentPath)
				if err != nil {
					if err := skip(skippedFor(relPath, "cannot resolve directory", err)); err != nil {
						return err
					}
					continue
				}
				if w.visited[real] {
					if err := skip(SkippedEntry{Path: relPath, Reason: "directory already visited (symlink loop)"}); err != nil {
						return err
					}
					continue
				}
				w.visited[real] = true
			}

			children, err := w.readDir(currentPath)
			if err != nil {
				if err := skip(skippedFor(relPath, "unreadable directory", err)); err != nil {
					return err
				}
				continue
			}
			pathQueue = insertSorted(pathQueue, children)

		case info.Mode().IsRegular():
			DebugLog(DebugScan, "found file %s", relPath)
			select {
			case resultChan <- &scannedPath{AbsPath: currentPath, RelPath: relPath, Info: info}:
			case <-ctx.Done():
				return fmt.Errorf("walk of %s interrupted: %w", w.rootDir, ctx.Err())
			}

		default:
			DebugLog(DebugScan, "skipping non-regular file %s (%s)", relPath, info.Mode().Type())
		}
	}

	return nil
}

// readDir returns the sorted absolute child paths of dir
func (w *walker) readDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// insertSorted merges sorted newPaths into the sorted existing queue
func insertSorted(existing []string, newPaths []string) []string {
	if len(newPaths) == 0 {
		return existing
	}
	if len(existing) == 0 {
		return newPaths
	}

	result := make([]string, 0, len(existing)+len(newPaths))
	i, j := 0, 0
	for i < len(existing) && j < len(newPaths) {
		if existing[i] <= newPaths[j] {
			result = append(result, existing[i])
			i++
		} else {
			result = append(result, newPaths[j])
			j++
		}
	}
	result = append(result, existing[i:]...)
	result = append(result, newPaths[j:]...)
	return result
}
