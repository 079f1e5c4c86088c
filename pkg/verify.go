package dirchecker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FileStatus represents the outcome of comparing one path
type FileStatus int

const (
	StatusUnchanged FileStatus = iota
	StatusModified
	StatusAdded
	StatusRemoved
	StatusTouched
	StatusUnreadable
)

func (s FileStatus) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusModified:
		return "modified"
	case StatusAdded:
		return "added"
	case StatusRemoved:
		return "removed"
	case StatusTouched:
		return "touched"
	case StatusUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// Diff is the set-valued difference between an index and the current tree.
// Every list is sorted by path.
type Diff struct {
	Added      []string       `json:"added"`
	Removed    []string       `json:"removed"`
	Modified   []string       `json:"modified"`
	Touched    []string       `json:"touched"`
	Unreadable []SkippedEntry `json:"unreadable"`
}

// Valid reports whether the tree matched the index exactly
func (d *Diff) Valid() bool {
	return !d.HasChanges()
}

// HasChanges returns true if there are any differences
func (d *Diff) HasChanges() bool {
	return d.TotalChanges() > 0
}

// TotalChanges returns the total number of differing paths
func (d *Diff) TotalChanges() int {
	return len(d.Added) + len(d.Removed) + len(d.Modified) + len(d.Touched) + len(d.Unreadable)
}

// ForEach visits every differing path in path order with its status
func (d *Diff) ForEach(fn func(status FileStatus, path string)) {
	type change struct {
		status FileStatus
		path   string
	}
	var changes []change
	for _, p := range d.Added {
		changes = append(changes, change{StatusAdded, p})
	}
	for _, p := range d.Removed {
		changes = append(changes, change{StatusRemoved, p})
	}
	for _, p := range d.Modified {
		changes = append(changes, change{StatusModified, p})
	}
	for _, p := range d.Touched {
		changes = append(changes, change{StatusTouched, p})
	}
	for _, e := range d.Unreadable {
		changes = append(changes, change{StatusUnreadable, e.Path})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].path < changes[j].path
	})
	for _, c := range changes {
		fn(c.status, c.path)
	}
}

func newDiff() *Diff {
	return &Diff{
		Added:      make([]string, 0),
		Removed:    make([]string, 0),
		Modified:   make([]string, 0),
		Touched:    make([]string, 0),
		Unreadable: make([]SkippedEntry, 0),
	}
}

func (d *Diff) sort() {
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Modified)
	sort.Strings(d.Touched)
	sort.Slice(d.Unreadable, func(i, j int) bool {
		return d.Unreadable[i].Path < d.Unreadable[j].Path
	})
}

// IsIndexValid reports whether rootDir still matches idx exactly
func (dc *DirectoryChecker) IsIndexValid(ctx context.Context, idx *Index, rootDir string) (bool, error) {
	diff, err := dc.Verify(ctx, idx, rootDir)
	if err != nil {
		return false, err
	}
	return diff.Valid(), nil
}

// Verify re-walks rootDir with the policy stored in idx and reports every difference.
// Mismatches are never errors; unreadable files are reported in the diff.
func (dc *DirectoryChecker) Verify(ctx context.Context, idx *Index, rootDir string) (*Diff, error) {
	defer VerboseEnter()()

	if idx == nil {
		return nil, ErrNilIndex
	}
	if err := checkRoot(rootDir); err != nil {
		return nil, err
	}

	policy := idx.Policy()
	algorithm, err := GetHashAlgorithm(policy.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	w, err := newWalker(rootDir, policy)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	diff := newDiff()
	var (
		mu      sync.Mutex
		walkErr error
	)
	unreadable := func(entry SkippedEntry) error {
		DebugLog(DebugVerify, "unreadable %s", entry)
		mu.Lock()
		diff.Unreadable = append(diff.Unreadable, entry)
		mu.Unlock()
		return nil
	}

	scanChan := make(chan *scannedPath, 64)
	hashManager := newHashManager(ctx, dc.opts.HashWorkers, algorithm, dc.opts.HashBuffer)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := w.walk(ctx, scanChan, unreadable); err != nil {
			mu.Lock()
			walkErr = err
			mu.Unlock()
			cancel()
		}
	}()

	var added, removed []string
	go func() {
		defer wg.Done()
		defer hashManager.FinishSubmitting()
		added, removed = dc.mergeCompare(ctx, idx.Records(), scanChan, hashManager)
	}()

	for result := range hashManager.Results() {
		path := result.Job.Path.RelPath
		if result.Err != nil {
			if ctx.Err() == nil {
				unreadable(SkippedEntry{Path: path, Reason: result.Err.Error(), Err: result.Err})
			}
			continue
		}

		stored := result.Job.Stored
		switch {
		case !stored.SameContent(result.Record):
			DebugLog(DebugVerify, "modified %s", path)
			diff.Modified = append(diff.Modified, path)
		case !stored.ModTime.Equal(result.Record.ModTime):
			DebugLog(DebugVerify, "touched %s", path)
			diff.Touched = append(diff.Touched, path)
		}
	}
	wg.Wait()

	if walkErr != nil {
		return nil, walkErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("verification of %s interrupted: %w", rootDir, err)
	}

	diff.Added = append(diff.Added, added...)
	diff.Removed = append(diff.Removed, removed...)
	diff.sort()

	VerboseLog(1, "verified %s: %d added, %d removed, %d modified, %d touched, %d unreadable",
		rootDir, len(diff.Added), len(diff.Removed), len(diff.Modified), len(diff.Touched), len(diff.Unreadable))
	return diff, nil
}

// mergeCompare walks the sorted index records and the sorted scan stream in step.
// Paths on one side only are added or removed; paths on both sides are submitted
// for hashing unless the size and mtime fast path allows skipping them.
func (dc *DirectoryChecker) mergeCompare(ctx context.Context, records []FileRecord, scanChan <-chan *scannedPath, hashManager *hashManager) (added, removed []string) {
	i := 0
	for sp := range scanChan {
		for i < len(records) && records[i].RelativePath < sp.RelPath {
			removed = append(removed, records[i].RelativePath)
			i++
		}

		if i < len(records) && records[i].RelativePath == sp.RelPath {
			stored := records[i]
			i++

			if !dc.opts.ForceFullHash && stored.Size == uint64(sp.Info.Size()) && stored.ModTime.Equal(sp.Info.ModTime()) {
				DebugLog(DebugVerify, "unchanged (metadata) %s", sp.RelPath)
				continue
			}
			if err := hashManager.Submit(ctx, sp, &stored); err != nil {
				// cancelled; keep draining so the walker can exit
				continue
			}
			continue
		}

		added = append(added, sp.RelPath)
	}

	for ; i < len(records); i++ {
		removed = append(removed, records[i].RelativePath)
	}
	return added, removed
}
