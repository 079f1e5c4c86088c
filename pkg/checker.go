package dirchecker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Checker is anything that can index a directory and verify an index against a directory
type Checker interface {
	CreateIndex(ctx context.Context, rootDir string) (*Index, error)
	IsIndexValid(ctx context.Context, idx *Index, rootDir string) (bool, error)
	Verify(ctx context.Context, idx *Index, rootDir string) (*Diff, error)
}

// Options configures a DirectoryChecker
type Options struct {
	Policy        Policy
	HashWorkers   int  // concurrent hash workers
	HashBuffer    int  // read buffer per worker in bytes
	Strict        bool // abort indexing on the first unreadable entry
	ForceFullHash bool // always rehash during verification
}

// DefaultOptions returns the correctness-first defaults
func DefaultOptions() Options {
	return Options{
		Policy:        DefaultPolicy(),
		HashWorkers:   runtime.GOMAXPROCS(0),
		HashBuffer:    2 * 1024 * 1024,
		ForceFullHash: true,
	}
}

// DirectoryChecker indexes and verifies trees on the local filesystem
type DirectoryChecker struct {
	opts      Options
	algorithm *HashAlgorithm
}

var _ Checker = (*DirectoryChecker)(nil)

// NewDirectoryChecker validates opts and returns a checker
func NewDirectoryChecker(opts Options) (*DirectoryChecker, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if opts.HashWorkers <= 0 {
		opts.HashWorkers = runtime.GOMAXPROCS(0)
	}
	if opts.HashWorkers > MaxHashWorkers {
		opts.HashWorkers = MaxHashWorkers
	}
	if opts.HashBuffer <= 0 {
		opts.HashBuffer = DefaultOptions().HashBuffer
	}

	algorithm, err := GetHashAlgorithm(opts.Policy.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	opts.Policy = opts.Policy.clone()
	return &DirectoryChecker{opts: opts, algorithm: algorithm}, nil
}

// Options returns the options the checker runs with
func (dc *DirectoryChecker) Options() Options {
	opts := dc.opts
	opts.Policy = opts.Policy.clone()
	return opts
}

// CreateIndex walks rootDir and hashes every regular file admitted by the policy.
// Unreadable entries are recorded as skipped unless the checker is strict.
func (dc *DirectoryChecker) CreateIndex(ctx context.Context, rootDir string) (*Index, error) {
	defer VerboseEnter()()

	if err := checkRoot(rootDir); err != nil {
		return nil, err
	}

	w, err := newWalker(rootDir, dc.opts.Policy)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	builder := newIndexBuilder(dc.opts.Policy)
	var (
		mu       sync.Mutex
		firstErr error
	)
	// fail records the first fatal error and stops the pipeline
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	skip := func(entry SkippedEntry) error {
		if dc.opts.Strict {
			cause := entry.Err
			if cause == nil {
				cause = errors.New(entry.Reason)
			}
			return &PartialReadError{Path: entry.Path, Err: cause}
		}
		VerboseLog(1, "skipping %s", entry)
		mu.Lock()
		builder.skip(entry)
		mu.Unlock()
		return nil
	}

	scanChan := make(chan *scannedPath, 64)
	hashManager := newHashManager(ctx, dc.opts.HashWorkers, dc.algorithm, dc.opts.HashBuffer)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := w.walk(ctx, scanChan, skip); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		defer hashManager.FinishSubmitting()
		for sp := range scanChan {
			if err := hashManager.Submit(ctx, sp, nil); err != nil {
				// walk sees the same cancellation and closes scanChan
				continue
			}
		}
	}()

	// Single aggregation point: only this loop touches the record list
	for result := range hashManager.Results() {
		if result.Err != nil {
			if ctx.Err() != nil {
				continue
			}
			if dc.opts.Strict {
				fail(&PartialReadError{Path: result.Job.Path.RelPath, Err: result.Err})
				continue
			}
			skip(SkippedEntry{Path: result.Job.Path.RelPath, Reason: result.Err.Error(), Err: result.Err})
			continue
		}
		if err := builder.add(result.Record, IndexContext); err != nil {
			fail(err)
		}
	}
	wg.Wait()

	mu.Lock()
	err = firstErr
	mu.Unlock()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	idx := builder.build()
	VerboseLog(1, "indexed %d files under %s (%d skipped)", idx.Len(), rootDir, len(idx.skipped))
	return idx, nil
}
