package dirchecker

import (
	"context"
	"fmt"
	"sync"
)

// hashJob asks a worker to hash one scanned file. Stored is set when verifying.
type hashJob struct {
	JobID  uint64
	Path   *scannedPath
	Stored *FileRecord
}

// hashResult carries the freshly computed record, or the error that prevented it
type hashResult struct {
	Job    *hashJob
	Record FileRecord
	Err    error
}

// hashManager runs a bounded pool of hash workers feeding a single result channel
type hashManager struct {
	hashJobChan chan *hashJob
	resultChan  chan *hashResult
	wg          sync.WaitGroup
	algorithm   *HashAlgorithm
	bufferSize  int
	closeOnce   sync.Once
	nextJobID   uint64
}

// newHashManager starts numWorkers workers. Results are closed once every worker has exited.
func newHashManager(ctx context.Context, numWorkers int, algorithm *HashAlgorithm, bufferSize int) *hashManager {
	if numWorkers < 1 {
		numWorkers = 1
	}

	manager := &hashManager{
		hashJobChan: make(chan *hashJob, numWorkers*2),
		resultChan:  make(chan *hashResult, numWorkers*2),
		algorithm:   algorithm,
		bufferSize:  bufferSize,
	}

	for i := 0; i < numWorkers; i++ {
		manager.wg.Add(1)
		go manager.hashWorker(ctx)
	}

	go func() {
		manager.wg.Wait()
		close(manager.resultChan)
	}()

	return manager
}

// Submit queues a job, giving up if ctx is cancelled first. Not safe for concurrent callers.
func (hm *hashManager) Submit(ctx context.Context, path *scannedPath, stored *FileRecord) error {
	hm.nextJobID++
	job := &hashJob{JobID: hm.nextJobID, Path: path, Stored: stored}

	select {
	case hm.hashJobChan <- job:
		DebugLog(DebugHash, "submitted job %d for %s", job.JobID, path.RelPath)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FinishSubmitting signals that no more jobs will be submitted
func (hm *hashManager) FinishSubmitting() {
	hm.closeOnce.Do(func() {
		close(hm.hashJobChan)
	})
}

// Results is drained by the single collector until closed
func (hm *hashManager) Results() <-chan *hashResult {
	return hm.resultChan
}

// hashWorker drains jobs until the job channel closes. Every job yields exactly one result.
func (hm *hashManager) hashWorker(ctx context.Context) {
	defer hm.wg.Done()

	buffer := make([]byte, hm.bufferSize)
	for job := range hm.hashJobChan {
		DebugLog(DebugHash, "hashing %s (job %d)", job.Path.RelPath, job.JobID)

		result := &hashResult{Job: job}
		digest, n, err := HashFileInterruptible(ctx, job.Path.AbsPath, hm.algorithm, buffer)
		switch {
		case err != nil:
			result.Err = err
		case n != job.Path.Info.Size():
			result.Err = fmt.Errorf("%s changed while reading: expected %d bytes, read %d", job.Path.RelPath, job.Path.Info.Size(), n)
		default:
			result.Record = newFileRecord(job.Path.RelPath, digest, hm.algorithm.TypeID,
				uint64(n), job.Path.Info.ModTime())
		}

		if result.Err != nil {
			DebugLog(DebugHash, "hash failed for %s (job %d): %v", job.Path.RelPath, job.JobID, result.Err)
		}

		// The collector drains until close, so this send cannot block forever
		hm.resultChan <- result
	}
}
