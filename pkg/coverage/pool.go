package coverage

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// maxWorkers caps the pool; every worker holds its own file and index
// handle.
const maxWorkers = 256

// workerPool runs chunks concurrently and folds their partials into a
// Merger. Workers never share a Store: each opens its own through the
// Opener, keeps it for the chunks it processes and reopens it after a
// failed chunk. A single collector goroutine owns the Merger.
type workerPool struct {
	workers     int
	open        Opener
	merger      *Merger
	log         *logrus.Entry
	chunkQueue  chan Chunk
	resultQueue chan Partial
	workerWg    sync.WaitGroup
	resultWg    sync.WaitGroup
}

func newWorkerPool(workers int, open Opener, merger *Merger, log *logrus.Entry) *workerPool {
	if workers < 1 {
		workers = 1
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	return &workerPool{
		workers:     workers,
		open:        open,
		merger:      merger,
		log:         log,
		chunkQueue:  make(chan Chunk, workers*2),
		resultQueue: make(chan Partial, workers*2),
	}
}

// Start starts the workers and the collector
func (wp *workerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.workerWg.Add(1)
		go wp.worker(i)
	}

	wp.resultWg.Add(1)
	go wp.collector()
}

func (wp *workerPool) worker(id int) {
	defer wp.workerWg.Done()

	var store Store
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	for chunk := range wp.chunkQueue {
		if store == nil {
			s, err := wp.open()
			if err != nil {
				wp.resultQueue <- Partial{
					Chunk:  chunk,
					Depths: Depths{},
					Err:    fmt.Errorf("worker %d: open store: %w", id, err),
				}
				continue
			}
			store = s
		}

		partial := ProcessChunk(store, chunk)
		if partial.Err != nil {
			// the handle may be left mid-block; start the next chunk fresh
			store.Close()
			store = nil
		}
		wp.resultQueue <- partial
	}
}

func (wp *workerPool) collector() {
	defer wp.resultWg.Done()

	for partial := range wp.resultQueue {
		if partial.Err != nil {
			wp.log.WithFields(logrus.Fields{
				"chunk": partial.Chunk.String(),
				"error": partial.Err,
			}).Warn("chunk failed, skipping")
		}
		wp.merger.Add(partial)
	}
}

// Submit queues a chunk. It returns the context error once ctx is done.
func (wp *workerPool) Submit(ctx context.Context, chunk Chunk) error {
	select {
	case wp.chunkQueue <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish waits for queued chunks to complete and for the collector to fold
// every partial.
func (wp *workerPool) Finish() {
	close(wp.chunkQueue)
	wp.workerWg.Wait()

	close(wp.resultQueue)
	wp.resultWg.Wait()
}

// runChunks processes chunks with a fresh pool and folds them into merger
func runChunks(ctx context.Context, chunks []Chunk, workers int, open Opener, merger *Merger, log *logrus.Entry) error {
	wp := newWorkerPool(workers, open, merger, log)
	wp.Start()

	var err error
	for _, chunk := range chunks {
		if err = wp.Submit(ctx, chunk); err != nil {
			break
		}
	}
	wp.Finish()
	return err
}
