// Package indexer runs batch ingestion: many audio files pushed through
// the fingerprinting pipeline into the index by a bounded worker pool.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/inboxpraveen/Audio-Fingerprint/internal/engine"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/metrics"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/storage"
	"github.com/inboxpraveen/Audio-Fingerprint/utils/logger"
)

// FileError records one per-file failure. Failures do not abort a batch.
type FileError struct {
	Path  string `json:"file"`
	Error string `json:"error"`
}

// Summary is the outcome of one batch run.
type Summary struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"success"`
	Failed    int         `json:"failed"`
	Errors    []FileError `json:"errors,omitempty"`
}

// ProgressFunc is notified after every completed or failed file. done
// counts processed files so far out of total.
type ProgressFunc func(done, total int, path string, err error)

// Indexer ingests files through an engine with a fixed worker count.
type Indexer struct {
	engine   *engine.Engine
	workers  int
	progress ProgressFunc
}

// New creates an indexer. workers must be positive; progress may be nil.
func New(e *engine.Engine, workers int, progress ProgressFunc) *Indexer {
	if workers < 1 {
		workers = 1
	}
	return &Indexer{engine: e, workers: workers, progress: progress}
}

// result is one worker outcome, reported on the result channel.
type result struct {
	path string
	err  error
}

// IndexFiles ingests the given files. Each worker consumes the next
// pending path, runs decode, fingerprinting and storage, and reports the
// outcome. Cancellation is honored between files; a file already being
// processed finishes. Decoded audio is never retained across tasks.
func (ix *Indexer) IndexFiles(ctx context.Context, paths []string) Summary {
	summary := Summary{Total: len(paths)}
	if len(paths) == 0 {
		return summary
	}

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for w := 0; w < ix.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				_, err := ix.engine.IndexFile(ctx, path, "", storage.Metadata{})
				results <- result{path: path, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		if r.err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, FileError{Path: r.path, Error: r.err.Error()})
			metrics.IndexFailures.Inc()
			logger.Warn(fmt.Sprintf("Failed to index %s: %v", r.path, r.err))
		} else {
			summary.Succeeded++
			metrics.TracksIndexed.Inc()
		}
		if ix.progress != nil {
			ix.progress(done, summary.Total, r.path, r.err)
		}
	}

	// Files never dispatched because of cancellation count as failed.
	if skipped := summary.Total - done; skipped > 0 {
		summary.Failed += skipped
		summary.Errors = append(summary.Errors, FileError{Path: "", Error: ctx.Err().Error()})
	}
	return summary
}

// IndexDirectory finds every supported audio file under dir (recursively)
// and ingests them. File discovery order is stable.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (Summary, error) {
	paths, err := ix.findAudioFiles(dir)
	if err != nil {
		return Summary{}, err
	}
	logger.Info(fmt.Sprintf("Indexing %d audio files from %s with %d workers", len(paths), dir, ix.workers))
	return ix.IndexFiles(ctx, paths), nil
}

func (ix *Indexer) findAudioFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ix.engine.Config().ExtensionAllowed(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %v", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
