// Package index runs the incremental indexing pipeline: one discovery
// goroutine walks the source tree and enqueues changed files, a fixed
// pool of workers parses them, and a single writer applies results to
// the store one transaction per file.
package index

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"sigidx/internal/cparse"
	"sigidx/internal/model"
	"sigidx/internal/store"
)

// ParseFunc is the injected parser collaborator. It returns the file's
// function declarations or a diagnostic string; it must not panic.
type ParseFunc func(path string, src []byte) ([]model.Function, string)

// Config holds one pipeline run's configuration.
type Config struct {
	Root       string
	DBPath     string
	Workers    int
	Parse      ParseFunc
	OnProgress ObserverFunc
}

// Summary is the final report of a pipeline run.
type Summary struct {
	Progress
	Root     string
	DBPath   string
	Workers  int
	Duration time.Duration
}

// task is one changed or new file awaiting a parse.
type task struct {
	path  string
	mtime int64
	size  int64
}

// result is one parse attempt's outcome, headed for the writer.
type result struct {
	path      string
	mtime     int64
	size      int64
	functions []model.Function
	err       string
}

// Run executes one indexing pass over cfg.Root. Collaborator or store
// initialization failures are fatal and happen before any write;
// per-file parse failures are recorded in the store and the run
// continues. Cancellation via ctx is cooperative and is not an error:
// the summary comes back with Canceled set and partial counts.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}
	if cfg.Parse == nil {
		return nil, fmt.Errorf("no parser configured")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	known, err := s.KnownStates()
	if err != nil {
		return nil, fmt.Errorf("load known file states: %w", err)
	}

	tracker := NewTracker(cfg.OnProgress)
	tracker.Begin()

	// The task channel is bounded so discovery is throttled to parse
	// throughput; results are buffered enough that workers rarely wait
	// on the writer.
	tasks := make(chan task, max(16, workers*8))
	results := make(chan result, workers*2)

	var discoveryWg sync.WaitGroup
	discoveryWg.Add(1)
	go func() {
		defer discoveryWg.Done()
		defer close(tasks)
		discover(ctx, root, known, tasks, tracker)
	}()

	var workerWg sync.WaitGroup
	for range workers {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			workerLoop(ctx, cfg.Parse, tasks, results)
		}()
	}
	go func() {
		workerWg.Wait()
		close(results)
	}()

	var writeErr error
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeErr = writerLoop(s, results, tracker)
	}()

	discoveryWg.Wait()
	workerWg.Wait()
	<-writerDone

	tracker.Finish(ctx.Err() != nil)

	p := tracker.Snapshot()
	summary := &Summary{
		Progress: p,
		Root:     root,
		DBPath:   cfg.DBPath,
		Workers:  workers,
		Duration: p.End.Sub(p.Start),
	}
	return summary, writeErr
}

// discover walks the tree, counts every recognized file, and enqueues
// the ones whose (mtime, size) changed since the last run. Stat
// failures on individual files are non-fatal.
func discover(ctx context.Context, root string, known map[string]store.FileState, tasks chan<- task, tracker *Tracker) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !cparse.Extensions(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		mtime := info.ModTime().UnixNano()
		size := info.Size()
		tracker.Inc(Delta{Total: 1})

		if st, ok := known[path]; ok && st.Mtime == mtime && st.Size == size {
			tracker.Inc(Delta{Skipped: 1, Done: 1})
			return nil
		}

		select {
		case tasks <- task{path: path, mtime: mtime, size: size}:
			tracker.Inc(Delta{Queued: 1})
		case <-ctx.Done():
			return filepath.SkipAll
		}
		return nil
	})
}

// workerLoop parses queued files until the task channel closes. After
// cancellation it keeps consuming tasks without parsing them so the
// bounded queue always drains.
func workerLoop(ctx context.Context, parse ParseFunc, tasks <-chan task, results chan<- result) {
	for t := range tasks {
		if ctx.Err() != nil {
			continue
		}

		src, err := os.ReadFile(t.path)
		if err != nil {
			results <- result{path: t.path, mtime: t.mtime, size: t.size, err: fmt.Sprintf("read file: %v", err)}
			continue
		}

		funcs, errStr := safeParse(parse, t.path, src)
		results <- result{path: t.path, mtime: t.mtime, size: t.size, functions: funcs, err: errStr}
	}
}

// safeParse keeps a panicking parser collaborator from killing a
// worker; the panic becomes the file's error string.
func safeParse(parse ParseFunc, path string, src []byte) (funcs []model.Function, errStr string) {
	defer func() {
		if r := recover(); r != nil {
			funcs = nil
			errStr = fmt.Sprintf("parser panic: %v", r)
		}
	}()
	return parse(path, src)
}

// writerLoop is the single consumer of parse results. Each result is
// applied as one transaction, so a crash mid-run leaves every
// previously committed file valid. Store failures are remembered but
// don't stop the drain.
func writerLoop(s store.Store, results <-chan result, tracker *Tracker) error {
	var firstErr error
	for r := range results {
		if r.err != "" {
			if err := s.ApplyError(r.path, r.mtime, r.size, r.err); err != nil {
				fmt.Fprintf(os.Stderr, "store error %s: %v\n", r.path, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			tracker.Inc(Delta{Failed: 1, Done: 1})
			continue
		}

		if err := s.ApplyParsed(r.path, r.mtime, r.size, r.functions); err != nil {
			fmt.Fprintf(os.Stderr, "store error %s: %v\n", r.path, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		tracker.Inc(Delta{Indexed: 1, Done: 1, Functions: len(r.functions)})
	}
	return firstErr
}
