package index

import (
	"sync"
	"time"
)

// Progress is a snapshot of a pipeline run's counters.
type Progress struct {
	FilesTotal     int
	FilesQueued    int
	FilesDone      int
	FilesSkipped   int
	FilesIndexed   int
	FilesFailed    int
	FunctionsTotal int
	Running        bool
	Canceled       bool
	Start          time.Time
	End            time.Time
}

// Delta is a set of counter increments applied atomically.
type Delta struct {
	Total     int
	Queued    int
	Done      int
	Skipped   int
	Indexed   int
	Failed    int
	Functions int
}

// ObserverFunc receives a full snapshot after every tracker mutation.
type ObserverFunc func(Progress)

// Tracker is a thread-safe progress accumulator shared by the
// discovery, worker, and writer goroutines. Observer panics are
// swallowed so a misbehaving callback cannot stop a run.
type Tracker struct {
	mu       sync.Mutex
	p        Progress
	observer ObserverFunc
}

// NewTracker creates a tracker; observer may be nil.
func NewTracker(observer ObserverFunc) *Tracker {
	return &Tracker{observer: observer}
}

// Begin marks the run started.
func (t *Tracker) Begin() {
	t.mu.Lock()
	t.p.Running = true
	t.p.Canceled = false
	t.p.Start = time.Now()
	t.p.End = time.Time{}
	snap := t.p
	t.mu.Unlock()
	t.emit(snap)
}

// Finish marks the run ended.
func (t *Tracker) Finish(canceled bool) {
	t.mu.Lock()
	t.p.Running = false
	t.p.Canceled = canceled
	t.p.End = time.Now()
	snap := t.p
	t.mu.Unlock()
	t.emit(snap)
}

// Inc applies the deltas and notifies the observer.
func (t *Tracker) Inc(d Delta) {
	t.mu.Lock()
	t.p.FilesTotal += d.Total
	t.p.FilesQueued += d.Queued
	t.p.FilesDone += d.Done
	t.p.FilesSkipped += d.Skipped
	t.p.FilesIndexed += d.Indexed
	t.p.FilesFailed += d.Failed
	t.p.FunctionsTotal += d.Functions
	snap := t.p
	t.mu.Unlock()
	t.emit(snap)
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}

func (t *Tracker) emit(snap Progress) {
	if t.observer == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	t.observer(snap)
}
