package docsync

import (
	"sync"
	"time"

	"docasst/internal/domain/models/doc"
	"docasst/internal/livetree"
)

// Exporter debounces live-tree exports so the document is not re-serialized
// on every keystroke. Mark schedules a deferred export; Flush exports
// immediately and must be called before any operation that needs a
// guaranteed-fresh snapshot (issuing a save, building an AI request).
//
// The timer fires on its own goroutine, but the tree has exactly one mutator.
// The guard hands the fire-time export to that mutator's lock; Flush and
// Snapshot run on the caller's goroutine, which is the mutator already, so
// they read the tree directly.
type Exporter struct {
	mu       sync.Mutex
	engine   *Engine
	tree     *livetree.Tree
	interval time.Duration
	guard    func(func())
	sink     func(*doc.DocState)

	docID   string
	title   string
	version int

	timer   *time.Timer
	pending bool
	stopped bool
}

// NewExporter creates a debounced exporter. The guard wraps every timer-fired
// tree read; a nil guard runs it inline, for callers with no concurrent
// mutator. The sink receives every exported snapshot; with a nil sink
// snapshots are only returned from Flush.
func NewExporter(engine *Engine, tree *livetree.Tree, interval time.Duration, guard func(func()), sink func(*doc.DocState)) *Exporter {
	if guard == nil {
		guard = func(f func()) { f() }
	}
	return &Exporter{
		engine:   engine,
		tree:     tree,
		interval: interval,
		guard:    guard,
		sink:     sink,
	}
}

// SetMeta updates the document metadata stamped onto exported snapshots.
func (x *Exporter) SetMeta(docID, title string, version int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docID, x.title, x.version = docID, title, version
}

// Mark notes that the tree changed and (re)schedules an export one debounce
// interval out. Repeated marks within the interval coalesce.
func (x *Exporter) Mark() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.stopped {
		return
	}
	x.pending = true
	if x.timer != nil {
		x.timer.Stop()
	}
	x.timer = time.AfterFunc(x.interval, x.fire)
}

func (x *Exporter) fire() {
	x.mu.Lock()
	if x.stopped || !x.pending {
		x.mu.Unlock()
		return
	}
	x.pending = false
	sink := x.sink
	x.mu.Unlock()

	// The tree read must not race the mutator. Stopped is re-checked under
	// the guard: a session closing while the timer waited for the lock must
	// not export afterwards.
	var state *doc.DocState
	x.guard(func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		if x.stopped {
			return
		}
		state = x.exportLocked()
	})
	if state == nil {
		return
	}

	if sink != nil {
		sink(state)
	}
}

// Flush cancels any scheduled export, exports synchronously, and returns
// the fresh snapshot. The sink observes it as well.
func (x *Exporter) Flush() *doc.DocState {
	x.mu.Lock()
	if x.timer != nil {
		x.timer.Stop()
		x.timer = nil
	}
	x.pending = false
	state := x.exportLocked()
	sink := x.sink
	x.mu.Unlock()

	if sink != nil {
		sink(state)
	}
	return state
}

// Snapshot cancels any scheduled export and returns a fresh export without
// notifying the sink. For callers that persist the snapshot themselves and
// must not trigger a second write through the sink.
func (x *Exporter) Snapshot() *doc.DocState {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.timer != nil {
		x.timer.Stop()
		x.timer = nil
	}
	x.pending = false
	return x.exportLocked()
}

// Stop cancels scheduled work. A stopped exporter still flushes on demand.
func (x *Exporter) Stop() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.stopped = true
	if x.timer != nil {
		x.timer.Stop()
		x.timer = nil
	}
}

func (x *Exporter) exportLocked() *doc.DocState {
	return x.engine.Export(x.tree, x.docID, x.title, x.version)
}
