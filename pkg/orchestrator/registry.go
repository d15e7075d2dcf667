package orchestrator

import (
	"context"
	"sync"
)

// entry is the in-flight handle of one request. Its mutex serializes delta
// delivery against cancellation, so once stop returns no further delta of
// this request reaches the caller.
type entry struct {
	gen    uint64
	cancel context.CancelCauseFunc

	mu      sync.Mutex
	stopped bool
}

// stop cancels the request with cause. Only the first cause is kept.
func (e *entry) stop(cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.cancel(cause)
}

// deliver runs fn unless the request was stopped.
func (e *entry) deliver(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false
	}
	fn()
	return true
}

// close marks the request settled and reports whether it had already been
// stopped.
func (e *entry) close() (wasStopped bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wasStopped = e.stopped
	e.stopped = true
	return wasStopped
}

// registry maps tab ids to the request currently in flight for that tab.
type registry struct {
	mu      sync.Mutex
	nextGen uint64
	entries map[string]*entry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*entry)}
}

// register installs a new entry for tabID. A previous entry for the same tab
// is stopped with ErrReplaced before register returns.
func (r *registry) register(tabID string, cancel context.CancelCauseFunc) *entry {
	r.mu.Lock()
	r.nextGen++
	e := &entry{gen: r.nextGen, cancel: cancel}
	prev := r.entries[tabID]
	r.entries[tabID] = e
	r.mu.Unlock()

	if prev != nil {
		prev.stop(ErrReplaced)
	}
	return e
}

// unregister removes e if it is still the entry for tabID. A newer request
// for the tab is left alone.
func (r *registry) unregister(tabID string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[tabID]; ok && cur.gen == e.gen {
		delete(r.entries, tabID)
	}
}

// cancel stops and removes the entry for tabID.
func (r *registry) cancel(tabID string, cause error) bool {
	r.mu.Lock()
	e, ok := r.entries[tabID]
	if ok {
		delete(r.entries, tabID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.stop(cause)
	return true
}

func (r *registry) has(tabID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[tabID]
	return ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *registry) cancelAll(cause error) {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.stop(cause)
	}
}
