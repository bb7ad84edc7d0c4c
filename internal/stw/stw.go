// Package stw enforces the stop-the-world contract that
// Cache.AdjustMethodEntries assumes: the redefinition subsystem rewrites
// cached method pointers on the assumption that no interpreter or resolver
// goroutine is concurrently reading or writing the cache. The host VM this
// design was lifted from gets that guarantee for free from a global
// safepoint; this package makes the same guarantee explicit and enforced
// for a Go port that has no safepoint mechanism of its own.
package stw

import "sync"

// Barrier is a readers-many/writer-one coordinator. Interpreter and
// resolver goroutines hold the read side for the duration of one cache
// operation; the redefinition subsystem holds the write side for the
// duration of one adjustment sweep, which excludes every reader until it
// completes.
type Barrier struct {
	mu sync.RWMutex
}

// StartOp begins one cache read or write by an interpreter/resolver
// goroutine. EndOp must be called when the operation completes.
func (b *Barrier) StartOp() { b.mu.RLock() }

// EndOp completes an operation begun with StartOp.
func (b *Barrier) EndOp() { b.mu.RUnlock() }

// StopTheWorld blocks until every in-flight StartOp/EndOp pair has
// completed, then runs fn with all interpreter/resolver activity excluded,
// matching Cache.AdjustMethodEntries's documented precondition.
func (b *Barrier) StopTheWorld(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}
