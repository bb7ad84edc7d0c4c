package cpcache

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/kestrelvm/kestrel/classfile"
	"github.com/kestrelvm/kestrel/internal/stw"
	"golang.org/x/sync/errgroup"
)

// RedefineCoordinator is the redefinition subsystem's entry point into a
// cache: it owns the stop-the-world barrier spec.md §5 assumes ("called by
// the redefinition subsystem while the world is stopped") and turns that
// assumption into an enforced precondition rather than a documented one.
//
// Interpreter and resolver goroutines that read or write a Cache through
// this coordinator must bracket each operation with StartOp/EndOp; a
// redefinition call then excludes all of them for the duration of its
// sweep.
type RedefineCoordinator struct {
	cache   *Cache
	barrier stw.Barrier
}

// NewRedefineCoordinator wraps cache with stop-the-world enforcement for
// redefinition.
func NewRedefineCoordinator(cache *Cache) *RedefineCoordinator {
	return &RedefineCoordinator{cache: cache}
}

// StartOp/EndOp bracket one interpreter or resolver operation against the
// coordinated cache, so that a concurrent AdjustBatch call cannot observe a
// torn update. Every cache read or write made outside of these brackets is
// unprotected against a concurrent redefinition sweep.
func (r *RedefineCoordinator) StartOp() { r.barrier.StartOp() }
func (r *RedefineCoordinator) EndOp()   { r.barrier.EndOp() }

// MethodAdjustment is one class's worth of old/new method replacements, as
// JVMTI-style batch class redefinition supplies them: a single redefinition
// request may touch several unrelated classes at once, each with its own
// old/new method arrays.
type MethodAdjustment struct {
	OldMethods []*classfile.Method
	NewMethods []*classfile.Method
}

// AdjustBatch stops the world, then applies every batch's adjustment to the
// cache concurrently. Batches are independent by construction — each names
// a distinct holder class (spec.md's adjust_method_entries keys off
// oldMethods[0].Holder) — so concurrent application within the stopped
// world is safe without further locking; errgroup.Group fans the batches
// out and joins them before the barrier reopens.
func (r *RedefineCoordinator) AdjustBatch(batches []MethodAdjustment) (total int, err error) {
	r.barrier.StopTheWorld(func() {
		var g errgroup.Group
		counts := make([]int, len(batches))
		for i, b := range batches {
			i, b := i, b
			g.Go(func() error {
				counts[i] = r.cache.AdjustMethodEntries(b.OldMethods, b.NewMethods)
				return nil
			})
		}
		// Batches never touch the same entry (distinct holder classes), so
		// no error path exists today; g.Wait() is kept so a future batch
		// validation step has somewhere to report a conflict.
		err = g.Wait()
		for _, c := range counts {
			total += c
		}
	})
	if total > 0 {
		log.Info("cpcache: redefinition batch applied", "batches", len(batches), "entries", total)
	}
	return total, err
}
