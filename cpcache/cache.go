package cpcache

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/kestrelvm/kestrel/classfile"
)

// Cache is a class's inline resolution cache: one Entry per distinguished
// bytecode site, plus the side array handle/dynamic call sites stash their
// appendices in. Its length is fixed at Allocate and never changes for the
// life of the owning class.
type Cache struct {
	entries            []Entry
	pool               *classfile.ConstantPool
	resolvedReferences []atomic.Pointer[classfile.Object]

	// mu serializes handle/dynamic publication only. Every other setter
	// path is wait-free and never takes this lock; see Entry.trySetHandleOrDynamic.
	mu sync.Mutex
}

// Allocate reserves storage for length entries against pool, all
// zero-initialized (unresolved). It does not yet assign constant-pool
// indices; call Initialize before sharing the cache with any resolver.
func Allocate(pool *classfile.ConstantPool, length int, resolvedReferenceSlots int) *Cache {
	return &Cache{
		entries:            make([]Entry, length),
		pool:               pool,
		resolvedReferences: make([]atomic.Pointer[classfile.Object], resolvedReferenceSlots),
	}
}

// Len reports how many entries this cache holds.
func (c *Cache) Len() int { return len(c.entries) }

// Entry returns the entry at index i. Panics on an out-of-range index,
// matching the fixed-length-array contract: the rewriter is expected to
// only ever address indices it assigned at Initialize time.
func (c *Cache) Entry(i int) *Entry { return &c.entries[i] }

// Initialize populates each entry's constant-pool index from
// inverseIndexMap (entry index -> constant-pool index). After this call the
// cache is live and may receive concurrent resolutions from any number of
// interpreter/resolver goroutines.
func (c *Cache) Initialize(inverseIndexMap []uint16) {
	for i, cpIndex := range inverseIndexMap {
		c.entries[i].InitializeEntry(cpIndex)
	}
}

// SetMethodHandle publishes a method-handle call site's resolution under
// the cache's writer mutex, the one path the design requires to be
// serialized rather than left to external resolver discipline. Returns
// false if a concurrent caller already won.
func (c *Cache) SetMethodHandle(entryIndex int, adapter *classfile.Method, appendixIndex int, appendix *classfile.Object, paramSize uint8) bool {
	return c.setHandleOrDynamic(InvokeHandle, entryIndex, adapter, appendixIndex, appendix, paramSize)
}

// SetDynamicCall is SetMethodHandle's invokedynamic counterpart.
func (c *Cache) SetDynamicCall(entryIndex int, adapter *classfile.Method, appendixIndex int, appendix *classfile.Object, paramSize uint8) bool {
	return c.setHandleOrDynamic(InvokeDynamic, entryIndex, adapter, appendixIndex, appendix, paramSize)
}

func (c *Cache) setHandleOrDynamic(code ByteCode, entryIndex int, adapter *classfile.Method, appendixIndex int, appendix *classfile.Object, paramSize uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &c.entries[entryIndex]
	if e.res.Load() != nil {
		// A concurrent caller already published this entry; leave its
		// appendix slot as the winner wrote it.
		handleContentionMeter.Inc(1)
		return false
	}
	hasAppendix := appendix != nil
	if hasAppendix {
		// Written before f1 is published, per the entry's own protocol;
		// single-assignment is guaranteed by the mutex, so a plain store
		// here is sound.
		if c.resolvedReferences[appendixIndex].Load() != nil {
			protocolViolation("resolved_references slot already written", "slot", appendixIndex)
		} else {
			c.resolvedReferences[appendixIndex].Store(appendix)
		}
	}
	won := e.trySetHandleOrDynamic(code, adapter, appendixIndex, hasAppendix, paramSize)
	if !won {
		handleContentionMeter.Inc(1)
	}
	return won
}

// AppendixIfResolved returns the appendix object cached for entryIndex, if
// any.
func (c *Cache) AppendixIfResolved(entryIndex int) (*classfile.Object, bool) {
	idx, ok := c.entries[entryIndex].AppendixIndexIfResolved()
	if !ok {
		return nil, false
	}
	return c.resolvedReferences[idx].Load(), true
}

// MethodIfResolved decodes entryIndex's currently-cached method, if any.
func (c *Cache) MethodIfResolved(entryIndex int) (*classfile.Method, bool) {
	return c.entries[entryIndex].MethodIfResolved(c.pool)
}

// AdjustMethodEntries walks every entry and, for each one that caches a
// direct pointer to oldMethods[i] and belongs to oldMethods[0].Holder,
// replaces it with newMethods[i]. Must be called under a stop-the-world
// guarantee: no concurrent interpreter or resolver activity is assumed to
// be racing this walk, matching the redefinition subsystem's contract.
//
// At most one replacement is made per entry per call, matching the
// original's single first-match semantics.
func (c *Cache) AdjustMethodEntries(oldMethods, newMethods []*classfile.Method) int {
	if len(oldMethods) == 0 {
		return 0
	}
	holder := oldMethods[0].Holder
	changed := 0
	for i := range c.entries {
		e := &c.entries[i]
		if !e.isInterestingMethodEntry(holder) {
			continue
		}
		for j, old := range oldMethods {
			if e.adjustMethod(old, newMethods[j]) {
				changed++
				break
			}
		}
	}
	if changed > 0 {
		log.Debug("cpcache: adjusted method entries", "holder", holder.Name, "count", changed)
		redefineMeter.Inc(int64(changed))
	}
	return changed
}

// CheckNoOldEntries is a diagnostic: it reports whether any entry still
// holds a pointer to a method marked Old, i.e. superseded by redefinition
// but not yet collected. A true return is healthy.
func (c *Cache) CheckNoOldEntries() bool {
	for i := range c.entries {
		if m := c.entries[i].cachedMethod(); m != nil && m.Old {
			return false
		}
	}
	return true
}

// ResolvedReferenceAt exposes a single resolved-references slot, for GC
// iteration and for diagnostics. See GCRoots for the bulk iterator.
func (c *Cache) ResolvedReferenceAt(i int) *classfile.Object {
	return c.resolvedReferences[i].Load()
}
