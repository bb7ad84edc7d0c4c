package cpcache

import (
	"sync/atomic"

	"github.com/kestrelvm/kestrel/classfile"
)

// resolution is everything a resolved entry needs beyond its bytecode tags:
// the original design spreads this across two raw words, f1 (a typed
// reference) and f2 (an untyped word reused as an offset, a table index, or
// a method pointer depending on entry kind). Go can't union a pointer and
// an integer safely, and doing so would cost us GC visibility into method
// and class references, so both live here instead, built once and published
// as a single immutable value.
//
// Publishing this pointer atomically is the entry's one sentinel: a reader
// that observes a non-nil *resolution acquire-loaded from Entry.res is
// entitled to read every field below without further synchronization, and
// is guaranteed to see the flags that accompanied it. The bytecode tags are
// set only after the pointer is stored, so they may still read as zero.
type resolution struct {
	method *classfile.Method // direct call target, vfinal target, or handle/dynamic adapter
	klass  *classfile.Klass  // field holder, or interface klass for an interface entry
	index  int               // field byte offset, vtable index, itable index, or resolved-references slot
}

// Entry is one cached resolution, one per distinguished bytecode site. Its
// zero value is the unresolved state: every setter treats a freshly
// allocated Entry as safe to populate, and a reader that never observes a
// nonzero bytecode must fall back to the resolver.
//
// Entry kind is never stored as a tag; it is inferred from which bytecode
// is set and from the flags' option bits, exactly as a caller would infer
// it from the raw record. See (*Entry).MethodIfResolved for the inference.
type Entry struct {
	// indices packs the constant-pool index (set once, at construction)
	// with the two resolution-tag bytes. Readers load it with acquire
	// ordering; writers OR new bytecode bits in with release ordering,
	// always after every other field of the entry has been made visible.
	indices atomic.Uint32

	// flags is set once via compare-and-swap from zero. A later write that
	// disagrees with the already-published value is a protocol violation,
	// logged but otherwise dropped.
	flags atomic.Uint32

	// res is the sentinel. Once non-nil, the resolution it points to never
	// changes except via adjustMethod, which replaces the pointer with a
	// new, fully-built resolution rather than mutating fields in place.
	res atomic.Pointer[resolution]
}

// InitializeEntry records the constant-pool index this entry resolves. It
// must be called exactly once, before any setter, and before the entry is
// shared with any other goroutine; no ordering beyond normal construction
// is required because publishing the owning Cache to other goroutines
// already happens-after this call.
func (e *Entry) InitializeEntry(cpIndex uint16) {
	if !e.indices.CompareAndSwap(0, packCPIndex(cpIndex)) {
		protocolViolation("initialize_entry called on an already-initialized entry", "cpIndex", cpIndex)
	}
}

// ConstantPoolIndex returns the symbolic reference this entry was
// constructed for. Immutable for the entry's lifetime.
func (e *Entry) ConstantPoolIndex() uint16 {
	cpIndex, _, _ := unpackIndices(e.indices.Load())
	return cpIndex
}

// codes returns the currently-visible bytecode tags, acquire-ordered: this
// is the fast-path check every reader starts from.
func (e *Entry) codes() (bc1, bc2 ByteCode) {
	_, bc1, bc2 = unpackIndices(e.indices.Load())
	return
}

// IsResolved reports whether either bytecode tag has been set. It is the
// entry-level equivalent of the interpreter's "has this site run before"
// fast check.
func (e *Entry) IsResolved() bool {
	bc1, bc2 := e.codes()
	return bc1 != noCode || bc2 != noCode
}

// orBytecode1 / orBytecode2 perform the read-modify-write the design calls
// for: they OR a tag into the packed word and release-store the result.
// Two competing writers setting the same code race harmlessly, since the
// result is idempotent; the external contract is that competing
// resolutions of the same site are otherwise serialized by the resolver.
func (e *Entry) orBytecode1(code ByteCode) {
	e.orBytecode(code, bytecode1Shift)
}

func (e *Entry) orBytecode2(code ByteCode) {
	e.orBytecode(code, bytecode2Shift)
}

func (e *Entry) orBytecode(code ByteCode, shift uint32) {
	for {
		cur := e.indices.Load()
		if (cur>>shift)&byteMask == uint32(code) {
			return // already set, benign race
		}
		next := (cur &^ (byteMask << shift)) | (uint32(code) << shift)
		if e.indices.CompareAndSwap(cur, next) {
			return
		}
	}
}

// ensureFlags CAS's flags from zero to full. If flags is already non-zero
// (another setter, or an earlier SetParameterSize, got there first) it
// tolerates an identical value and logs a protocol violation for a
// genuinely conflicting one; it never overwrites a published value.
func (e *Entry) ensureFlags(full uint32) {
	for {
		cur := e.flags.Load()
		if cur == 0 {
			if e.flags.CompareAndSwap(0, full) {
				return
			}
			continue
		}
		if cur != full {
			protocolViolation("flags already set to a different value",
				"existing", cur, "incoming", full)
		}
		return
	}
}

// SetParameterSize records only the parameter size, tolerating a later (or
// concurrent) full setter that claims the same value. It is legal to call
// this before any other setter.
func (e *Entry) SetParameterSize(paramSize uint8) {
	full := uint32(paramSize) & paramOrFieldIndexMask
	if e.flags.CompareAndSwap(0, full) {
		return
	}
	cur := e.flags.Load()
	if cur&paramOrFieldIndexMask != full {
		protocolViolation("parameter size disagrees with already-resolved entry",
			"existing", cur&paramOrFieldIndexMask, "claimed", paramSize)
	}
}

// ParameterSize returns the parameter size or field index low bits,
// whichever this entry's kind uses them for.
func (e *Entry) ParameterSize() uint8 {
	return unpackFlags(e.flags.Load()).paramOrFieldIndex
}

func (e *Entry) flagBits() flagBits {
	return unpackFlags(e.flags.Load())
}

// IsVFinal reports whether this is a virtual entry whose call target was
// proven statically bindable, in which case f2 (here, resolution.method)
// holds the direct method rather than a vtable index.
func (e *Entry) IsVFinal() bool { return e.flagBits().isVFinal }

// SetField publishes a field entry. getCode and putCode may independently
// be noCode when that access direction is never taken at this site.
func (e *Entry) SetField(getCode, putCode ByteCode, holder *classfile.Klass, fieldIndex int, fieldOffset int, fieldType classfile.BasicType, isFinal, isVolatile bool) {
	res := &resolution{klass: holder, index: fieldOffset}
	full := packFlags(flagBits{
		paramOrFieldIndex: uint8(fieldIndex),
		isFinal:           isFinal,
		isVolatile:        isVolatile,
		tos:               fieldType,
	})
	e.ensureFlags(full)
	e.res.Store(res)
	if getCode != noCode {
		e.orBytecode1(getCode)
	}
	if putCode != noCode {
		e.orBytecode2(putCode)
	}
}

// SetMethod publishes a static, special, or virtual method entry.
// vtableIndex < 0 signals that method is statically bindable: the entry is
// published vfinal, with the method itself in place of a vtable index.
func (e *Entry) SetMethod(invokeCode ByteCode, method *classfile.Method, vtableIndex int) {
	switch invokeCode {
	case InvokeStatic, InvokeSpecial:
		e.ensureFlags(packFlags(flagBits{paramOrFieldIndex: method.ParameterSize}))
		e.res.Store(&resolution{method: method})
		e.orBytecode1(invokeCode)

	case InvokeVirtual:
		e.publishVirtual(method, vtableIndex, false)
		e.orBytecode2(InvokeVirtual)

	case InvokeInterface:
		// Corner case required by the surrounding language: an interface
		// call site that resolves to a concrete class method (for example
		// a default method override) is cached as a forced-virtual entry.
		e.publishVirtual(method, vtableIndex, true)
		e.orBytecode2(InvokeVirtual)
		if method.IsPublic {
			e.orBytecode1(InvokeInterface)
		}
		// A non-public match deliberately leaves bytecode_1 at noCode so
		// every caller re-resolves and re-checks access for itself.
	}
}

func (e *Entry) publishVirtual(method *classfile.Method, vtableIndex int, forcedVirtual bool) {
	vfinal := vtableIndex < 0
	fb := flagBits{paramOrFieldIndex: method.ParameterSize, isVFinal: vfinal, forcedVirtual: forcedVirtual}
	e.ensureFlags(packFlags(fb))
	if vfinal {
		e.res.Store(&resolution{method: method})
	} else {
		e.res.Store(&resolution{index: vtableIndex})
	}
}

// SetInterfaceCall publishes a plain interface entry: itable-indexed
// dispatch, never vfinal. method is the itable slot the resolver already
// walked to find; it is cached alongside the interface class and index so
// the decoder need not repeat a receiver-dependent itable walk it has no
// receiver to perform.
func (e *Entry) SetInterfaceCall(iface *classfile.Klass, method *classfile.Method, itableIndex int) {
	e.ensureFlags(packFlags(flagBits{paramOrFieldIndex: method.ParameterSize}))
	e.res.Store(&resolution{method: method, klass: iface, index: itableIndex})
	e.orBytecode1(InvokeInterface)
}

// trySetHandleOrDynamic is the handle/dynamic publication primitive. Callers
// (Cache.SetMethodHandle, Cache.SetDynamicCall) must hold the owning
// cache's mutex; this is the one path where competing writers are not
// externally serialized by the resolver, so the cache itself arbitrates.
// Returns false if another writer already won.
func (e *Entry) trySetHandleOrDynamic(code ByteCode, adapter *classfile.Method, appendixIndex int, hasAppendix bool, paramSize uint8) bool {
	if e.res.Load() != nil {
		return false
	}
	e.ensureFlags(packFlags(flagBits{paramOrFieldIndex: paramSize, hasAppendix: hasAppendix}))
	e.res.Store(&resolution{method: adapter, index: appendixIndex})
	e.orBytecode1(code)
	return true
}

// MethodIfResolved decodes the method this entry would invoke, if any. cp is
// the owning constant pool, needed only by the virtual-vtable path to
// recover the call's static holder class.
func (e *Entry) MethodIfResolved(cp *classfile.ConstantPool) (*classfile.Method, bool) {
	cpIndex, bc1, bc2 := unpackIndices(e.indices.Load())
	res := e.res.Load()

	switch bc1 {
	case InvokeInterface:
		if res == nil || res.method == nil {
			return nil, false
		}
		return res.method, true
	case InvokeStatic, InvokeSpecial, InvokeHandle, InvokeDynamic:
		if res == nil || res.method == nil {
			return nil, false
		}
		return res.method, true
	}

	if bc2 == InvokeVirtual {
		if res == nil {
			return nil, false
		}
		if e.flagBits().isVFinal {
			if res.method == nil {
				return nil, false
			}
			return res.method, true
		}
		holder, ok := cp.UncachedKlassRefAt(cpIndex)
		if !ok {
			// Legitimately racy: the class may have been unloaded
			// concurrently with this read during redefinition.
			return nil, false
		}
		// Array holders dispatch through the root Object class's vtable;
		// see classfile.RootObjectKlass.
		if holder.IsArray {
			holder = classfile.RootObjectKlass
		}
		m := holder.VtableAt(res.index)
		return m, m != nil
	}

	return nil, false
}

// AppendixIndexIfResolved returns the resolved-references slot this entry's
// appendix lives in, if it was published with has_appendix set. The actual
// array lookup belongs to the owning Cache, which holds that array.
func (e *Entry) AppendixIndexIfResolved() (int, bool) {
	res := e.res.Load()
	if res == nil || !e.flagBits().hasAppendix {
		return 0, false
	}
	return res.index, true
}

// holdsDirectMethod reports whether this entry's sentinel slot plays the
// "f1 is a method pointer" role from the original layout: static, special,
// vfinal virtual, and handle/dynamic entries. Interface entries store a
// method too (see SetInterfaceCall) purely so the receiver-less decoder can
// answer method_if_resolved, but in the original layout f1 there is the
// interface class, not a method, so redefinition and
// is_interesting_method_entry must not treat it as one; nor should a
// vtable-indexed virtual entry, whose slot is an index, not a pointer.
func (e *Entry) holdsDirectMethod() bool {
	bc1, bc2 := e.codes()
	switch bc1 {
	case InvokeStatic, InvokeSpecial, InvokeHandle, InvokeDynamic:
		return true
	}
	return bc2 == InvokeVirtual && e.flagBits().isVFinal
}

// adjustMethod replaces a method pointer in place, for class redefinition.
// It never touches any other field: the replacement is expected to be
// ABI-compatible with the one it replaces. Returns whether a change was
// made.
func (e *Entry) adjustMethod(old, new *classfile.Method) bool {
	if old == new || !e.holdsDirectMethod() {
		return false
	}
	for {
		cur := e.res.Load()
		if cur == nil || cur.method != old {
			return false
		}
		next := &resolution{method: new, klass: cur.klass, index: cur.index}
		if e.res.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// isInterestingMethodEntry reports whether this entry caches a direct
// method pointer belonging to klass: a static, special, vfinal-virtual, or
// handle/dynamic entry. Field entries, interface entries, and
// vtable-indexed virtual entries hold no method pointer in the original
// layout and are never interesting.
func (e *Entry) isInterestingMethodEntry(klass *classfile.Klass) bool {
	if !e.holdsDirectMethod() {
		return false
	}
	res := e.res.Load()
	if res == nil || res.method == nil {
		return false
	}
	return res.method.Holder == klass
}

// cachedMethod returns whatever method pointer this entry currently holds,
// for diagnostics (check_no_old_entries) that need to inspect every entry
// regardless of kind.
func (e *Entry) cachedMethod() *classfile.Method {
	res := e.res.Load()
	if res == nil {
		return nil
	}
	return res.method
}
