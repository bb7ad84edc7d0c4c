package classfile

import "fmt"

// BasicType is the result type-of-stack code the interpreter needs to know
// how to push a field or return value. It doubles as the field-type tag
// recorded in a field entry's flags.
type BasicType uint8

const (
	TypeVoid BasicType = iota
	TypeBoolean
	TypeByte
	TypeChar
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeObject
	TypeArray
)

func (t BasicType) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeBoolean:
		return "boolean"
	case TypeByte:
		return "byte"
	case TypeChar:
		return "char"
	case TypeShort:
		return "short"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("BasicType(%d)", uint8(t))
	}
}

// symbolicKind distinguishes the handful of things a constant-pool slot can
// name, for the decoder's uncached-reference-class lookup.
type symbolicKind uint8

const (
	symbolicClassRef symbolicKind = iota
	symbolicFieldRef
	symbolicMethodRef
	symbolicInterfaceMethodRef
	symbolicInvokeDynamic
)

type symbolicEntry struct {
	kind  symbolicKind
	klass *Klass // resolved lazily by the symbolic resolver; may be nil
}

// ConstantPool is the class file's table of symbolic references. The cache
// keeps a pointer back to its owning pool so the decoder can recover a
// virtual call's holder class from the constant-pool index alone, without
// having cached the class pointer itself.
//
// Resolving ordinary entries (class loading, access checks) is the symbolic
// resolver's job; ConstantPool here only stores whatever that resolver has
// already produced.
type ConstantPool struct {
	entries []symbolicEntry
}

// NewConstantPool allocates a pool with length slots, initially unresolved.
func NewConstantPool(length int) *ConstantPool {
	return &ConstantPool{entries: make([]symbolicEntry, length)}
}

// SetClassRef records that pool index i resolves to klass, for later lookup
// by UncachedKlassRefAt. Called by the symbolic resolver, never by the
// cache itself.
func (cp *ConstantPool) SetClassRef(i int, klass *Klass) {
	cp.entries[i] = symbolicEntry{kind: symbolicClassRef, klass: klass}
}

// UncachedKlassRefAt returns the class named by the (possibly
// method/field/interface) reference at constant-pool index i, resolving the
// class named by that reference even though the cache entry itself never
// stored a class pointer. Used only by the virtual-vtable decode path,
// which has a vtable index but no cached holder.
//
// Returns false if the pool has no class recorded at i, which legitimately
// happens when the owning class was unloaded concurrently; callers must
// treat that as "not resolved", not an error.
func (cp *ConstantPool) UncachedKlassRefAt(i uint16) (*Klass, bool) {
	if int(i) >= len(cp.entries) {
		return nil, false
	}
	e := cp.entries[int(i)]
	if e.klass == nil {
		return nil, false
	}
	return e.klass, true
}

// Len reports how many constant-pool slots this pool has.
func (cp *ConstantPool) Len() int {
	return len(cp.entries)
}
