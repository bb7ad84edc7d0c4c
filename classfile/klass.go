package classfile

// Klass is a loaded class or interface. Like Method, it models only what the
// cache's decode path touches: the vtable virtual dispatch walks, and the
// itable interface dispatch indexes.
type Klass struct {
	Name    string
	IsArray bool
	IsIface bool
	Super   *Klass
	Vtable  []*Method
	Itables map[*Klass]Itable
}

// VtableAt returns the method installed at index idx, or nil if idx is out
// of range. A virtual entry caching a vtable index relies on this never
// changing shape after linking: the slot may be overwritten by redefinition,
// but the table itself is never resized.
func (k *Klass) VtableAt(idx int) *Method {
	if k == nil || idx < 0 || idx >= len(k.Vtable) {
		return nil
	}
	return k.Vtable[idx]
}

// ItableAt returns the method installed at index idx of iface's itable in k,
// or nil if either lookup misses.
func (k *Klass) ItableAt(iface *Klass, idx int) *Method {
	if k == nil {
		return nil
	}
	table, ok := k.Itables[iface]
	if !ok || idx < 0 || idx >= len(table) {
		return nil
	}
	return table[idx]
}

// RootObjectKlass is substituted for a virtual entry's holder when that
// holder turns out to be an array class, since arrays don't carry their own
// vtable and instead dispatch non-array methods (clone, equals, ...) through
// the root Object class. This mirrors a documented historical quirk of the
// original bytecode format and is preserved for decode compatibility, not
// because it is good API design.
var RootObjectKlass = &Klass{Name: "Object"}
