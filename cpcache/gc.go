package cpcache

import "github.com/kestrelvm/kestrel/classfile"

// GCRoots reports every managed reference the garbage collector must treat
// as live roots of this cache: each entry's cached method/class pointer and
// every populated resolved-references slot.
//
// The original design expresses this as an iterator over word offsets that
// "accepts in-place relocation writes", because its collector can move
// objects and must rewrite the cache's raw words to match. Go's collector
// is non-relocating and precise over typed pointers: a plain *classfile.Method
// or *classfile.Object field already keeps its target alive and is already
// walked by the runtime scanner without the cache's help. GCRoots exists
// only as the read-side equivalent — useful for an external heap-walking
// tool, a leak checker, or a redefinition audit that wants to see what a
// cache is still holding onto — not because Go's GC needs it to function.
func (c *Cache) GCRoots(visit func(*classfile.Method, *classfile.Klass, *classfile.Object)) {
	for i := range c.entries {
		res := c.entries[i].res.Load()
		if res != nil {
			visit(res.method, res.klass, nil)
		}
	}
	for i := range c.resolvedReferences {
		if obj := c.resolvedReferences[i].Load(); obj != nil {
			visit(nil, nil, obj)
		}
	}
}
