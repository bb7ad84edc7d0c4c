// Package resolver models the cache's one external collaborator: the
// component that turns a symbolic constant-pool reference into a concrete
// field offset, method pointer, or call-site adapter and feeds it to a
// cpcache.Entry's setters. Class loading, access checking, and bytecode
// verification all live upstream of this package; Resolver only shows the
// shape of that boundary so the cache's own tests can exercise entries
// against something resolver-shaped without pulling in a real class loader.
package resolver

import (
	"fmt"
	"sync"

	"github.com/kestrelvm/kestrel/classfile"
	"github.com/kestrelvm/kestrel/cpcache"
)

// Site describes one bytecode site's symbolic reference, enough for a
// Resolver to decide which of the cache's typed setters to call.
type Site struct {
	EntryIndex int
	CPIndex    uint16
	Holder     *classfile.Klass
	FieldIndex int
}

// Resolver performs the (expensive, memoized-by-the-cache) work of turning
// a Site into a published cpcache.Entry. Real resolvers do class loading
// and access checks here; this one only does lookups against an
// already-linked classfile model, which is all the cache's own tests need.
type Resolver struct {
	cache *cpcache.Cache

	// mu serializes resolutions of the same site, standing in for the
	// cache's external requirement that competing resolutions of one site
	// are serialized upstream of the entry setters (handle/dynamic
	// excepted, which the cache itself serializes).
	mu sync.Mutex
}

func New(cache *cpcache.Cache) *Resolver {
	return &Resolver{cache: cache}
}

// ResolveField resolves and publishes an instance field entry. get/putCode
// follow cpcache.ByteCode's GetField/PutField family; pass 0 for a
// direction the site never takes.
func (r *Resolver) ResolveField(site Site, getCode, putCode cpcache.ByteCode, offset int, fieldType classfile.BasicType, isFinal, isVolatile bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Entry(site.EntryIndex).SetField(getCode, putCode, site.Holder, site.FieldIndex, offset, fieldType, isFinal, isVolatile)
}

// ResolveStaticField is ResolveField's static-field counterpart: same entry
// kind (a field entry, per spec.md §3.1), but tagged with the
// getstatic/putstatic bytecodes instead of getfield/putfield, since a
// static access and an instance access to the same-shaped field are
// distinguished at the call site, not by the cache.
func (r *Resolver) ResolveStaticField(site Site, getCode, putCode cpcache.ByteCode, offset int, fieldType classfile.BasicType, isFinal, isVolatile bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Entry(site.EntryIndex).SetField(getCode, putCode, site.Holder, site.FieldIndex, offset, fieldType, isFinal, isVolatile)
}

// ResolveStaticOrSpecial resolves a statically-bound invoke.
func (r *Resolver) ResolveStaticOrSpecial(site Site, invokeCode cpcache.ByteCode, method *classfile.Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Entry(site.EntryIndex).SetMethod(invokeCode, method, -1)
}

// ResolveVirtual resolves an invokevirtual site, choosing the vfinal or
// vtable encoding by whether method is final (and thus statically
// bindable).
func (r *Resolver) ResolveVirtual(site Site, method *classfile.Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vtableIndex := -1
	if !method.IsFinal && !method.Holder.IsIface {
		vtableIndex = method.VtableIndex
	}
	r.cache.Entry(site.EntryIndex).SetMethod(cpcache.InvokeVirtual, method, vtableIndex)
}

// ResolveInterfaceCall resolves an invokeinterface site against the
// concrete receiver class's itable. If the match turns out to be a class
// method (a default-method-style override), it is published through
// SetMethod(invoke_interface, ...) instead, so the forced-virtual path
// kicks in.
func (r *Resolver) ResolveInterfaceCall(site Site, iface *classfile.Klass, receiver *classfile.Klass, itableIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	method := receiver.ItableAt(iface, itableIndex)
	if method == nil {
		return fmt.Errorf("resolver: no itable entry for %s at index %d in %s", iface.Name, itableIndex, receiver.Name)
	}
	if method.Holder != iface {
		r.cache.Entry(site.EntryIndex).SetMethod(cpcache.InvokeInterface, method, -1)
		return nil
	}
	r.cache.Entry(site.EntryIndex).SetInterfaceCall(iface, method, itableIndex)
	return nil
}

// ResolveMethodHandle and ResolveDynamicCall route through the cache's own
// mutex-guarded path; no additional serialization is needed here, which is
// why they don't take the resolver's mu.

func (r *Resolver) ResolveMethodHandle(site Site, adapter *classfile.Method, appendixIndex int, appendix *classfile.Object) bool {
	return r.cache.SetMethodHandle(site.EntryIndex, adapter, appendixIndex, appendix, adapter.ParameterSize)
}

func (r *Resolver) ResolveDynamicCall(site Site, adapter *classfile.Method, appendixIndex int, appendix *classfile.Object) bool {
	return r.cache.SetDynamicCall(site.EntryIndex, adapter, appendixIndex, appendix, adapter.ParameterSize)
}
