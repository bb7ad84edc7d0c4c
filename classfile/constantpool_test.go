package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantPool_UncachedKlassRefAt(t *testing.T) {
	cp := NewConstantPool(4)
	k := &Klass{Name: "K"}
	cp.SetClassRef(1, k)

	got, ok := cp.UncachedKlassRefAt(1)
	assert.True(t, ok)
	assert.Same(t, k, got)

	// An index never set (class unloaded concurrently, or simply absent)
	// must report a miss, not panic.
	_, ok = cp.UncachedKlassRefAt(2)
	assert.False(t, ok)

	// Out of range is a miss too.
	_, ok = cp.UncachedKlassRefAt(99)
	assert.False(t, ok)
}

func TestKlass_VtableAt(t *testing.T) {
	target := &Method{Name: "m"}
	k := &Klass{Name: "K", Vtable: []*Method{nil, target}}

	assert.Same(t, target, k.VtableAt(1))
	assert.Nil(t, k.VtableAt(5), "out of range must miss, not panic")
	assert.Nil(t, k.VtableAt(-1))

	var nilKlass *Klass
	assert.Nil(t, nilKlass.VtableAt(0))
}

func TestKlass_ItableAt(t *testing.T) {
	iface := &Klass{Name: "I", IsIface: true}
	target := &Method{Name: "m"}
	k := &Klass{Name: "K", Itables: map[*Klass]Itable{iface: {target}}}

	assert.Same(t, target, k.ItableAt(iface, 0))
	assert.Nil(t, k.ItableAt(iface, 5))

	other := &Klass{Name: "Other", IsIface: true}
	assert.Nil(t, k.ItableAt(other, 0), "an interface this class never implements must miss")
}
