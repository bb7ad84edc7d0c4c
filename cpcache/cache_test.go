package cpcache

import (
	"sync"
	"testing"

	"github.com/kestrelvm/kestrel/classfile"
	"github.com/kestrelvm/kestrel/internal/gopool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InitializeAssignsConstantPoolIndices(t *testing.T) {
	pool := classfile.NewConstantPool(20)
	c := Allocate(pool, 3, 0)

	c.Initialize([]uint16{5, 9, 12})

	assert.EqualValues(t, 5, c.Entry(0).ConstantPoolIndex())
	assert.EqualValues(t, 9, c.Entry(1).ConstantPoolIndex())
	assert.EqualValues(t, 12, c.Entry(2).ConstantPoolIndex())
}

func TestCache_SetMethodHandle_WinnerTakesAll(t *testing.T) {
	pool := classfile.NewConstantPool(1)
	c := Allocate(pool, 1, 4)
	c.Initialize([]uint16{0})

	adapterA := &classfile.Method{Name: "A", ParameterSize: 1}
	adapterB := &classfile.Method{Name: "B", ParameterSize: 1}
	appendixA := &classfile.Object{Data: "A"}
	appendixB := &classfile.Object{Data: "B"}

	const contenders = 50
	var wins int32
	var mu sync.Mutex
	var winnerAdapter *classfile.Method

	gopool.Fan(contenders, func(i int) {
		adapter, appendix, slot := adapterA, appendixA, 0
		if i%2 == 1 {
			adapter, appendix, slot = adapterB, appendixB, 1
		}
		won := c.SetDynamicCall(0, adapter, slot, appendix, adapter.ParameterSize)
		if won {
			mu.Lock()
			wins++
			winnerAdapter = adapter
			mu.Unlock()
		}
	})

	assert.EqualValues(t, 1, wins, "exactly one writer must win the race")

	got, ok := c.MethodIfResolved(0)
	require.True(t, ok)
	assert.Same(t, winnerAdapter, got)
}

func TestCache_SetMethodHandle_AppendixSingleAssignment(t *testing.T) {
	pool := classfile.NewConstantPool(1)
	c := Allocate(pool, 1, 1)
	c.Initialize([]uint16{0})

	adapter := &classfile.Method{Name: "A", ParameterSize: 0}
	appendix := &classfile.Object{Data: "first"}

	ok := c.SetMethodHandle(0, adapter, 0, appendix, 0)
	assert.True(t, ok)

	got, ok := c.AppendixIfResolved(0)
	require.True(t, ok)
	assert.Same(t, appendix, got)

	// A second publication attempt loses and must not overwrite the slot.
	second := &classfile.Object{Data: "second"}
	assert.False(t, c.SetMethodHandle(0, adapter, 0, second, 0))
	got, ok = c.AppendixIfResolved(0)
	require.True(t, ok)
	assert.Same(t, appendix, got)
}

func TestCache_AdjustMethodEntries(t *testing.T) {
	holder := &classfile.Klass{Name: "K"}
	oldA := &classfile.Method{Holder: holder, Name: "a"}
	oldB := &classfile.Method{Holder: holder, Name: "b"}
	newA := &classfile.Method{Holder: holder, Name: "a"}
	newB := &classfile.Method{Holder: holder, Name: "b"}

	pool := classfile.NewConstantPool(4)
	c := Allocate(pool, 3, 0)
	c.Initialize([]uint16{0, 1, 2})
	c.Entry(0).SetMethod(InvokeStatic, oldA, -1)
	c.Entry(1).SetMethod(InvokeStatic, oldB, -1)
	unrelatedHolder := &classfile.Klass{Name: "Unrelated"}
	unrelated := &classfile.Method{Holder: unrelatedHolder, Name: "c"}
	c.Entry(2).SetMethod(InvokeStatic, unrelated, -1)

	changed := c.AdjustMethodEntries([]*classfile.Method{oldA, oldB}, []*classfile.Method{newA, newB})
	assert.Equal(t, 2, changed)

	got0, _ := c.MethodIfResolved(0)
	assert.Same(t, newA, got0)
	got1, _ := c.MethodIfResolved(1)
	assert.Same(t, newB, got1)
	got2, _ := c.MethodIfResolved(2)
	assert.Same(t, unrelated, got2, "entries belonging to a different holder must not be touched")
}

func TestCache_AdjustMethodEntries_Idempotent(t *testing.T) {
	holder := &classfile.Klass{Name: "K"}
	oldM := &classfile.Method{Holder: holder, Name: "m"}
	newM := &classfile.Method{Holder: holder, Name: "m"}

	pool := classfile.NewConstantPool(1)
	c := Allocate(pool, 1, 0)
	c.Initialize([]uint16{0})
	c.Entry(0).SetMethod(InvokeStatic, oldM, -1)

	first := c.AdjustMethodEntries([]*classfile.Method{oldM}, []*classfile.Method{newM})
	second := c.AdjustMethodEntries([]*classfile.Method{oldM}, []*classfile.Method{newM})
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "calling again with the same arguments must make no further change")
}

func TestCache_AdjustMethodEntries_NoOpWhenOldEqualsNew(t *testing.T) {
	holder := &classfile.Klass{Name: "K"}
	m := &classfile.Method{Holder: holder, Name: "m"}

	pool := classfile.NewConstantPool(1)
	c := Allocate(pool, 1, 0)
	c.Initialize([]uint16{0})
	c.Entry(0).SetMethod(InvokeStatic, m, -1)

	changed := c.AdjustMethodEntries([]*classfile.Method{m}, []*classfile.Method{m})
	assert.Equal(t, 0, changed)
}

func TestCache_CheckNoOldEntries(t *testing.T) {
	holder := &classfile.Klass{Name: "K"}
	fresh := &classfile.Method{Holder: holder, Name: "m"}
	stale := &classfile.Method{Holder: holder, Name: "old", Old: true}

	pool := classfile.NewConstantPool(2)
	c := Allocate(pool, 2, 0)
	c.Initialize([]uint16{0, 1})
	c.Entry(0).SetMethod(InvokeStatic, fresh, -1)
	assert.True(t, c.CheckNoOldEntries())

	c.Entry(1).SetMethod(InvokeStatic, stale, -1)
	assert.False(t, c.CheckNoOldEntries())
}

func TestCache_DumpEntries(t *testing.T) {
	pool := classfile.NewConstantPool(1)
	c := Allocate(pool, 2, 0)
	c.Initialize([]uint16{0, 1})
	holder := &classfile.Klass{Name: "K"}
	c.Entry(0).SetMethod(InvokeStatic, &classfile.Method{Holder: holder, Name: "m"}, -1)

	out := c.DumpEntries()
	assert.Contains(t, out, "cache [2 entries]")
	assert.Contains(t, out, "method(K.m")
}

func TestCache_GCRoots(t *testing.T) {
	holder := &classfile.Klass{Name: "K"}
	method := &classfile.Method{Holder: holder, Name: "m"}
	appendix := &classfile.Object{Data: "x"}

	pool := classfile.NewConstantPool(2)
	c := Allocate(pool, 2, 1)
	c.Initialize([]uint16{0, 1})
	c.Entry(0).SetMethod(InvokeStatic, method, -1)
	require.True(t, c.SetMethodHandle(1, &classfile.Method{Name: "adapter"}, 0, appendix, 0))

	var methods []*classfile.Method
	var objects []*classfile.Object
	c.GCRoots(func(m *classfile.Method, k *classfile.Klass, o *classfile.Object) {
		if m != nil {
			methods = append(methods, m)
		}
		if o != nil {
			objects = append(objects, o)
		}
	})

	assert.Contains(t, methods, method)
	assert.Contains(t, objects, appendix)
}
