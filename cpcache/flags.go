package cpcache

import "github.com/kestrelvm/kestrel/classfile"

// indices packs the symbolic constant-pool index this entry resolves,
// together with the two resolution-tag bytes the interpreter dispatches on.
// Layout, fixed: [ bytecode_2:8 | bytecode_1:8 | cp_index:16 ].
const (
	cpIndexBits = 16
	cpIndexMask = uint32(1)<<cpIndexBits - 1

	bytecode1Shift = cpIndexBits
	bytecode2Shift = cpIndexBits + 8
	byteMask       = uint32(0xff)
)

func packCPIndex(cpIndex uint16) uint32 {
	return uint32(cpIndex) & cpIndexMask
}

func unpackIndices(word uint32) (cpIndex uint16, bc1, bc2 ByteCode) {
	cpIndex = uint16(word & cpIndexMask)
	bc1 = ByteCode((word >> bytecode1Shift) & byteMask)
	bc2 = ByteCode((word >> bytecode2Shift) & byteMask)
	return
}

// flags packs the parameter size (or, for field entries, the field index),
// a handful of option bits, and the result type-of-stack code. Layout,
// fixed: [ tos_state:4 | option_bits | parameter_size_or_field_index:8 ].
const (
	paramOrFieldIndexBits = 8
	paramOrFieldIndexMask = uint32(1)<<paramOrFieldIndexBits - 1

	optionShift = paramOrFieldIndexBits

	optIsVFinal      uint32 = 1 << (optionShift + 0)
	optIsFinal       uint32 = 1 << (optionShift + 1)
	optVolatile      uint32 = 1 << (optionShift + 2)
	optForcedVirtual uint32 = 1 << (optionShift + 3)
	optHasAppendix   uint32 = 1 << (optionShift + 4)

	tosShift = optionShift + 5
	tosMask  = uint32(0xf)
)

type flagBits struct {
	paramOrFieldIndex uint8
	isVFinal          bool
	isFinal           bool
	isVolatile        bool
	forcedVirtual     bool
	hasAppendix       bool
	tos               classfile.BasicType
}

func packFlags(b flagBits) uint32 {
	word := uint32(b.paramOrFieldIndex) & paramOrFieldIndexMask
	if b.isVFinal {
		word |= optIsVFinal
	}
	if b.isFinal {
		word |= optIsFinal
	}
	if b.isVolatile {
		word |= optVolatile
	}
	if b.forcedVirtual {
		word |= optForcedVirtual
	}
	if b.hasAppendix {
		word |= optHasAppendix
	}
	word |= (uint32(b.tos) & tosMask) << tosShift
	return word
}

func unpackFlags(word uint32) flagBits {
	return flagBits{
		paramOrFieldIndex: uint8(word & paramOrFieldIndexMask),
		isVFinal:          word&optIsVFinal != 0,
		isFinal:           word&optIsFinal != 0,
		isVolatile:        word&optVolatile != 0,
		forcedVirtual:     word&optForcedVirtual != 0,
		hasAppendix:       word&optHasAppendix != 0,
		tos:               classfile.BasicType((word >> tosShift) & tosMask),
	}
}
