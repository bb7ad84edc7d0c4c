package cpcache

// ByteCode is a resolution tag: the specific bytecode an entry's bytecode_1
// or bytecode_2 slot names once that entry has been resolved. It is not the
// full instruction set of the host bytecode format, only the handful of
// member-access and invoke forms the cache distinguishes between.
type ByteCode uint8

// noCode is the zero value, meaning "not yet resolved". Both bytecode_1
// and bytecode_2 may legally sit at noCode for the lifetime of an entry
// whose site never executes.
const noCode ByteCode = 0

// Field-access tags. Values match the class-file format's own opcodes, so
// that bytecode rewriting in place (the collaborator this cache sits
// behind) can reuse these constants directly instead of translating them.
// getstatic/putstatic deliberately sit outside the getfield/putfield/
// invoke* numeric run so that no two tags this cache dispatches on ever
// collide.
const (
	GetStatic ByteCode = 0xb2
	PutStatic ByteCode = 0xb3
	GetField  ByteCode = 0xb4
	PutField  ByteCode = 0xb5
)

// Invoke-family tags.
const (
	InvokeVirtual   ByteCode = 0xb6
	InvokeSpecial   ByteCode = 0xb7
	InvokeStatic    ByteCode = 0xb8
	InvokeInterface ByteCode = 0xb9
	InvokeDynamic   ByteCode = 0xba
)

// InvokeHandle has no getstatic-adjacent slot in the class-file format's
// own numbering (invokehandle is a HotSpot-internal "quick" variant, not a
// verifier-visible opcode); kept at its original out-of-band value.
const InvokeHandle ByteCode = 0xf9

func (b ByteCode) String() string {
	switch b {
	case noCode:
		return "none"
	case GetField:
		return "getfield"
	case PutField:
		return "putfield"
	case GetStatic:
		return "getstatic"
	case PutStatic:
		return "putstatic"
	case InvokeVirtual:
		return "invokevirtual"
	case InvokeSpecial:
		return "invokespecial"
	case InvokeStatic:
		return "invokestatic"
	case InvokeInterface:
		return "invokeinterface"
	case InvokeDynamic:
		return "invokedynamic"
	case InvokeHandle:
		return "invokehandle"
	default:
		return "unknown"
	}
}
