package cpcache

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// AssertionsEnabled gates the protocol-violation diagnostics described in
// the cache's error handling design: none of these are fatal in production,
// but surfacing them is invaluable when a resolver or the redefinition path
// has a bug. Off by default to keep the interpreter's hot loop quiet; set
// CPCACHE_ASSERT=1 to turn them on for tests and debugging.
var AssertionsEnabled = false

func init() {
	if v := os.Getenv("CPCACHE_ASSERT"); v == "1" || v == "true" {
		AssertionsEnabled = true
	}
}

// protocolViolation reports a setter being called with arguments inconsistent
// with a prior state. Per the error handling design this is never fatal: the
// first writer always wins and the inconsistent write is dropped.
func protocolViolation(msg string, ctx ...interface{}) {
	if AssertionsEnabled {
		log.Warn("cpcache: protocol violation: "+msg, ctx...)
	}
}

// String renders one entry's raw layout for operator diagnostics, in the
// same field order as the original's print(): bytecodes and cp_index, then
// f1, f2, flags. Not part of correctness; never called from a hot path.
func (e *Entry) String() string {
	cpIndex, bc1, bc2 := unpackIndices(e.indices.Load())
	res := e.res.Load()
	flags := e.flags.Load()

	var f1, f2 string
	if res == nil {
		f1, f2 = "<nil>", "0"
	} else {
		switch {
		case res.method != nil:
			f1 = fmt.Sprintf("method(%s.%s%s)", res.method.Holder.Name, res.method.Name, res.method.Descriptor)
		case res.klass != nil:
			f1 = fmt.Sprintf("klass(%s)", res.klass.Name)
		default:
			f1 = "<nil>"
		}
		f2 = fmt.Sprintf("%d", res.index)
	}

	return fmt.Sprintf("[%02x|%02x|%5d]  f1=%s  f2=%s  flags=%#x", uint8(bc2), uint8(bc1), cpIndex, f1, f2, flags)
}

// DumpEntries renders every entry in the cache, one line per entry, for
// operator diagnostics and tests that want a human-readable snapshot. Not
// part of correctness.
func (c *Cache) DumpEntries() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cache [%d entries]\n", len(c.entries))
	for i := range c.entries {
		fmt.Fprintf(&b, "%4d  %s\n", i, c.entries[i].String())
	}
	return b.String()
}
