package cpcache

import "github.com/ethereum/go-ethereum/metrics"

// These are cheap, always-on registered counters rather than a sampling
// profiler, so a running process can be asked for exact
// resolution/redefinition counts without instrumentation flags.
var (
	resolveHitMeter       = metrics.NewRegisteredCounterForced("cpcache/resolve/hit", nil)
	resolveMissMeter      = metrics.NewRegisteredCounterForced("cpcache/resolve/miss", nil)
	handleContentionMeter = metrics.NewRegisteredCounterForced("cpcache/handle/contended", nil)
	redefineMeter         = metrics.NewRegisteredCounterForced("cpcache/redefine/entries", nil)
)

// RecordDecode lets a collaborator (typically the interpreter's member
// access/invoke handler) report whether its method_if_resolved call found a
// cached resolution. The cache itself never calls this: keeping it out of
// MethodIfResolved keeps that function's hot path free of counter writes
// for callers that don't want the overhead.
func RecordDecode(hit bool) {
	if hit {
		resolveHitMeter.Inc(1)
	} else {
		resolveMissMeter.Inc(1)
	}
}
