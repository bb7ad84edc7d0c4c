package cpcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRecordDecode exercises the one counter pair nothing in this package
// calls itself: RecordDecode is collaborator-facing API for the
// interpreter's member-access/invoke handler, which lives outside this
// repo, so a direct call is the only way to prove the wiring works.
func TestRecordDecode(t *testing.T) {
	hitBefore := resolveHitMeter.Snapshot().Count()
	missBefore := resolveMissMeter.Snapshot().Count()

	RecordDecode(true)
	RecordDecode(false)
	RecordDecode(false)

	assert.Equal(t, hitBefore+1, resolveHitMeter.Snapshot().Count())
	assert.Equal(t, missBefore+2, resolveMissMeter.Snapshot().Count())
}
