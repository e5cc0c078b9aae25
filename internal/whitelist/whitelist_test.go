package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTrimsSortsDedups(t *testing.T) {
	got := Normalize([]string{"type", "", "rating", "type"})
	assert.Equal(t, []string{"rating", "type"}, got)
}

func TestNormalizeTrimsWhitespacePaddedFields(t *testing.T) {
	got := Normalize([]string{"type ", " rating", "type"})
	assert.Equal(t, []string{"rating", "type"}, got)
}

func TestAllowsWithNoEntryAllowsEverything(t *testing.T) {
	w := New()
	assert.True(t, w.Allows("node", "anything"))
}

func TestAllowsFiltersToWhitelistedKeys(t *testing.T) {
	w := New()
	w.Set("node", []string{"type", "rating"})
	assert.True(t, w.Allows("node", "type"))
	assert.True(t, w.Allows("node", "rating"))
	assert.False(t, w.Allows("node", "extra"))
	// Edge kind has no entry yet: still allows everything.
	assert.True(t, w.Allows("edge", "anything"))
}

func TestSnapshotIsValueCopy(t *testing.T) {
	w := New()
	w.Set("node", []string{"type"})
	snap := w.Snapshot()
	snap["node"][0] = "mutated"
	assert.True(t, w.Allows("node", "type"))
	assert.False(t, w.Allows("node", "mutated"))
}
