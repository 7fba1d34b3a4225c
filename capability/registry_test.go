package capability

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// The reference C implementation's id-keyed tree has a known copy-paste
// bug: its insertion comparator walks rb_left on *both* branches of the
// less-than/greater-or-equal split, so any insert whose key compares
// greater-or-equal to an existing node is misfiled into the left subtree
// instead of the right one. Repeated inserts on one side of an existing
// key silently corrupt the tree. idRegistry uses a map instead, so both
// branches below must behave identically regardless of how the UUIDs
// happen to compare.
func TestIDRegistryInsertBothOrderings(t *testing.T) {
	r := newIDRegistry[string]()

	lo, hi := uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")

	r.insert(lo, "lo")
	r.insert(hi, "hi")

	v, ok := r.lookup(lo)
	require.True(t, ok)
	require.Equal(t, "lo", v)

	v, ok = r.lookup(hi)
	require.True(t, ok)
	require.Equal(t, "hi", v)

	require.Equal(t, 2, r.len())
}

func TestIDRegistryRemoveThenLookupMisses(t *testing.T) {
	r := newIDRegistry[string]()
	id := uuid.New()
	r.insert(id, "only")
	r.remove(id)

	_, ok := r.lookup(id)
	require.False(t, ok)
	require.Equal(t, 0, r.len())
}

func TestIDRegistryOverwriteKeepsSingleEntry(t *testing.T) {
	r := newIDRegistry[string]()
	id := uuid.New()
	r.insert(id, "first")
	r.insert(id, "second")

	v, ok := r.lookup(id)
	require.True(t, ok)
	require.Equal(t, "second", v)
	require.Equal(t, 1, r.len())
}
