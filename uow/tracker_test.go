package uow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forbearing/uow/types"
)

func TestComputeChangeSetNoChange(t *testing.T) {
	snap := types.Snapshot{"name": "John"}
	current := types.Snapshot{"name": "John"}
	cs := computeChangeSet(current, snap)
	require.False(t, isDirty(cs))
}

func TestComputeChangeSetDetectsChange(t *testing.T) {
	snap := types.Snapshot{"name": "John"}
	current := types.Snapshot{"name": "Jane"}
	cs := computeChangeSet(current, snap)
	require.True(t, isDirty(cs))
	require.Equal(t, [2]any{"John", "Jane"}, cs["name"])
}

func TestComputeChangeSetNilHandling(t *testing.T) {
	snap := types.Snapshot{"remark": nil}
	current := types.Snapshot{"remark": nil}
	require.False(t, isDirty(computeChangeSet(current, snap)))

	current2 := types.Snapshot{"remark": "now set"}
	cs := computeChangeSet(current2, snap)
	require.True(t, isDirty(cs))
	require.Equal(t, [2]any{nil, "now set"}, cs["remark"])
}

func TestComputeChangeSetFieldRemovedOrAdded(t *testing.T) {
	snap := types.Snapshot{"name": "John"}
	current := types.Snapshot{"sku": "S1"}
	cs := computeChangeSet(current, snap)
	require.Equal(t, [2]any{nil, "S1"}, cs["sku"])
	require.Equal(t, [2]any{"John", nil}, cs["name"])
}

func TestCaptureSnapshot(t *testing.T) {
	registry := newFakeRegistry()
	e := newTestEntity("users")
	e.Name = "John"
	snap, err := captureSnapshot(registry, "users", e)
	require.NoError(t, err)
	require.Equal(t, "John", snap["name"])
	require.Nil(t, snap["sku"])
}

// Under SnapshotDeferred, a mutation made between the managed transition and
// the first dirty check is absorbed into the lazily-captured baseline rather
// than reported — the documented difference from SnapshotEager.
func TestSnapshotStrategyDeferredAbsorbsPriorMutation(t *testing.T) {
	exec := newFakeExecutor()
	registry := newFakeRegistry()
	opts := DefaultOptions()
	opts.SnapshotStrategy = SnapshotDeferred
	sess := New(registry, exec, opts, nil)

	u := newTestEntity("users")
	u.Name = "John"
	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Flush())

	rec, ok := sess.im.metadata(u)
	require.True(t, ok)
	require.Nil(t, rec.snapshot, "deferred strategy must not capture at the managed transition")

	// Mutate before any dirty check has ever run against this record.
	u.Name = "Jane"
	exec.calls = nil
	require.NoError(t, sess.Flush())
	require.Empty(t, exec.calls, "first dirty check captures the baseline instead of reporting this mutation")
	require.Equal(t, "Jane", rec.snapshot["name"])

	// A later mutation against the now-captured baseline is reported normally.
	u.Name = "Jack"
	require.NoError(t, sess.Flush())
	require.Equal(t, []string{"begin", "update:users", "commit"}, exec.calls)
	require.Equal(t, "Jack", rec.snapshot["name"])
}
