package uow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forbearing/uow/types"
)

func newTestSession() (*Session, *fakeExecutor) {
	exec := newFakeExecutor()
	registry := newFakeRegistry()
	sess := New(registry, exec, DefaultOptions(), nil)
	return sess, exec
}

// Scenario A — Simple insert.
func TestScenarioA_SimpleInsert(t *testing.T) {
	sess, exec := newTestSession()
	u := newTestEntity("users")
	u.Name = "John"

	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Flush())

	require.Equal(t, []string{"begin", "insert:users", "commit"}, exec.calls)
	require.Equal(t, "John", exec.rows["users"]["row-1"]["name"])

	state, err := sess.EntityState(u)
	require.NoError(t, err)
	require.Equal(t, types.Managed, state)
	require.NotEmpty(t, u.GetID())

	exec.calls = nil
	require.NoError(t, sess.Flush())
	require.Empty(t, exec.calls)
}

// Scenario B — Illegal double persist of MANAGED entity.
func TestScenarioB_IllegalDoublePersist(t *testing.T) {
	sess, exec := newTestSession()
	u := newTestEntity("users")
	u.Name = "John"
	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Flush())
	exec.calls = nil

	err := sess.Persist(u)
	require.Error(t, err)
	var illegal *IllegalStateForOperationError
	require.ErrorAs(t, err, &illegal)
	require.Equal(t, "persist", illegal.Op)
	require.Equal(t, types.Managed, illegal.State)

	state, _ := sess.EntityState(u)
	require.Equal(t, types.Managed, state)
	require.Empty(t, exec.calls)
}

// Scenario C — Dirty detection.
func TestScenarioC_DirtyDetection(t *testing.T) {
	sess, exec := newTestSession()
	u := newTestEntity("users")
	u.Name = "John"
	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Flush())
	exec.calls = nil

	u.Name = "Jane"
	require.NoError(t, sess.Flush())

	require.Equal(t, []string{"begin", "update:users", "commit"}, exec.calls)

	// Second flush with no further change emits nothing further.
	exec.calls = nil
	require.NoError(t, sess.Flush())
	require.Empty(t, exec.calls)
}

// Scenario D — Dependency ordering.
func TestScenarioD_DependencyOrdering(t *testing.T) {
	sess, exec := newTestSession()
	order := newTestEntity("orders")
	item := newTestEntity("order_items")

	require.NoError(t, sess.AddInsertionDependency(item, order))
	require.NoError(t, sess.Persist(order))
	require.NoError(t, sess.Persist(item))
	require.NoError(t, sess.Flush())

	require.Equal(t, []string{"begin", "insert:orders", "insert:order_items", "commit"}, exec.calls)
}

// Scenario E — Cycle.
func TestScenarioE_Cycle(t *testing.T) {
	sess, exec := newTestSession()
	x := newTestEntity("x")
	y := newTestEntity("y")

	require.NoError(t, sess.AddInsertionDependency(x, y))
	require.NoError(t, sess.AddInsertionDependency(y, x))
	require.NoError(t, sess.Persist(x))
	require.NoError(t, sess.Persist(y))

	err := sess.Flush()
	require.Error(t, err)
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	require.Nil(t, exec.calls) // transaction never opened
}

// Scenario F — Flush rollback.
func TestScenarioF_FlushRollback(t *testing.T) {
	sess, exec := newTestSession()
	a := newTestEntity("products")
	a.SKU = "S1"
	b := newTestEntity("products")
	b.SKU = "S1"

	require.NoError(t, sess.Persist(a))
	require.NoError(t, sess.Persist(b))

	err := sess.Flush()
	require.Error(t, err)
	var aborted *FlushAbortedError
	require.ErrorAs(t, err, &aborted)

	var unique *types.ExecutorError
	require.ErrorAs(t, aborted.Cause, &unique)
	require.Equal(t, types.UniqueViolation, unique.Kind)

	require.True(t, exec.rolledBack)
	stateA, _ := sess.EntityState(a)
	stateB, _ := sess.EntityState(b)
	require.Equal(t, types.New, stateA)
	require.Equal(t, types.New, stateB)

	recA, ok := sess.im.metadata(a)
	require.True(t, ok)
	require.Nil(t, recA.key) // never assigned a keyed identity
	recB, ok := sess.im.metadata(b)
	require.True(t, ok)
	require.Nil(t, recB.key)
}

// Scenario G — Merge from detached.
func TestScenarioG_MergeFromDetached(t *testing.T) {
	sess, exec := newTestSession()
	m := newTestEntity("users")
	m.Name = "Live"
	require.NoError(t, sess.Persist(m))
	require.NoError(t, sess.Flush())
	key := m.GetID()

	d := newTestEntity("users")
	d.ID = key
	d.Name = "Old"

	merged, err := sess.Merge(d)
	require.NoError(t, err)
	require.Same(t, m, merged)
	require.Equal(t, "Old", m.Name)

	state, _ := sess.EntityState(m)
	require.Equal(t, types.Managed, state)

	exec.calls = nil
	require.NoError(t, sess.Flush())
	require.Equal(t, []string{"begin", "update:users", "commit"}, exec.calls)
}

// Invariant 1/2: contains() implies a tracked record in {NEW, MANAGED, REMOVED}.
func TestInvariant_ContainsImpliesTrackedState(t *testing.T) {
	sess, _ := newTestSession()
	u := newTestEntity("users")
	require.False(t, sess.Contains(u))

	require.NoError(t, sess.Persist(u))
	require.True(t, sess.Contains(u))
	state, err := sess.EntityState(u)
	require.NoError(t, err)
	require.Contains(t, []types.LifecycleState{types.New, types.Managed, types.Removed}, state)
}

// Invariant 3: after a successful flush, nothing remains scheduled.
func TestInvariant_NothingScheduledAfterFlush(t *testing.T) {
	sess, _ := newTestSession()
	u := newTestEntity("users")
	u.Name = "John"
	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Flush())

	require.Empty(t, sess.ScheduledInsertions())
	require.Empty(t, sess.ScheduledUpdates())
	require.Empty(t, sess.ScheduledDeletions())
}

// Invariant 5: an illegal operation leaves state unchanged.
func TestInvariant_IllegalOperationLeavesStateUnchanged(t *testing.T) {
	sess, _ := newTestSession()
	u := newTestEntity("users")

	err := sess.Refresh(u) // refresh is only legal on MANAGED
	require.Error(t, err)
	require.False(t, sess.Contains(u))
}

func TestRemoveOfNewEntityIsDiscarded(t *testing.T) {
	sess, exec := newTestSession()
	u := newTestEntity("users")
	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Remove(u))
	require.False(t, sess.Contains(u))

	require.NoError(t, sess.Flush())
	require.Empty(t, exec.calls)
}

func TestRemoveOfManagedEntitySchedulesDelete(t *testing.T) {
	sess, exec := newTestSession()
	u := newTestEntity("users")
	u.Name = "John"
	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Flush())
	exec.calls = nil

	require.NoError(t, sess.Remove(u))
	state, _ := sess.EntityState(u)
	require.Equal(t, types.Removed, state)

	require.NoError(t, sess.Flush())
	require.Equal(t, []string{"begin", "delete:users", "commit"}, exec.calls)
	require.False(t, sess.Contains(u))
}

func TestDetachRemovesFromSession(t *testing.T) {
	sess, _ := newTestSession()
	u := newTestEntity("users")
	require.NoError(t, sess.Persist(u))
	require.NoError(t, sess.Detach(u))
	require.False(t, sess.Contains(u))

	err := sess.Detach(u)
	require.Error(t, err)
}

func TestFlushReentrancyGuard(t *testing.T) {
	sess, _ := newTestSession()
	sess.flushing = true
	err := sess.Flush()
	require.Error(t, err)
	var busy *FlushInProgressError
	require.ErrorAs(t, err, &busy)
}
