package uow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forbearing/uow/types"
)

func TestCanTransition(t *testing.T) {
	require.True(t, canTransition(types.New, types.Managed))
	require.True(t, canTransition(types.New, types.Removed))
	require.True(t, canTransition(types.New, types.Detached))
	require.True(t, canTransition(types.Managed, types.Removed))
	require.True(t, canTransition(types.Managed, types.Detached))
	require.True(t, canTransition(types.Detached, types.New))

	require.False(t, canTransition(types.Removed, types.New))
	require.False(t, canTransition(types.Removed, types.Managed))
	require.False(t, canTransition(types.Managed, types.New))
	require.False(t, canTransition(types.Detached, types.Managed))
	require.False(t, canTransition(types.Detached, types.Removed))
}

func TestValidateOperation(t *testing.T) {
	require.True(t, validateOperation("persist", types.New, true))
	require.True(t, validateOperation("persist", types.Detached, true))
	require.False(t, validateOperation("persist", types.Managed, true))

	require.True(t, validateOperation("update", types.Managed, true))
	require.False(t, validateOperation("update", types.New, true))

	require.True(t, validateOperation("merge", types.Detached, true))
	require.False(t, validateOperation("merge", types.New, true))
	require.False(t, validateOperation("merge", types.Managed, true))

	require.True(t, validateOperation("detach", types.New, true))
	require.True(t, validateOperation("detach", types.Managed, true))
	require.False(t, validateOperation("detach", types.Detached, true))

	require.True(t, validateOperation("refresh", types.Managed, true))
	require.False(t, validateOperation("refresh", types.New, true))
}

func TestValidateOperationUnknownName(t *testing.T) {
	require.False(t, validateOperation("bogus", types.New, true))
	require.True(t, validateOperation("bogus", types.New, false))
}

func TestStateMachineTransition(t *testing.T) {
	sm := newStateMachine(types.New, 0)
	require.NoError(t, sm.transition(types.Managed, "insert"))
	require.Equal(t, types.Managed, sm.state)
	require.Len(t, sm.historyCopy(), 1)
	require.Equal(t, types.New, sm.historyCopy()[0].From)
	require.Equal(t, types.Managed, sm.historyCopy()[0].To)

	// Same-state transition is a no-op, not an error, and not logged.
	require.NoError(t, sm.transition(types.Managed, "noop"))
	require.Len(t, sm.historyCopy(), 1)

	require.Error(t, sm.transition(types.New, "illegal"))
}

func TestStateMachineHistoryCap(t *testing.T) {
	sm := newStateMachine(types.New, 1)
	require.NoError(t, sm.transition(types.Managed, "insert"))
	require.NoError(t, sm.transition(types.Removed, "remove"))
	require.Len(t, sm.historyCopy(), 1)
	require.Equal(t, types.Managed, sm.historyCopy()[0].From)
	require.Equal(t, types.Removed, sm.historyCopy()[0].To)
}
