package uow

import (
	"time"

	"github.com/forbearing/uow/types"
)

// allowedTransitions is the table from spec §4.2: source state -> set of
// destinations it may transition to. REMOVED is terminal; DETACHED only
// re-enters via merge, which is modeled at the façade level as producing a
// fresh MANAGED handle rather than a NEW->... transition of the same record.
var allowedTransitions = map[types.LifecycleState]map[types.LifecycleState]bool{
	types.New: {
		types.Managed:  true,
		types.Removed:  true,
		types.Detached: true,
	},
	types.Managed: {
		types.Removed:  true,
		types.Detached: true,
	},
	types.Removed:  {},
	types.Detached: {types.New: true},
}

// legalOperations is the operation-legality table from spec §4.2: which
// application call is admissible from each lifecycle state.
var legalOperations = map[string]map[types.LifecycleState]bool{
	"persist": {types.New: true, types.Detached: true},
	"update":  {types.Managed: true},
	"remove":  {types.New: true, types.Managed: true, types.Detached: true},
	"merge":   {types.Detached: true},
	"detach":  {types.New: true, types.Managed: true},
	"refresh": {types.Managed: true},
}

// canTransition reports whether the state machine allows from -> to.
func canTransition(from, to types.LifecycleState) bool {
	dests, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return dests[to]
}

// validateOperation implements the state validator consulted by the Session
// façade before every call. strict governs the behavior for operation names
// the table does not recognize (Options.StrictOperationValidation).
func validateOperation(op string, state types.LifecycleState, strict bool) bool {
	states, known := legalOperations[op]
	if !known {
		return !strict
	}
	return states[state]
}

// stateMachine owns one entity's current lifecycle state and transition
// log. It never decides whether an operation is legal (that's
// validateOperation, consulted by the façade) — it only records accepted
// transitions and enforces that they are structurally valid.
type stateMachine struct {
	state   types.LifecycleState
	history []types.TransitionRecord
	maxLen  int
}

func newStateMachine(initial types.LifecycleState, maxLen int) *stateMachine {
	return &stateMachine{state: initial, maxLen: maxLen}
}

// transition moves the entity from its current state to "to", appending a
// transition record. It fails with IllegalStateTransitionError if the move
// is not present in allowedTransitions — this is an internal-consistency
// guard, distinct from the operation-legality check the façade performs
// first.
func (sm *stateMachine) transition(to types.LifecycleState, cause string) error {
	if sm.state == to {
		return nil
	}
	if !canTransition(sm.state, to) {
		return newIllegalStateTransition(sm.state, to)
	}
	sm.history = append(sm.history, types.TransitionRecord{
		From: sm.state, To: to, Timestamp: time.Now(), Cause: cause,
	})
	if sm.maxLen > 0 && len(sm.history) > sm.maxLen {
		sm.history = sm.history[len(sm.history)-sm.maxLen:]
	}
	sm.state = to
	return nil
}

func (sm *stateMachine) clearHistory() {
	sm.history = nil
}

func (sm *stateMachine) historyCopy() []types.TransitionRecord {
	out := make([]types.TransitionRecord, len(sm.history))
	copy(out, sm.history)
	return out
}
