// Package uow implements the unit-of-work engine: identity map, lifecycle
// state machine, change tracker, dependency solver, flush scheduler, and
// the Session façade that ties them together.
package uow

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/uow/types"
)

// Kind discriminates the error taxonomy named in the engine's error-handling
// design: every fallible operation returns one of these, surfaced through a
// type switch or errors.As rather than a chain of exception types.
type Kind string

const (
	KindIllegalStateForOperation Kind = "illegal_state_for_operation"
	KindIllegalStateTransition   Kind = "illegal_state_transition"
	KindDuplicateIdentity        Kind = "duplicate_identity"
	KindUnmanagedEntity          Kind = "unmanaged_entity"
	KindCyclicDependency         Kind = "cyclic_dependency"
	KindFlushInProgress          Kind = "flush_in_progress"
	KindFlushAborted             Kind = "flush_aborted"
	KindSnapshotMissing          Kind = "snapshot_missing"
)

// Error is satisfied by every error the engine raises, letting callers
// dispatch on Kind() instead of comparing against sentinel values.
type Error interface {
	error
	Kind() Kind
}

// IllegalStateForOperationError is raised when the caller invokes an
// operation that is not legal from the entity's current lifecycle state.
type IllegalStateForOperationError struct {
	Op    string
	State types.LifecycleState
}

func (e *IllegalStateForOperationError) Kind() Kind { return KindIllegalStateForOperation }
func (e *IllegalStateForOperationError) Error() string {
	return fmt.Sprintf("illegal state for operation: cannot %s an entity in state %s", e.Op, e.State)
}

func newIllegalStateForOperation(op string, state types.LifecycleState) error {
	return errors.WithStack(&IllegalStateForOperationError{Op: op, State: state})
}

// IllegalStateTransitionError is raised when internal logic requests a
// transition the state machine's table does not allow.
type IllegalStateTransitionError struct {
	From types.LifecycleState
	To   types.LifecycleState
}

func (e *IllegalStateTransitionError) Kind() Kind { return KindIllegalStateTransition }
func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("illegal state transition: %s -> %s", e.From, e.To)
}

func newIllegalStateTransition(from, to types.LifecycleState) error {
	return errors.WithStack(&IllegalStateTransitionError{From: from, To: to})
}

// DuplicateIdentityError is raised when two distinct handles claim the same
// (class, key) in the identity map.
type DuplicateIdentityError struct {
	Class string
	Key   string
}

func (e *DuplicateIdentityError) Kind() Kind { return KindDuplicateIdentity }
func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate identity: %s#%s is already managed by another handle", e.Class, e.Key)
}

func newDuplicateIdentity(class, key string) error {
	return errors.WithStack(&DuplicateIdentityError{Class: class, Key: key})
}

// UnmanagedEntityError is raised when an operation requiring a MANAGED
// entity is called on a handle the session does not track.
type UnmanagedEntityError struct {
	Class string
}

func (e *UnmanagedEntityError) Kind() Kind    { return KindUnmanagedEntity }
func (e *UnmanagedEntityError) Error() string { return fmt.Sprintf("unmanaged entity: %s", e.Class) }

func newUnmanagedEntity(class string) error {
	return errors.WithStack(&UnmanagedEntityError{Class: class})
}

// CyclicDependencyError is raised by the dependency solver when a category's
// graph contains a cycle it cannot order.
type CyclicDependencyError struct {
	CyclePath []string
	// Partial holds a best-effort ordering of the acyclic portion, populated
	// only when fail_on_cyclic_dependency is false.
	Partial []string
}

func (e *CyclicDependencyError) Kind() Kind { return KindCyclicDependency }
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected: %v", e.CyclePath)
}

func newCyclicDependency(cycle []string, partial []string) error {
	return errors.WithStack(&CyclicDependencyError{CyclePath: cycle, Partial: partial})
}

// FlushInProgressError is raised by a re-entrant Flush call.
type FlushInProgressError struct{}

func (e *FlushInProgressError) Kind() Kind    { return KindFlushInProgress }
func (e *FlushInProgressError) Error() string { return "flush already in progress" }

func newFlushInProgress() error {
	return errors.WithStack(&FlushInProgressError{})
}

// FlushAbortedError wraps the underlying Executor failure that caused a
// flush's transaction to be rolled back.
type FlushAbortedError struct {
	Cause error
}

func (e *FlushAbortedError) Kind() Kind    { return KindFlushAborted }
func (e *FlushAbortedError) Error() string { return fmt.Sprintf("flush aborted: %v", e.Cause) }
func (e *FlushAbortedError) Unwrap() error { return e.Cause }

func newFlushAborted(cause error) error {
	return errors.WithStack(&FlushAbortedError{Cause: cause})
}

// SnapshotMissingError is an internal invariant violation: a MANAGED or
// REMOVED entity was expected to carry a snapshot but none was found.
type SnapshotMissingError struct {
	Class string
	Key   string
}

func (e *SnapshotMissingError) Kind() Kind { return KindSnapshotMissing }
func (e *SnapshotMissingError) Error() string {
	return fmt.Sprintf("snapshot missing for %s#%s", e.Class, e.Key)
}

func newSnapshotMissing(class, key string) error {
	return errors.WithStack(&SnapshotMissingError{Class: class, Key: key})
}
