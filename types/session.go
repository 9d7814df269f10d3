package types

import "time"

// LifecycleState is the tagged discriminator with exactly four variants
// governing which operations are legal for an entity at any moment.
type LifecycleState string

const (
	New      LifecycleState = "NEW"
	Managed  LifecycleState = "MANAGED"
	Removed  LifecycleState = "REMOVED"
	Detached LifecycleState = "DETACHED"
)

// TransitionRecord is one accepted lifecycle transition, appended to an
// entity's per-session transition log for debugging and test assertions.
type TransitionRecord struct {
	From      LifecycleState
	To        LifecycleState
	Timestamp time.Time
	Cause     string
}

// DependencyCategory selects which of the three independent dependency
// graphs an edge belongs to.
type DependencyCategory string

const (
	InsertionDependency DependencyCategory = "insertion"
	UpdateDependency    DependencyCategory = "update"
	DeletionDependency  DependencyCategory = "deletion"
)

// ChangeSet maps a changed field name to its (old, new) value pair. An
// entity whose ChangeSet is empty is not scheduled for update.
type ChangeSet map[string][2]any

// Session is the exposed, in-process unit-of-work boundary. No CLI, no
// files, no wire protocol — persisted state lives entirely in the database
// through the Executor.
//
// A Session is not thread-safe: it is a single-threaded cooperative
// component, confined to one logical task for its lifetime. Only Flush,
// Merge, and Refresh may block on the Executor.
type Session interface {
	Persist(e Model) error
	Remove(e Model) error
	Merge(e Model) (Model, error)
	Detach(e Model) error
	Refresh(e Model) error
	Flush() error
	Clear()
	Contains(e Model) bool

	ScheduledInsertions() []Model
	ScheduledUpdates() []Model
	ScheduledDeletions() []Model
	ManagedEntities() []Model
	EntityState(e Model) (LifecycleState, error)
	TransitionHistory(e Model) ([]TransitionRecord, error)

	AddInsertionDependency(dependent, dependency Model) error
	AddUpdateDependency(dependent, dependency Model) error
	AddDeletionDependency(dependent, dependency Model) error
	ClearDependencies(e Model)
}
