// Package types holds the boundary contracts shared between the unit-of-work
// engine and its collaborators: the application's entity types, the metadata
// registry that describes them, and the executor that runs transactions
// against storage.
package types

import "go.uber.org/zap/zapcore"

// Model is the contract an application entity must satisfy to be tracked by
// a session. A zero-value ID means the entity is unassigned (NEW); a
// non-empty ID is the primary-key value used to build its EntityKey.
//
// Model deliberately does not expose query-building, hydration, or CRUD
// hook methods: those belong to the application or to a service layer built
// on top of the engine, not to the unit-of-work core itself.
type Model interface {
	// GetTableName returns the class/table name used as the first component
	// of the entity's EntityKey.
	GetTableName() string
	GetID() string
	SetID(id ...string)
	ClearID()

	zapcore.ObjectMarshaler
}

// EntityKey is the tuple (class-name, primary-key-value) that uniquely
// identifies an assignable entity within a session.
type EntityKey struct {
	Class string
	ID    string
}

// Snapshot is an immutable field-name to persisted-value mapping captured
// when an entity becomes MANAGED. Values are the normalized persistent form;
// relation fields hold the foreign-key value, not the related object.
type Snapshot map[string]any

// Clone returns a deep-enough copy for equality comparison: a fresh map with
// the same key/value pairs. Values themselves are expected to be comparable
// scalars, strings, or other values for which reflect.DeepEqual is
// meaningful (the registry is responsible for normalizing relation fields to
// their foreign-key scalar before handing them to the engine).
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
