package uow

import (
	"reflect"

	"github.com/forbearing/uow/types"
)

// captureSnapshot reads an entity's current persistent field values through
// the metadata registry and returns them as an immutable Snapshot. Like every
// other place the engine reads application field values (flush planning,
// ScheduledUpdates, Merge), it goes through the registry's accessor
// rather than ad hoc reflection of the
// application's own types (spec §9 re-architecture note on dynamic
// attribute access).
func captureSnapshot(registry types.MetadataRegistry, class string, entity types.Model) (types.Snapshot, error) {
	values, err := registry.FieldValues(class, entity)
	if err != nil {
		return nil, err
	}
	return types.Snapshot(values), nil
}

// captureManagedSnapshot runs at every managed transition (initial load,
// post-insert promotion, successful merge) and honors Options.SnapshotStrategy
// (spec §6): SnapshotEager captures immediately, so a mutation made right
// after the transition is visible as dirty at the next flush. SnapshotDeferred
// leaves the record's snapshot unset; ensureSnapshot below then captures it
// lazily the first time a dirty check runs, absorbing any intervening
// mutation into the baseline instead of reporting it.
func (s *Session) captureManagedSnapshot(rec *entityRecord, class string, handle types.Model) error {
	if s.opts.SnapshotStrategy == SnapshotDeferred {
		rec.snapshot = nil
		return nil
	}
	snap, err := captureSnapshot(s.registry, class, handle)
	if err != nil {
		return err
	}
	rec.snapshot = snap
	return nil
}

// ensureSnapshot returns rec's baseline snapshot, capturing it now if it is
// still unset (the deferred strategy's first-dirty-check capture point).
func (s *Session) ensureSnapshot(rec *entityRecord, class string, handle types.Model) (types.Snapshot, error) {
	if rec.snapshot != nil {
		return rec.snapshot, nil
	}
	snap, err := captureSnapshot(s.registry, class, handle)
	if err != nil {
		return nil, err
	}
	rec.snapshot = snap
	return snap, nil
}

// computeChangeSet compares an entity's current field values against its
// snapshot and returns the set of fields whose values differ (spec §4.3).
// Scalars compare by strict equality on their normalized form; nullability
// is `null != any-non-null`; structured/relation values compare by deep
// structural equality, which also covers "both resolve to the same
// foreign-key value" for relation fields already normalized to a scalar FK
// by the registry.
func computeChangeSet(current, snapshot types.Snapshot) types.ChangeSet {
	changes := make(types.ChangeSet)
	for field, newVal := range current {
		oldVal, existed := snapshot[field]
		if !existed {
			changes[field] = [2]any{nil, newVal}
			continue
		}
		if !valuesEqual(oldVal, newVal) {
			changes[field] = [2]any{oldVal, newVal}
		}
	}
	for field, oldVal := range snapshot {
		if _, stillPresent := current[field]; !stillPresent {
			changes[field] = [2]any{oldVal, nil}
		}
	}
	return changes
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// isDirty reports whether a change set is non-empty; an entity with an
// empty change set is not scheduled for update.
func isDirty(cs types.ChangeSet) bool { return len(cs) > 0 }
