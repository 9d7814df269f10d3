package uow

import (
	"time"

	"github.com/forbearing/uow/types"
)

// entityRecord is the per-entity metadata the session owns for the
// entity's managed lifetime (spec §3 "EntityRecord"): handle, class,
// lifecycle state machine, snapshot, and timestamp.
type entityRecord struct {
	handle    types.Model
	class     string
	key       *types.EntityKey // nil until the entity has an assignable key
	sm        *stateMachine
	snapshot  types.Snapshot
	timestamp time.Time
}

func (r *entityRecord) state() types.LifecycleState { return r.sm.state }

// identityMap guarantees at most one in-memory handle per (class, key) and
// holds each tracked entity's record (spec §4.1). The two indices — by
// handle identity and by (class, key) — are kept in lock-step by every
// mutating method.
type identityMap struct {
	byHandle map[types.Model]*entityRecord
	byKey    map[types.EntityKey]*entityRecord
}

func newIdentityMap() *identityMap {
	return &identityMap{
		byHandle: make(map[types.Model]*entityRecord),
		byKey:    make(map[types.EntityKey]*entityRecord),
	}
}

// add registers a new record for handle. If key is non-nil, a duplicate
// (class, key) pair fails with DuplicateIdentity. A nil key (NEW entity
// with no assigned primary key yet) is indexed only by handle identity.
func (im *identityMap) add(handle types.Model, class string, key *types.EntityKey, initial types.LifecycleState, maxHistory int) (*entityRecord, error) {
	if key != nil {
		if _, exists := im.byKey[*key]; exists {
			return nil, newDuplicateIdentity(key.Class, key.ID)
		}
	}
	rec := &entityRecord{
		handle:    handle,
		class:     class,
		key:       key,
		sm:        newStateMachine(initial, maxHistory),
		timestamp: time.Now(),
	}
	im.byHandle[handle] = rec
	if key != nil {
		im.byKey[*key] = rec
	}
	return rec, nil
}

// promote is called after an insert obtains a generated primary key; it
// moves a handle-only record into the keyed index.
func (im *identityMap) promote(handle types.Model, assignedKey types.EntityKey) error {
	rec, ok := im.byHandle[handle]
	if !ok {
		return newUnmanagedEntity(assignedKey.Class)
	}
	if existing, exists := im.byKey[assignedKey]; exists && existing != rec {
		return newDuplicateIdentity(assignedKey.Class, assignedKey.ID)
	}
	rec.key = &assignedKey
	im.byKey[assignedKey] = rec
	return nil
}

// lookup finds the handle registered under (class, key), if any.
func (im *identityMap) lookup(class, key string) (types.Model, bool) {
	rec, ok := im.byKey[types.EntityKey{Class: class, ID: key}]
	if !ok {
		return nil, false
	}
	return rec.handle, true
}

// metadata returns the record tracked for handle, if any.
func (im *identityMap) metadata(handle types.Model) (*entityRecord, bool) {
	rec, ok := im.byHandle[handle]
	return rec, ok
}

// remove detaches the record from both indices.
func (im *identityMap) remove(handle types.Model) {
	rec, ok := im.byHandle[handle]
	if !ok {
		return
	}
	delete(im.byHandle, handle)
	if rec.key != nil {
		delete(im.byKey, *rec.key)
	}
}

// allOfClass returns every tracked handle belonging to class, used by
// clear() and bulk flush scans.
func (im *identityMap) allOfClass(class string) []types.Model {
	var out []types.Model
	for h, rec := range im.byHandle {
		if rec.class == class {
			out = append(out, h)
		}
	}
	return out
}

// all returns every tracked handle, regardless of class.
func (im *identityMap) all() []types.Model {
	out := make([]types.Model, 0, len(im.byHandle))
	for h := range im.byHandle {
		out = append(out, h)
	}
	return out
}

// clear drops every record; any outstanding handle becomes DETACHED from
// this session's perspective (the caller is responsible for not reusing the
// record after clear).
func (im *identityMap) clear() {
	im.byHandle = make(map[types.Model]*entityRecord)
	im.byKey = make(map[types.EntityKey]*entityRecord)
}
