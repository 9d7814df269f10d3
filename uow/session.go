package uow

import (
	"context"

	"github.com/forbearing/uow/logger"
	"github.com/forbearing/uow/types"
)

var _ types.Session = (*Session)(nil)

// Session is the unit-of-work boundary: one identity map, one set of
// pending work, and the three independent dependency graphs, all confined
// to a single logical task (spec §5). It is not safe for concurrent use.
type Session struct {
	im      *identityMap
	insDeps *dependencyGraph
	updDeps *dependencyGraph
	delDeps *dependencyGraph

	registry types.MetadataRegistry
	executor types.Executor
	opts     Options

	ctx      context.Context
	order    []types.Model // registration order, for stable flush batching
	flushing bool
}

// New constructs a Session against the given MetadataRegistry and Executor.
// opCtx, if non-nil, supplies the ambient context used for
// Flush/Merge/Refresh's Executor calls; only its Context() is kept, its
// Username/RequestID/TraceID fields are not read by the Session.
func New(registry types.MetadataRegistry, executor types.Executor, opts Options, opCtx *types.OpContext) *Session {
	ctx := context.Background()
	if opCtx != nil {
		ctx = opCtx.Context()
	}
	return &Session{
		im:       newIdentityMap(),
		insDeps:  newDependencyGraph(),
		updDeps:  newDependencyGraph(),
		delDeps:  newDependencyGraph(),
		registry: registry,
		executor: executor,
		opts:     opts,
		ctx:      ctx,
	}
}

func (s *Session) currentState(e types.Model) (types.LifecycleState, *entityRecord) {
	rec, ok := s.im.metadata(e)
	if !ok {
		return types.Detached, nil
	}
	return rec.state(), rec
}

func (s *Session) validate(op string, state types.LifecycleState) error {
	if !validateOperation(op, state, s.opts.StrictOperationValidation) {
		return newIllegalStateForOperation(op, state)
	}
	return nil
}

func (s *Session) removeFromOrder(e types.Model) {
	for i, h := range s.order {
		if h == e {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Session) clearDependenciesFor(e types.Model) {
	s.insDeps.removeHandle(e)
	s.updDeps.removeHandle(e)
	s.delDeps.removeHandle(e)
}

func (s *Session) clearPending() {
	remaining := s.order[:0]
	for _, h := range s.order {
		if rec, ok := s.im.metadata(h); ok {
			remaining = append(remaining, rec.handle)
		}
	}
	s.order = remaining
}

// Persist registers e with the session (spec §4.6). Legal from NEW
// (idempotent re-registration) or DETACHED (a never-tracked or previously
// detached handle becomes NEW).
func (s *Session) Persist(e types.Model) error {
	state, rec := s.currentState(e)
	if err := s.validate("persist", state); err != nil {
		return err
	}
	if rec != nil {
		return nil // already NEW: persist is idempotent
	}

	class := e.GetTableName()
	var key *types.EntityKey
	if id := e.GetID(); id != "" {
		key = &types.EntityKey{Class: class, ID: id}
	}
	if _, err := s.im.add(e, class, key, types.New, s.opts.MaxTransitionHistory); err != nil {
		return err
	}
	s.order = append(s.order, e)
	if logger.Session != nil {
		logger.Session.Debugw("persist", "class", class, "id", e.GetID())
	}
	return nil
}

// Remove schedules e for deletion (spec §4.6). From MANAGED it transitions
// to REMOVED, scheduling a delete at the next flush. From NEW (or an
// untracked/DETACHED handle) it is a detached-discard: spec §9 resolves the
// NEW-then-REMOVED ambiguity as "no operation", so the record is simply
// dropped before it was ever flushed.
func (s *Session) Remove(e types.Model) error {
	state, rec := s.currentState(e)
	if err := s.validate("remove", state); err != nil {
		return err
	}
	if rec == nil {
		return nil // untracked/detached: nothing to discard
	}
	switch rec.state() {
	case types.New:
		s.im.remove(e)
		s.clearDependenciesFor(e)
		s.removeFromOrder(e)
	case types.Managed:
		if err := rec.sm.transition(types.Removed, "remove"); err != nil {
			return err
		}
	}
	return nil
}

// Merge copies a DETACHED entity's field values onto the session's managed
// copy for the same key, loading that managed copy from storage first if
// none is tracked yet. It never reuses the detached handle — the returned
// handle is always the (possibly newly loaded) managed one.
func (s *Session) Merge(e types.Model) (types.Model, error) {
	state, _ := s.currentState(e)
	if err := s.validate("merge", state); err != nil {
		return nil, err
	}

	class := e.GetTableName()
	id := e.GetID()
	if id == "" {
		return nil, newUnmanagedEntity(class)
	}

	target, found := s.im.lookup(class, id)
	if !found {
		fields, err := s.executor.Reload(s.ctx, class, id)
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return nil, newUnmanagedEntity(class)
		}
		loaded, err := s.registry.New(class)
		if err != nil {
			return nil, err
		}
		loaded.SetID(id)
		if err := s.registry.SetFieldValues(class, loaded, fields); err != nil {
			return nil, err
		}
		rec, err := s.im.add(loaded, class, &types.EntityKey{Class: class, ID: id}, types.Managed, s.opts.MaxTransitionHistory)
		if err != nil {
			return nil, err
		}
		if err := s.captureManagedSnapshot(rec, class, loaded); err != nil {
			return nil, err
		}
		s.order = append(s.order, loaded)
		target = loaded
	}

	detachedValues, err := s.registry.FieldValues(class, e)
	if err != nil {
		return nil, err
	}
	if err := s.registry.SetFieldValues(class, target, detachedValues); err != nil {
		return nil, err
	}
	return target, nil
}

// Detach removes e from the identity map and clears its dependency edges.
// Legal from NEW or MANAGED only — an already-detached handle cannot be
// detached again.
func (s *Session) Detach(e types.Model) error {
	state, rec := s.currentState(e)
	if err := s.validate("detach", state); err != nil {
		return err
	}
	if rec == nil {
		return newUnmanagedEntity(e.GetTableName())
	}
	s.im.remove(e)
	s.clearDependenciesFor(e)
	s.removeFromOrder(e)
	return nil
}

// Refresh reloads e's persistent field values from storage and replaces
// both its snapshot and current values. Legal from MANAGED only.
func (s *Session) Refresh(e types.Model) error {
	state, rec := s.currentState(e)
	if err := s.validate("refresh", state); err != nil {
		return err
	}
	fields, err := s.executor.Reload(s.ctx, rec.class, e.GetID())
	if err != nil {
		return err
	}
	if fields == nil {
		return newUnmanagedEntity(rec.class)
	}
	if err := s.registry.SetFieldValues(rec.class, e, fields); err != nil {
		return err
	}
	rec.snapshot = types.Snapshot(fields)
	return nil
}

// Flush invokes the scheduler (spec §4.4).
func (s *Session) Flush() error {
	return s.flush(s.ctx)
}

// Clear detaches every MANAGED entity, discards NEW entities, and discards
// all pending work and dependency edges.
func (s *Session) Clear() {
	s.im.clear()
	s.insDeps = newDependencyGraph()
	s.updDeps = newDependencyGraph()
	s.delDeps = newDependencyGraph()
	s.order = nil
}

// Contains is an identity-map membership test.
func (s *Session) Contains(e types.Model) bool {
	_, ok := s.im.metadata(e)
	return ok
}

func (s *Session) ScheduledInsertions() []types.Model {
	var out []types.Model
	for _, h := range s.order {
		if rec, ok := s.im.metadata(h); ok && rec.state() == types.New {
			out = append(out, h)
		}
	}
	return out
}

func (s *Session) ScheduledUpdates() []types.Model {
	var out []types.Model
	for _, h := range s.order {
		rec, ok := s.im.metadata(h)
		if !ok || rec.state() != types.Managed {
			continue
		}
		current, err := s.registry.FieldValues(rec.class, h)
		if err != nil {
			continue
		}
		snapshot, err := s.ensureSnapshot(rec, rec.class, h)
		if err != nil {
			continue
		}
		if isDirty(computeChangeSet(types.Snapshot(current), snapshot)) {
			out = append(out, h)
		}
	}
	return out
}

func (s *Session) ScheduledDeletions() []types.Model {
	var out []types.Model
	for _, h := range s.order {
		if rec, ok := s.im.metadata(h); ok && rec.state() == types.Removed {
			out = append(out, h)
		}
	}
	return out
}

func (s *Session) ManagedEntities() []types.Model {
	var out []types.Model
	for _, h := range s.order {
		if rec, ok := s.im.metadata(h); ok && rec.state() == types.Managed {
			out = append(out, h)
		}
	}
	return out
}

func (s *Session) EntityState(e types.Model) (types.LifecycleState, error) {
	state, _ := s.currentState(e)
	return state, nil
}

func (s *Session) TransitionHistory(e types.Model) ([]types.TransitionRecord, error) {
	rec, ok := s.im.metadata(e)
	if !ok {
		return nil, newUnmanagedEntity(e.GetTableName())
	}
	return rec.sm.historyCopy(), nil
}

func (s *Session) AddInsertionDependency(dependent, dependency types.Model) error {
	s.insDeps.addEdge(dependent, dependency)
	return nil
}

func (s *Session) AddUpdateDependency(dependent, dependency types.Model) error {
	s.updDeps.addEdge(dependent, dependency)
	return nil
}

func (s *Session) AddDeletionDependency(dependent, dependency types.Model) error {
	s.delDeps.addEdge(dependent, dependency)
	return nil
}

func (s *Session) ClearDependencies(e types.Model) {
	s.clearDependenciesFor(e)
}
