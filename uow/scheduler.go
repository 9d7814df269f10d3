package uow

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"

	"github.com/forbearing/uow/logger"
	"github.com/forbearing/uow/types"
)

// plannedInsert/plannedUpdate/plannedDelete capture what flush intends to
// do, without mutating any in-memory state until the transaction commits —
// this is what makes failed-flush restoration trivial: if nothing has been
// applied to the identity map or state machines yet, there is nothing to
// undo beyond rolling back the transaction itself.
type plannedInsert struct {
	handle types.Model
	class  string
	table  string
	pk     string // already-assigned key, or "" if the executor must generate one
}

type plannedUpdate struct {
	handle  types.Model
	class   string
	table   string
	pk      string
	changes types.ChangeSet
	current types.Snapshot
}

type plannedDelete struct {
	handle types.Model
	class  string
	table  string
	pk     string
}

// flush implements the transaction protocol of spec §4.4: collect pending
// work, order it via the dependency solver, execute it within one
// transaction, and either commit (advancing in-memory state) or roll back
// (leaving the session exactly as it was before the call).
func (s *Session) flush(ctx context.Context) (err error) {
	if s.flushing {
		return newFlushInProgress()
	}
	s.flushing = true
	defer func() { s.flushing = false }()

	ctx, finish := startSpan(ctx, "Flush")
	defer finish(&err)

	inserts, updates, deletes, err := s.planWork()
	if err != nil {
		return err
	}
	if len(inserts) == 0 && len(updates) == 0 && len(deletes) == 0 {
		return nil // idempotent: nothing pending, no executor calls
	}

	insertOrder, err := s.orderInserts(inserts)
	if err != nil {
		return err
	}
	updateOrder, err := s.orderUpdates(updates)
	if err != nil {
		return err
	}
	deleteOrder, err := s.orderDeletes(deletes)
	if err != nil {
		return err
	}

	spanFromContext(ctx).SetAttributes(
		attribute.Int("uow.flush.inserts", len(insertOrder)),
		attribute.Int("uow.flush.updates", len(updateOrder)),
		attribute.Int("uow.flush.deletes", len(deleteOrder)),
	)

	tx, err := s.executor.Begin(ctx)
	if err != nil {
		return newFlushAborted(err)
	}

	generatedKeys := make(map[types.Model]string)
	for _, ins := range insertOrder {
		values, ferr := s.registry.FieldValues(ins.class, ins.handle)
		if ferr != nil {
			return s.abort(ctx, tx, ferr)
		}
		genKey, ierr := s.executor.Insert(ctx, tx, ins.table, values)
		if ierr != nil {
			return s.abort(ctx, tx, ierr)
		}
		if genKey != nil {
			generatedKeys[ins.handle] = *genKey
		} else {
			generatedKeys[ins.handle] = ins.pk
		}
	}
	for _, upd := range updateOrder {
		cols := make(map[string]any, len(upd.changes))
		for field, pair := range upd.changes {
			cols[field] = pair[1]
		}
		if _, uerr := s.executor.Update(ctx, tx, upd.table, upd.pk, cols); uerr != nil {
			return s.abort(ctx, tx, uerr)
		}
	}
	for _, del := range deleteOrder {
		if _, derr := s.executor.Delete(ctx, tx, del.table, del.pk); derr != nil {
			return s.abort(ctx, tx, derr)
		}
	}

	if err = s.executor.Commit(ctx, tx); err != nil {
		return newFlushAborted(err)
	}

	// Only now, after a successful commit, do we touch in-memory state.
	for _, ins := range insertOrder {
		key := generatedKeys[ins.handle]
		if key != "" {
			ins.handle.SetID(key)
			if ins.pk == "" {
				if perr := s.im.promote(ins.handle, types.EntityKey{Class: ins.class, ID: key}); perr != nil {
					return perr
				}
			}
		}
		rec, _ := s.im.metadata(ins.handle)
		if rec == nil {
			continue
		}
		if serr := rec.sm.transition(types.Managed, "insert"); serr != nil {
			return serr
		}
		if serr := s.captureManagedSnapshot(rec, ins.class, ins.handle); serr != nil {
			return serr
		}
	}
	for _, upd := range updateOrder {
		rec, _ := s.im.metadata(upd.handle)
		if rec == nil {
			continue
		}
		rec.snapshot = upd.current
	}
	for _, del := range deleteOrder {
		s.im.remove(del.handle)
		s.clearDependenciesFor(del.handle)
	}

	s.clearPending()
	if logger.Flush != nil {
		logger.Flush.Infow("flush committed", "inserts", len(insertOrder), "updates", len(updateOrder), "deletes", len(deleteOrder))
	}
	return nil
}

// abort rolls back the transaction and returns FlushAborted wrapping the
// original cause; if rollback itself fails, both errors are preserved via
// multierr rather than one silently discarding the other.
func (s *Session) abort(ctx context.Context, tx types.TransactionHandle, cause error) error {
	if rerr := s.executor.Rollback(ctx, tx); rerr != nil {
		return newFlushAborted(multierr.Append(cause, rerr))
	}
	return newFlushAborted(cause)
}

// planWork reads the session's current pending-work sources (spec §4.4):
// every NEW entity is an insertion, every MANAGED entity with a non-empty
// change set is an update, every REMOVED entity is a deletion.
func (s *Session) planWork() ([]*plannedInsert, []*plannedUpdate, []*plannedDelete, error) {
	var inserts []*plannedInsert
	var updates []*plannedUpdate
	var deletes []*plannedDelete

	for _, handle := range s.order {
		rec, ok := s.im.metadata(handle)
		if !ok {
			continue
		}
		meta, err := s.registry.Describe(rec.class)
		if err != nil {
			return nil, nil, nil, err
		}
		switch rec.state() {
		case types.New:
			pk := handle.GetID()
			inserts = append(inserts, &plannedInsert{handle: handle, class: rec.class, table: meta.Table, pk: pk})
		case types.Managed:
			current, err := s.registry.FieldValues(rec.class, handle)
			if err != nil {
				return nil, nil, nil, err
			}
			snapshot, err := s.ensureSnapshot(rec, rec.class, handle)
			if err != nil {
				return nil, nil, nil, err
			}
			changes := computeChangeSet(types.Snapshot(current), snapshot)
			if isDirty(changes) {
				updates = append(updates, &plannedUpdate{
					handle: handle, class: rec.class, table: meta.Table,
					pk: handle.GetID(), changes: changes, current: types.Snapshot(current),
				})
			}
		case types.Removed:
			if _, err := s.ensureSnapshot(rec, rec.class, handle); err != nil {
				return nil, nil, nil, err
			}
			if rec.snapshot == nil {
				return nil, nil, nil, newSnapshotMissing(rec.class, handle.GetID())
			}
			deletes = append(deletes, &plannedDelete{handle: handle, class: rec.class, table: meta.Table, pk: handle.GetID()})
		}
	}
	return inserts, updates, deletes, nil
}

func (s *Session) orderInserts(inserts []*plannedInsert) ([]*plannedInsert, error) {
	handles := make([]types.Model, len(inserts))
	byHandle := make(map[types.Model]*plannedInsert, len(inserts))
	for i, ins := range inserts {
		handles[i] = ins.handle
		byHandle[ins.handle] = ins
	}
	ordered, err := s.insDeps.topoSort(handles, s.labelOf)
	if err != nil {
		return nil, s.handleCycleErr(err)
	}
	out := make([]*plannedInsert, len(ordered))
	for i, h := range ordered {
		out[i] = byHandle[h]
	}
	return out, nil
}

func (s *Session) orderUpdates(updates []*plannedUpdate) ([]*plannedUpdate, error) {
	handles := make([]types.Model, len(updates))
	byHandle := make(map[types.Model]*plannedUpdate, len(updates))
	for i, upd := range updates {
		handles[i] = upd.handle
		byHandle[upd.handle] = upd
	}
	ordered, err := s.updDeps.topoSort(handles, s.labelOf)
	if err != nil {
		return nil, s.handleCycleErr(err)
	}
	out := make([]*plannedUpdate, len(ordered))
	for i, h := range ordered {
		out[i] = byHandle[h]
	}
	return out, nil
}

func (s *Session) orderDeletes(deletes []*plannedDelete) ([]*plannedDelete, error) {
	handles := make([]types.Model, len(deletes))
	byHandle := make(map[types.Model]*plannedDelete, len(deletes))
	for i, del := range deletes {
		handles[i] = del.handle
		byHandle[del.handle] = del
	}
	ordered, err := s.delDeps.topoSort(handles, s.labelOf)
	if err != nil {
		return nil, s.handleCycleErr(err)
	}
	// Deletions run in reverse topological order of deletion dependencies:
	// a referenced row is deleted after its dependents, i.e. the reverse
	// of the solver's "dependency before dependent" order.
	out := make([]*plannedDelete, len(ordered))
	for i, h := range ordered {
		out[len(ordered)-1-i] = byHandle[h]
	}
	return out, nil
}

func (s *Session) handleCycleErr(err error) error {
	var cyc *CyclicDependencyError
	if !errors.As(err, &cyc) {
		return err
	}
	if s.opts.FailOnCyclicDependency {
		return newCyclicDependency(cyc.CyclePath, nil)
	}
	return err // keeps the solver's best-effort partial ordering
}

func (s *Session) labelOf(h types.Model) string {
	rec, ok := s.im.metadata(h)
	if !ok {
		return h.GetTableName()
	}
	return rec.class + "#" + h.GetID()
}
