package types

import "context"

// ExecutorErrorKind classifies the failure reported by an Executor call, so
// the flush scheduler can distinguish a unique-constraint violation (which
// aborts the flush with a specific cause) from a connection loss.
type ExecutorErrorKind string

const (
	UniqueViolation      ExecutorErrorKind = "unique_violation"
	ForeignKeyViolation  ExecutorErrorKind = "foreign_key_violation"
	SerializationFailure ExecutorErrorKind = "serialization_failure"
	ConnectionLost       ExecutorErrorKind = "connection_lost"
	Timeout              ExecutorErrorKind = "timeout"
	OtherExecutorError   ExecutorErrorKind = "other"
)

// ExecutorError is the structured failure every Executor method must return
// instead of an opaque error, so FlushAborted can carry a meaningful cause.
type ExecutorError struct {
	Kind ExecutorErrorKind
	Err  error
}

func (e *ExecutorError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ExecutorError) Unwrap() error { return e.Err }

// TransactionHandle is an opaque handle returned by Begin and threaded
// through the remaining Executor calls for one flush.
type TransactionHandle any

// Executor is the consumed transactional boundary: SQL generation,
// connection pooling, and driver protocol all live behind it. The engine
// never talks to storage except through this interface.
type Executor interface {
	Begin(ctx context.Context) (TransactionHandle, error)
	Commit(ctx context.Context, tx TransactionHandle) error
	Rollback(ctx context.Context, tx TransactionHandle) error

	// Insert writes one row and returns the generated primary key, if the
	// table assigns one. When the caller already supplied an ID the result
	// may be nil or that same ID; the flush scheduler treats both alike and
	// keeps the entity's existing ID.
	Insert(ctx context.Context, tx TransactionHandle, table string, columns map[string]any) (generatedKey *string, err error)
	// Update writes changed columns for the row identified by pk and
	// reports how many rows were affected.
	Update(ctx context.Context, tx TransactionHandle, table string, pk string, columns map[string]any) (rowsAffected int64, err error)
	// Delete removes the row identified by pk.
	Delete(ctx context.Context, tx TransactionHandle, table string, pk string) (rowsAffected int64, err error)
	// Reload fetches the current persisted field values for (class, pk),
	// used by refresh and merge. A nil map with a nil error means not found.
	Reload(ctx context.Context, class string, pk string) (map[string]any, error)
}
