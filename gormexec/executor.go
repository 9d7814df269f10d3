package gormexec

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/forbearing/uow/types"
)

var _ types.Executor = (*Executor)(nil)

// Executor is the example types.Executor backed by a *gorm.DB. It speaks to
// storage purely in terms of table name, primary-key string, and
// column-name-to-value maps — the shape the engine's flush scheduler already
// deals in — rather than the application's own struct types.
type Executor struct {
	db *gorm.DB
}

// NewExecutor wraps an already-open connection (see Open) as a types.Executor.
func NewExecutor(db *gorm.DB) *Executor { return &Executor{db: db} }

func (e *Executor) Begin(ctx context.Context) (types.TransactionHandle, error) {
	tx := e.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, classify(tx.Error)
	}
	return tx, nil
}

func (e *Executor) Commit(ctx context.Context, handle types.TransactionHandle) error {
	tx := mustTx(handle)
	if err := tx.Commit().Error; err != nil {
		return classify(err)
	}
	return nil
}

func (e *Executor) Rollback(ctx context.Context, handle types.TransactionHandle) error {
	tx := mustTx(handle)
	if err := tx.Rollback().Error; err != nil {
		return classify(err)
	}
	return nil
}

func (e *Executor) Insert(ctx context.Context, handle types.TransactionHandle, table string, columns map[string]any) (*string, error) {
	tx := mustTx(handle)
	if err := tx.Table(table).Create(columns).Error; err != nil {
		return nil, classify(err)
	}
	if raw, ok := columns["id"]; ok {
		if id, ok := raw.(string); ok && id != "" {
			return &id, nil
		}
	}
	return nil, nil
}

func (e *Executor) Update(ctx context.Context, handle types.TransactionHandle, table string, pk string, columns map[string]any) (int64, error) {
	tx := mustTx(handle)
	result := tx.Table(table).Where("id = ?", pk).Updates(columns)
	if result.Error != nil {
		return 0, classify(result.Error)
	}
	return result.RowsAffected, nil
}

func (e *Executor) Delete(ctx context.Context, handle types.TransactionHandle, table string, pk string) (int64, error) {
	tx := mustTx(handle)
	result := tx.Table(table).Where("id = ?", pk).Delete(&struct{}{})
	if result.Error != nil {
		return 0, classify(result.Error)
	}
	return result.RowsAffected, nil
}

func (e *Executor) Reload(ctx context.Context, class string, pk string) (map[string]any, error) {
	var row map[string]any
	err := e.db.WithContext(ctx).Table(class).Where("id = ?", pk).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return row, nil
}

func mustTx(handle types.TransactionHandle) *gorm.DB {
	tx, ok := handle.(*gorm.DB)
	if !ok {
		panic("gormexec: transaction handle is not a *gorm.DB")
	}
	return tx
}

// classify maps a gorm/driver error to the ExecutorError taxonomy the flush
// scheduler distinguishes (spec §6's Executor contract). GORM does not
// normalize driver-specific error codes, so this inspects the error text the
// way the teacher's own error-wrapping does for sentinel errors, falling
// back to OtherExecutorError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	kind := types.OtherExecutorError
	switch {
	case strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate"):
		kind = types.UniqueViolation
	case strings.Contains(msg, "foreign key"):
		kind = types.ForeignKeyViolation
	case strings.Contains(msg, "serialize") || strings.Contains(msg, "deadlock"):
		kind = types.SerializationFailure
	case strings.Contains(msg, "connection"):
		kind = types.ConnectionLost
	case strings.Contains(msg, "timeout"):
		kind = types.Timeout
	}
	return &types.ExecutorError{Kind: kind, Err: err}
}
