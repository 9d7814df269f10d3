package uow

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap/zapcore"

	"github.com/forbearing/uow/types"
)

// testEntity is the minimal types.Model used across this package's tests —
// two plain string fields (Name, SKU) so change-tracking assertions stay
// readable.
type testEntity struct {
	Class string
	ID    string
	Name  string
	SKU   string
}

func newTestEntity(class string) *testEntity { return &testEntity{Class: class} }

func (e *testEntity) GetTableName() string { return e.Class }
func (e *testEntity) GetID() string        { return e.ID }
func (e *testEntity) SetID(id ...string) {
	if e.ID != "" {
		return
	}
	if len(id) > 0 && id[0] != "" {
		e.ID = id[0]
		return
	}
	e.ID = fmt.Sprintf("generated-%p", e)
}
func (e *testEntity) ClearID() { e.ID = "" }
func (e *testEntity) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", e.ID)
	return nil
}

// fakeRegistry is an in-memory types.MetadataRegistry over testEntity
// values, keyed by class. It treats "name" and "sku" as the only
// persistent fields beyond id, enough to drive change-tracking and merge
// scenarios without a real database.
type fakeRegistry struct {
	tables map[string]string // class -> table (identity by default)
}

func newFakeRegistry() *fakeRegistry { return &fakeRegistry{tables: make(map[string]string)} }

func (r *fakeRegistry) Describe(class string) (*types.ClassMetadata, error) {
	table := class
	if t, ok := r.tables[class]; ok {
		table = t
	}
	return &types.ClassMetadata{
		Table:           table,
		PrimaryKeyField: "ID",
		FieldMap: map[string]types.FieldMetadata{
			"name": {Column: "name"},
			"sku":  {Column: "sku", Unique: true},
		},
	}, nil
}

func (r *fakeRegistry) FieldValues(class string, entity types.Model) (map[string]any, error) {
	e := entity.(*testEntity)
	return map[string]any{"name": valueOrNil(e.Name), "sku": valueOrNil(e.SKU)}, nil
}

func (r *fakeRegistry) SetFieldValues(class string, entity types.Model, values map[string]any) error {
	e := entity.(*testEntity)
	if v, ok := values["name"].(string); ok {
		e.Name = v
	}
	if v, ok := values["sku"].(string); ok {
		e.SKU = v
	}
	return nil
}

func (r *fakeRegistry) New(class string) (types.Model, error) {
	return newTestEntity(class), nil
}

func valueOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// fakeExecutor is an in-memory types.Executor recording every
// Begin/Commit/Rollback/Insert/Update/Delete call it receives (Reload is not
// recorded), with an optional unique-constraint simulation keyed by sku.
type fakeExecutor struct {
	mu sync.Mutex

	calls       []string
	rows        map[string]map[string]map[string]any // table -> pk -> columns
	uniqueIndex map[string]map[string]string          // table -> sku -> pk

	failInsertAfter int // if >0, the N-th Insert call onward fails with UniqueViolation
	insertCount     int

	begun      bool
	committed  bool
	rolledBack bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		rows:        make(map[string]map[string]map[string]any),
		uniqueIndex: make(map[string]map[string]string),
	}
}

func (f *fakeExecutor) Begin(ctx context.Context) (types.TransactionHandle, error) {
	f.begun = true
	f.calls = append(f.calls, "begin")
	return "tx", nil
}

func (f *fakeExecutor) Commit(ctx context.Context, tx types.TransactionHandle) error {
	f.committed = true
	f.calls = append(f.calls, "commit")
	return nil
}

func (f *fakeExecutor) Rollback(ctx context.Context, tx types.TransactionHandle) error {
	f.rolledBack = true
	f.calls = append(f.calls, "rollback")
	return nil
}

func (f *fakeExecutor) Insert(ctx context.Context, tx types.TransactionHandle, table string, columns map[string]any) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCount++
	f.calls = append(f.calls, "insert:"+table)

	if f.failInsertAfter > 0 && f.insertCount >= f.failInsertAfter {
		return nil, &types.ExecutorError{Kind: types.UniqueViolation, Err: fmt.Errorf("duplicate key value violates unique constraint")}
	}

	if sku, ok := columns["sku"].(string); ok && sku != "" {
		if f.uniqueIndex[table] == nil {
			f.uniqueIndex[table] = make(map[string]string)
		}
		if _, exists := f.uniqueIndex[table][sku]; exists {
			return nil, &types.ExecutorError{Kind: types.UniqueViolation, Err: fmt.Errorf("duplicate key value violates unique constraint")}
		}
	}

	key := fmt.Sprintf("row-%d", f.insertCount)
	if f.rows[table] == nil {
		f.rows[table] = make(map[string]map[string]any)
	}
	f.rows[table][key] = columns
	if sku, ok := columns["sku"].(string); ok && sku != "" {
		f.uniqueIndex[table][sku] = key
	}
	return &key, nil
}

func (f *fakeExecutor) Update(ctx context.Context, tx types.TransactionHandle, table string, pk string, columns map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+table)
	if f.rows[table] == nil || f.rows[table][pk] == nil {
		return 0, nil
	}
	for k, v := range columns {
		f.rows[table][pk][k] = v
	}
	return 1, nil
}

func (f *fakeExecutor) Delete(ctx context.Context, tx types.TransactionHandle, table string, pk string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+table)
	if f.rows[table] == nil {
		return 0, nil
	}
	delete(f.rows[table], pk)
	return 1, nil
}

func (f *fakeExecutor) Reload(ctx context.Context, class string, pk string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[class]
	if rows == nil {
		return nil, nil
	}
	row, ok := rows[pk]
	if !ok {
		return nil, nil
	}
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}
