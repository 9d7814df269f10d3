package gormexec

import (
	"reflect"
	"sync"

	"github.com/stoewer/go-strcase"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/forbearing/uow/types"
)

var _ types.MetadataRegistry = (*MetadataRegistry)(nil)

// MetadataRegistry is the example types.MetadataRegistry, built by parsing
// each registered entity's struct tags through gorm's own schema.Parse —
// the same reflection the teacher's executors already pay for at query
// time — rather than hand-rolling a second tag parser.
type MetadataRegistry struct {
	db *gorm.DB

	mu       sync.RWMutex
	prototyp map[string]reflect.Type // class -> zero-value struct type
	cache    map[string]*types.ClassMetadata
}

// NewMetadataRegistry constructs an empty registry; call Register for every
// entity class the application wants tracked before use.
func NewMetadataRegistry(db *gorm.DB) *MetadataRegistry {
	return &MetadataRegistry{
		db:       db,
		prototyp: make(map[string]reflect.Type),
		cache:    make(map[string]*types.ClassMetadata),
	}
}

// Register associates a class name with the Go type behind it. entity must
// be a non-nil *T where T is the application's struct (typically embedding
// model.Base). Describe, FieldValues, SetFieldValues, and New all key off
// class, not off the caller's concrete type, matching the engine's
// string-keyed handle-agnostic contract.
func (r *MetadataRegistry) Register(class string, entity types.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prototyp[class] = reflect.TypeOf(entity).Elem()
}

func (r *MetadataRegistry) Describe(class string) (*types.ClassMetadata, error) {
	r.mu.RLock()
	if cm, ok := r.cache[class]; ok {
		r.mu.RUnlock()
		return cm, nil
	}
	r.mu.RUnlock()

	typ, ok := r.prototype(class)
	if !ok {
		return nil, newUnregisteredClass(class)
	}

	parsed, err := schema.Parse(reflect.New(typ).Interface(), &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		return nil, err
	}

	cm := &types.ClassMetadata{
		Table:           class,
		PrimaryKeyField: "ID",
		FieldMap:        make(map[string]types.FieldMetadata),
		Relations:       make(map[string]types.RelationMetadata),
	}
	for _, f := range parsed.Fields {
		if f.DBName == "" {
			continue // association/virtual field, not a persistent column
		}
		cm.FieldMap[f.Name] = types.FieldMetadata{
			Column:      f.DBName,
			SQLType:     string(f.DataType),
			Nullable:    !f.NotNull,
			Unique:      f.Unique,
			IsGenerated: f.AutoIncrement || f.PrimaryKey,
		}
	}
	for _, rel := range parsed.Relationships.Relations {
		cm.Relations[rel.Name] = types.RelationMetadata{
			Kind:        relationKind(rel.Type),
			TargetClass: strcase.SnakeCase(rel.FieldSchema.Name),
		}
	}

	r.mu.Lock()
	r.cache[class] = cm
	r.mu.Unlock()
	return cm, nil
}

func relationKind(t schema.RelationshipType) types.RelationKind {
	switch t {
	case schema.HasOne:
		return types.OneToOne
	case schema.HasMany:
		return types.OneToMany
	case schema.BelongsTo:
		return types.ManyToOne
	case schema.Many2Many:
		return types.ManyToMany
	default:
		return types.OneToOne
	}
}

// FieldValues reads every persistent field named in the class's FieldMap off
// entity via reflection, the write side of the same struct-tag contract
// Describe already parsed. The returned map is keyed by SQL column name, not
// Go field name, since this is also the "columns -> values" shape the
// types.Executor contract (and the gorm table-level Create/Updates calls
// behind it) expects to receive verbatim.
func (r *MetadataRegistry) FieldValues(class string, entity types.Model) (map[string]any, error) {
	meta, err := r.Describe(class)
	if err != nil {
		return nil, err
	}
	val := reflect.ValueOf(entity)
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	out := make(map[string]any, len(meta.FieldMap))
	for name, fm := range meta.FieldMap {
		fv := val.FieldByName(name)
		if !fv.IsValid() {
			continue
		}
		out[fm.Column] = deref(fv)
	}
	return out, nil
}

// SetFieldValues is the inverse of FieldValues: values is keyed by column
// name (either echoed back from FieldValues, or a raw row scanned straight
// off the driver by Executor.Reload, whose keys are already column names),
// and each entry is written onto the Go field that column maps to.
func (r *MetadataRegistry) SetFieldValues(class string, entity types.Model, values map[string]any) error {
	meta, err := r.Describe(class)
	if err != nil {
		return err
	}
	val := reflect.ValueOf(entity)
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	for name, fm := range meta.FieldMap {
		raw, ok := values[fm.Column]
		if !ok {
			continue
		}
		fv := val.FieldByName(name)
		if !fv.IsValid() || !fv.CanSet() || raw == nil {
			continue
		}
		assign(fv, raw)
	}
	return nil
}

func (r *MetadataRegistry) New(class string) (types.Model, error) {
	typ, ok := r.prototype(class)
	if !ok {
		return nil, newUnregisteredClass(class)
	}
	instance, ok := reflect.New(typ).Interface().(types.Model)
	if !ok {
		return nil, newUnregisteredClass(class)
	}
	return instance, nil
}

func (r *MetadataRegistry) prototype(class string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.prototyp[class]
	return typ, ok
}

// deref reads fv's value, following one level of pointer indirection so
// that the optional *time.Time/*string fields model.Base carries become
// plain values (or nil) in the snapshot map.
func deref(fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		return fv.Elem().Interface()
	}
	return fv.Interface()
}

// assign writes raw into fv, wrapping it in a pointer first if fv itself is
// a pointer field — the inverse of deref.
func assign(fv reflect.Value, raw any) {
	rv := reflect.ValueOf(raw)
	if fv.Kind() == reflect.Ptr {
		target := reflect.New(fv.Type().Elem())
		if rv.Type().ConvertibleTo(fv.Type().Elem()) {
			target.Elem().Set(rv.Convert(fv.Type().Elem()))
			fv.Set(target)
		}
		return
	}
	if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
	}
}
