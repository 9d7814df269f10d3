package types

// RelationKind enumerates the relation shapes a MetadataRegistry can report
// for a field. The engine never interprets these beyond passing foreign-key
// scalars through the Change Tracker; relation traversal is a caller concern.
type RelationKind string

const (
	OneToOne   RelationKind = "one_to_one"
	OneToMany  RelationKind = "one_to_many"
	ManyToOne  RelationKind = "many_to_one"
	ManyToMany RelationKind = "many_to_many"
)

// FieldMetadata describes one persistent field of a class.
type FieldMetadata struct {
	Column      string
	SQLType     string
	Nullable    bool
	Default     any
	Unique      bool
	IsGenerated bool
}

// RelationMetadata describes one relation field of a class.
type RelationMetadata struct {
	Kind         RelationKind
	TargetClass  string
	ForeignKey   string
	InverseField string
	CascadeSet   []string
}

// ClassMetadata is what a MetadataRegistry returns for one entity class.
type ClassMetadata struct {
	Table           string
	PrimaryKeyField string
	FieldMap        map[string]FieldMetadata
	Relations       map[string]RelationMetadata
}

// MetadataRegistry is the consumed, read-only boundary describing the shape
// of entity classes: table name, field-to-column mapping, and relations.
// Implementations must be pure from the session's perspective — describe
// never mutates schema or application state.
type MetadataRegistry interface {
	Describe(class string) (*ClassMetadata, error)

	// FieldValues reads the current in-memory field values of an entity into
	// a map keyed by column name (FieldMetadata.Column), using the class's
	// FieldMap to know which fields are persistent. The flush scheduler hands
	// this map to the Executor as its columns unchanged. This is the metadata-driven accessor the engine
	// uses instead of ad hoc reflection of application types (see spec's
	// "dynamic attribute access" re-architecture note).
	FieldValues(class string, entity Model) (map[string]any, error)

	// SetFieldValues writes a column-name keyed value map onto an entity
	// instance, the write-side counterpart of FieldValues used by refresh
	// and merge to replace an entity's current values from storage or from
	// a detached copy.
	SetFieldValues(class string, entity Model, values map[string]any) error

	// New constructs a zero-value instance of class, used by merge when no
	// managed copy exists yet and a fresh handle must be loaded from storage.
	New(class string) (Model, error)
}
