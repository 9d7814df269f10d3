// Package model provides Base, the embeddable struct application entities
// use to satisfy types.Model, plus Empty and Any, the teacher's marker types
// for structs that are never persisted.
package model

import (
	"reflect"
	"time"

	"github.com/forbearing/uow/types"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

var (
	_ types.Model = (*Base)(nil)
	_ types.Model = (*Empty)(nil)
	_ types.Model = (*Any)(nil)
)

// Base implements types.Model. Every tracked entity embeds Base and
// overrides GetTableName to name its table.
//
// Usually there are gorm tags of interest:
// gorm:"unique", gorm:"foreignKey:ParentID", gorm:"foreignKey:ParentID,references:ID"
type Base struct {
	ID string `json:"id" gorm:"primaryKey"`

	CreatedBy string         `json:"created_by,omitempty" gorm:"index"`
	UpdatedBy string         `json:"updated_by,omitempty" gorm:"index"`
	CreatedAt *time.Time     `json:"created_at,omitempty" gorm:"index"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty" gorm:"index"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Remark    *string        `json:"remark,omitempty" gorm:"size:10240"`
}

func (b *Base) GetTableName() string { return "" }
func (b *Base) GetID() string        { return b.ID }
func (b *Base) SetID(id ...string)   { setID(b, id...) }
func (b *Base) ClearID()             { b.ID = "" }

func (b *Base) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", b.ID)
	enc.AddString("created_by", b.CreatedBy)
	enc.AddString("updated_by", b.UpdatedBy)
	return nil
}

func setID(m types.Model, id ...string) {
	val := reflect.ValueOf(m).Elem()
	idField := val.FieldByName("ID")
	if idField.String() != "" {
		return
	}
	if len(id) == 0 || id[0] == "" {
		idField.SetString(uuid.NewString())
		return
	}
	idField.SetString(id[0])
}

// Empty is a no-op types.Model implementation used as a marker for structs
// that should never be tracked or persisted, e.g. request/response DTOs.
type Empty struct{}

func (Empty) GetTableName() string                             { return "" }
func (Empty) GetID() string                                    { return "" }
func (Empty) SetID(id ...string)                                {}
func (Empty) ClearID()                                          {}
func (Empty) MarshalLogObject(enc zapcore.ObjectEncoder) error { return nil }

// Any is a placeholder types.Model used where a transaction or call site
// needs a type parameter but no concrete entity class. Any never
// corresponds to a table.
type Any struct{}

func (Any) GetTableName() string                             { return "" }
func (Any) GetID() string                                    { return "" }
func (Any) SetID(id ...string)                                {}
func (Any) ClearID()                                          {}
func (Any) MarshalLogObject(enc zapcore.ObjectEncoder) error { return nil }
