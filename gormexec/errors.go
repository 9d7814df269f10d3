package gormexec

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// UnregisteredClassError is raised when Describe/FieldValues/SetFieldValues/
// New is called for a class no one ever passed to Register.
type UnregisteredClassError struct {
	Class string
}

func (e *UnregisteredClassError) Error() string {
	return fmt.Sprintf("gormexec: class %q was never registered", e.Class)
}

func newUnregisteredClass(class string) error {
	return errors.WithStack(&UnregisteredClassError{Class: class})
}
