// Package uowutil holds small generic helpers used across the engine and
// its example executor: pointer dereferencing, pointer construction, and
// human-friendly duration formatting for logs. Their call sites mirror the
// teacher's own util package (not present in the retrieved example pack,
// so these are authored fresh from the contracts its call sites imply).
package uowutil

import (
	"fmt"
	"time"
)

// Deref returns the zero value for a nil pointer, or the pointed-to value.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// ValueOf returns a pointer to a copy of v.
func ValueOf[T any](v T) *T {
	return &v
}

// FormatDurationSmart renders a duration with the coarsest unit that keeps
// at least one significant digit: microseconds, milliseconds, or seconds.
func FormatDurationSmart(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}
