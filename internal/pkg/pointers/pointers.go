package pointers

import (
	"time"

	"github.com/google/uuid"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func Float64(v float64) *float64 { return &v }
func Int(v int) *int             { return &v }
func String(v string) *string    { return &v }
func UUID(v uuid.UUID) *uuid.UUID {
	return &v
}
func Time(v time.Time) *time.Time { return &v }

// Deref returns the pointed value or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// UUIDOrNil returns nil for a nil pointer and for uuid.Nil.
func UUIDOrNil(p *uuid.UUID) *uuid.UUID {
	if p == nil || *p == uuid.Nil {
		return nil
	}
	return p
}
