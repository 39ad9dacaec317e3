package domain

import "fmt"

type fieldState int8

const (
	fieldUnset fieldState = iota
	fieldNull
	fieldSet
)

// Field is a tri-state value for sparse updates: unset (leave the column
// unchanged), null (clear a nullable column), or set to a concrete value.
// The zero Field is unset, so patch structs need no constructor.
//
// A plain pointer cannot express this: nil would conflate "don't touch" with
// "set to null", and null is itself meaningful for nullable columns.
type Field[T any] struct {
	value T
	state fieldState
}

// Set returns a Field carrying an explicit value.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, state: fieldSet}
}

// Null returns a Field that clears the column.
func Null[T any]() Field[T] {
	return Field[T]{state: fieldNull}
}

// IsUnset reports whether the field should be left unchanged.
func (f Field[T]) IsUnset() bool { return f.state == fieldUnset }

// IsNull reports whether the field clears the column.
func (f Field[T]) IsNull() bool { return f.state == fieldNull }

// IsSet reports whether the field carries an explicit value.
func (f Field[T]) IsSet() bool { return f.state == fieldSet }

// Value returns the explicit value and whether one is present.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == fieldSet
}

// Ptr returns the value as a pointer: nil for null, the value for set.
// It must not be called on an unset field.
func (f Field[T]) Ptr() *T {
	switch f.state {
	case fieldSet:
		v := f.value
		return &v
	case fieldNull:
		return nil
	}
	panic("domain: Ptr called on unset field")
}

// String implements fmt.Stringer for logging.
func (f Field[T]) String() string {
	switch f.state {
	case fieldNull:
		return "null"
	case fieldSet:
		return fmt.Sprintf("%v", f.value)
	}
	return "unset"
}
