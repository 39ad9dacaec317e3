package domain

import (
	"errors"
	"fmt"
)

// ErrNoFieldsToUpdate is returned by UpdatePartial when every field of a
// patch is unset. Callers catch it and treat the operation as a no-op
// success; it never surfaces to API clients.
var ErrNoFieldsToUpdate = errors.New("no fields to update")

// ValidationError signals malformed input (empty name, negative age, null
// for a non-nullable field). Maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// BusinessRuleError signals a violated invariant on otherwise well-formed
// input, e.g. paying an already-paid invoice. Maps to HTTP 400.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

// NotFoundError signals a missing aggregate. Maps to HTTP 404.
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.EntityType, e.ID)
	}
	return e.EntityType + " not found"
}

// DuplicateError signals a uniqueness conflict. Maps to HTTP 409.
type DuplicateError struct {
	EntityType string
	Field      string
	Value      string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.EntityType, e.Field, e.Value)
}

// DatabaseError wraps a storage fault. Maps to HTTP 500; the cause is logged
// server-side and never leaks to clients.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("database error in %s: %v", e.Op, e.Err)
	}
	return "database error in " + e.Op
}

func (e *DatabaseError) Unwrap() error { return e.Err }
