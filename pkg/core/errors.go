package core

import (
	"errors"
	"fmt"
)

// SchemaError is returned for invalid or conflicting declarations and for
// DDL that cannot be applied.
type SchemaError struct {
	Entity string
	Field  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := "schema error"
	switch {
	case e.Entity != "" && e.Field != "":
		msg = fmt.Sprintf("schema error in %s.%s", e.Entity, e.Field)
	case e.Entity != "":
		msg = fmt.Sprintf("schema error in %s", e.Entity)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// BuilderError is returned by Build when the predicate tree or the
// assignment set is malformed. It is always raised before any backend call.
type BuilderError struct {
	Entity string
	Reason string
}

func (e *BuilderError) Error() string {
	if e.Entity == "" {
		return "builder error: " + e.Reason
	}
	return fmt.Sprintf("builder error on %s: %s", e.Entity, e.Reason)
}

// StateError is returned when the Dao is used before it is configured, is
// configured twice, or runs a statement compiled for a previous
// configuration.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error: %s: %s", e.Op, e.Reason)
}

// ConflictError is returned by Save on identity or uniqueness conflicts.
type ConflictError struct {
	Entity string
	ID     int64
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("conflict on %s", e.Entity)
	if e.ID != 0 {
		msg += fmt.Sprintf(" (id %d)", e.ID)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError is returned when a lookup by identity matches no row.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// BackendError wraps any lower-level store failure that is not classified
// as one of the other kinds. The original cause is kept.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is, or wraps, a *ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
