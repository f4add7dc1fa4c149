package dao

import (
	"errors"

	"github.com/leapstack-labs/ormlite/pkg/core"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify maps a driver error onto the error taxonomy. Uniqueness and
// primary key violations become conflicts; everything else is a backend
// error carrying the original cause.
func classify(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &core.ConflictError{Entity: entity, Reason: "unique constraint violated", Err: err}
		}
	}
	return &core.BackendError{Op: op, Err: err}
}
