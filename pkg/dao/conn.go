package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// MemoryLocation designates a private in-memory database.
const MemoryLocation = ":memory:"

// dsnFor turns a database location into a modernc.org/sqlite DSN with
// foreign keys enforced. Every in-memory location gets its own named
// database so two Daos in one process never share state.
func dsnFor(location string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if location == MemoryLocation {
		return fmt.Sprintf("file:ormlite-%s?mode=memory&cache=shared&%s", uuid.NewString(), pragmas)
	}
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	return location + sep + pragmas
}

// openSQLite opens the single connection used by a Dao.
func openSQLite(ctx context.Context, location string) (*sql.DB, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("database location is empty")
	}

	db, err := sql.Open("sqlite", dsnFor(location))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One connection: an in-memory database lives and dies with it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return db, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
