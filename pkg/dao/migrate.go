package dao

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/pressly/goose/v3"
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
%s;
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
%s;
-- +goose StatementEnd
`

// MigrationFile renders the goose migration creating the table for desc.
func MigrationFile(ns *core.Namespace, desc *core.Descriptor) (string, error) {
	up, err := CreateTableSQL(ns, desc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(migrationTemplate, up, DropTableSQL(desc)), nil
}

// WriteMigrations writes one goose SQL migration per descriptor of ns into
// dir, Foreign targets first. It returns the written paths.
func WriteMigrations(ns *core.Namespace, dir string) ([]string, error) {
	ordered, err := ns.Ordered()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	paths := make([]string, 0, len(ordered))
	for i, desc := range ordered {
		content, err := MigrationFile(ns, desc)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%05d_create_%s.sql", i+1, strings.ToLower(desc.Table))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write migration %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Migrate applies the pending goose migrations found at the root of fsys.
// Only the database needs to be configured.
func (d *Dao) Migrate(ctx context.Context, fsys fs.FS) error {
	if d.db == nil {
		return &core.StateError{Op: "migrate", Reason: "database not configured"}
	}

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.db, "."); err != nil {
		return &core.BackendError{Op: "migrate", Err: err}
	}
	return nil
}

// MigrationVersion returns the current goose version of the database.
func (d *Dao) MigrationVersion(ctx context.Context) (int64, error) {
	if d.db == nil {
		return 0, &core.StateError{Op: "migration version", Reason: "database not configured"}
	}
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, d.db)
	if err != nil {
		return 0, &core.BackendError{Op: "migration version", Err: err}
	}
	return v, nil
}
