package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/leapstack-labs/ormlite/pkg/query"
)

// SchemaManager turns descriptors into tables.
type SchemaManager struct {
	db     *sql.DB
	ns     *core.Namespace
	logger *slog.Logger
}

// NewSchemaManager creates a schema manager over db. Foreign targets are
// resolved through ns.
func NewSchemaManager(db *sql.DB, ns *core.Namespace, logger *slog.Logger) *SchemaManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SchemaManager{db: db, ns: ns, logger: logger}
}

// DDL renders the CREATE TABLE statement for d without executing it.
func (m *SchemaManager) DDL(d *core.Descriptor) (string, error) {
	return CreateTableSQL(m.ns, d)
}

// CreateTable creates the table for d. An existing table is accepted when
// its columns match the descriptor.
func (m *SchemaManager) CreateTable(ctx context.Context, d *core.Descriptor) error {
	d, err := m.ns.Resolve(d)
	if err != nil {
		return err
	}

	existing, err := m.tableColumns(ctx, d.Table)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		if err := compatible(d, existing); err != nil {
			return err
		}
		m.logger.Debug("table already exists", slog.String("table", d.Table))
		return nil
	}

	ddl, err := CreateTableSQL(m.ns, d)
	if err != nil {
		return err
	}
	m.logger.Debug("creating table", slog.String("table", d.Table), slog.String("sql", ddl))
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return &core.SchemaError{Entity: d.Name, Reason: "failed to create table", Err: err}
	}
	return nil
}

type columnInfo struct {
	name     string
	declType string
}

// tableColumns reads the column list of table. A missing table yields no
// columns.
func (m *SchemaManager) tableColumns(ctx context.Context, table string) ([]columnInfo, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, &core.BackendError{Op: "table info", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.name, &c.declType); err != nil {
			return nil, &core.BackendError{Op: "table info", Err: err}
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.BackendError{Op: "table info", Err: err}
	}
	return cols, nil
}

func compatible(d *core.Descriptor, existing []columnInfo) error {
	fields := d.ScalarFields()
	if len(fields) != len(existing) {
		return &core.SchemaError{
			Entity: d.Name,
			Reason: fmt.Sprintf("table %q exists with %d columns, descriptor declares %d", d.Table, len(existing), len(fields)),
		}
	}
	for i, f := range fields {
		col := existing[i]
		if col.name != f.Name {
			return &core.SchemaError{
				Entity: d.Name,
				Field:  f.Name,
				Reason: fmt.Sprintf("table %q has column %q at position %d", d.Table, col.name, i+1),
			}
		}
		want, err := sqlType(f)
		if err != nil {
			return err
		}
		if !strings.EqualFold(strings.TrimSpace(col.declType), want) {
			return &core.SchemaError{
				Entity: d.Name,
				Field:  f.Name,
				Reason: fmt.Sprintf("column type %q does not match %q", col.declType, want),
			}
		}
	}
	return nil
}

// CreateTableSQL renders the CREATE TABLE IF NOT EXISTS statement for d.
// Relation lists have no column.
func CreateTableSQL(ns *core.Namespace, d *core.Descriptor) (string, error) {
	if d == nil {
		return "", &core.SchemaError{Reason: "nil descriptor"}
	}

	fields := d.ScalarFields()
	defs := make([]string, 0, len(fields))
	for _, f := range fields {
		def, err := columnDef(ns, d, f)
		if err != nil {
			return "", err
		}
		defs = append(defs, "  "+def)
	}
	if len(defs) == 0 {
		return "", &core.SchemaError{Entity: d.Name, Reason: "no columns"}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", query.QuoteIdent(d.Table), strings.Join(defs, ",\n")), nil
}

// DropTableSQL renders the DROP TABLE IF EXISTS statement for d.
func DropTableSQL(d *core.Descriptor) string {
	return "DROP TABLE IF EXISTS " + query.QuoteIdent(d.Table)
}

func sqlType(f core.Field) (string, error) {
	switch f.Kind {
	case core.Integer, core.Foreign:
		return "INTEGER", nil
	case core.String:
		return "TEXT", nil
	}
	return "", &core.SchemaError{Field: f.Name, Reason: fmt.Sprintf("kind %s has no column type", f.Kind)}
}

func columnDef(ns *core.Namespace, d *core.Descriptor, f core.Field) (string, error) {
	typ, err := sqlType(f)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(query.QuoteIdent(f.Name) + " " + typ)

	if f.GeneratedID {
		sb.WriteString(" PRIMARY KEY AUTOINCREMENT")
		return sb.String(), nil
	}
	if !f.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if f.Default != nil {
		lit, err := defaultLiteral(f)
		if err != nil {
			return "", &core.SchemaError{Entity: d.Name, Field: f.Name, Reason: "invalid default", Err: err}
		}
		sb.WriteString(" DEFAULT " + lit)
	}
	if f.Unique {
		sb.WriteString(" UNIQUE")
	}
	if f.Kind == core.Foreign {
		ref, err := reference(ns, d, f)
		if err != nil {
			return "", err
		}
		sb.WriteString(" " + ref)
	}
	return sb.String(), nil
}

func reference(ns *core.Namespace, d *core.Descriptor, f core.Field) (string, error) {
	target := d
	if f.Target != d.Name {
		var ok bool
		if ns != nil {
			target, ok = ns.Lookup(f.Target)
		}
		if !ok {
			return "", &core.SchemaError{Entity: d.Name, Field: f.Name, Reason: fmt.Sprintf("unknown target entity %q", f.Target)}
		}
	}
	id, ok := target.Identity()
	if !ok {
		return "", &core.SchemaError{Entity: d.Name, Field: f.Name, Reason: fmt.Sprintf("target %q has no generated id", f.Target)}
	}
	return fmt.Sprintf("REFERENCES %s(%s)", query.QuoteIdent(target.Table), query.QuoteIdent(id.Name)), nil
}

func defaultLiteral(f core.Field) (string, error) {
	v, err := f.Coerce(f.Default)
	if err != nil {
		return "", err
	}
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10), nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	}
	return "", errors.New("unsupported default value")
}
