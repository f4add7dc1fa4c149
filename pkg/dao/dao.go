// Package dao executes descriptors and compiled statements against an
// embedded SQLite database.
//
// A Dao is configured once with SetDatabase and SetModule, used, and then
// Closed. Closing bumps the configuration generation: statements built
// from builders obtained before Close are rejected afterwards.
package dao

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/leapstack-labs/ormlite/pkg/query"
)

// Dao is the data-access façade over one database and one namespace.
// It is not safe for concurrent use.
type Dao struct {
	logger     *slog.Logger
	db         *sql.DB
	location   string
	ns         *core.Namespace
	relations  *RelationLoader
	generation uint64
}

// Result is the outcome of ExecuteQuery. Selects fill Entities; updates
// and deletes fill RowsAffected.
type Result struct {
	Entities     []*core.Entity
	RowsAffected int64
}

// New creates an unconfigured Dao. A nil logger discards output.
func New(logger *slog.Logger) *Dao {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Dao{logger: logger, generation: 1}
	d.relations = &RelationLoader{dao: d}
	return d
}

// SetDatabase opens the database at location, a file path or ":memory:".
func (d *Dao) SetDatabase(ctx context.Context, location string) error {
	if d.db != nil {
		return &core.StateError{Op: "set database", Reason: fmt.Sprintf("database already set to %q", d.location)}
	}
	db, err := openSQLite(ctx, location)
	if err != nil {
		return &core.BackendError{Op: "open database", Err: err}
	}
	d.db = db
	d.location = location
	d.logger.Debug("database opened", slog.String("location", location))
	return nil
}

// SetModule binds the namespace descriptors are resolved against.
func (d *Dao) SetModule(ns *core.Namespace) error {
	if ns == nil {
		return &core.StateError{Op: "set module", Reason: "nil namespace"}
	}
	if d.ns != nil {
		return &core.StateError{Op: "set module", Reason: fmt.Sprintf("module already set to %q", d.ns.Name())}
	}
	d.ns = ns
	d.logger.Debug("module set", slog.String("module", ns.Name()), slog.Int("entities", len(ns.Descriptors())))
	return nil
}

// Close releases the database and the module. The Dao may be configured
// again afterwards.
func (d *Dao) Close() error {
	var err error
	if d.db != nil {
		err = d.db.Close()
	}
	d.db = nil
	d.ns = nil
	d.location = ""
	d.generation++
	if err != nil {
		return &core.BackendError{Op: "close database", Err: err}
	}
	return nil
}

// Generation returns the current configuration generation.
func (d *Dao) Generation() uint64 { return d.generation }

// Namespace returns the configured namespace, or nil.
func (d *Dao) Namespace() *core.Namespace { return d.ns }

// Location returns the configured database location.
func (d *Dao) Location() string { return d.location }

func (d *Dao) ready(op string) error {
	switch {
	case d.db == nil:
		return &core.StateError{Op: op, Reason: "database not configured"}
	case d.ns == nil:
		return &core.StateError{Op: op, Reason: "module not configured"}
	}
	return nil
}

func (d *Dao) resolve(op string, desc *core.Descriptor) (*core.Descriptor, error) {
	if err := d.ready(op); err != nil {
		return nil, err
	}
	return d.ns.Resolve(desc)
}

// current checks that stmt was built in this configuration.
func (d *Dao) current(op string, stmt *query.Statement) error {
	if err := d.ready(op); err != nil {
		return err
	}
	if stmt.Generation() != d.generation {
		return &core.StateError{Op: op, Reason: "statement was built for a previous configuration"}
	}
	return nil
}

// Schema returns a schema manager over the configured database.
func (d *Dao) Schema() (*SchemaManager, error) {
	if err := d.ready("schema"); err != nil {
		return nil, err
	}
	return NewSchemaManager(d.db, d.ns, d.logger), nil
}

// CreateTable creates the table for desc.
func (d *Dao) CreateTable(ctx context.Context, desc *core.Descriptor) error {
	m, err := d.Schema()
	if err != nil {
		return err
	}
	return m.CreateTable(ctx, desc)
}

// QueryBuilder starts a select bound to this configuration.
func (d *Dao) QueryBuilder(desc *core.Descriptor) *query.Query {
	return query.NewQuery(desc, query.WithGeneration(d.generation))
}

// UpdateBuilder starts an update bound to this configuration.
func (d *Dao) UpdateBuilder(desc *core.Descriptor) *query.Update {
	return query.NewUpdate(desc, query.WithGeneration(d.generation))
}

// DeleteBuilder starts a delete bound to this configuration.
func (d *Dao) DeleteBuilder(desc *core.Descriptor) *query.Delete {
	return query.NewDelete(desc, query.WithGeneration(d.generation))
}

// Save persists e. Without an identity value the row is inserted and the
// generated id is written back to e. With one, an identical stored row is
// left alone, a different stored row is a conflict, and a missing row is
// inserted under that id. Unset fields receive their defaults.
func (d *Dao) Save(ctx context.Context, desc *core.Descriptor, e *core.Entity) error {
	desc, err := d.resolve("save", desc)
	if err != nil {
		return err
	}
	if e == nil {
		return &core.SchemaError{Entity: desc.Name, Reason: "nil entity"}
	}
	if !e.Descriptor().Equal(desc) {
		return &core.SchemaError{Entity: desc.Name, Reason: fmt.Sprintf("entity is a %s", e.Descriptor().Name)}
	}

	row, err := rowValues(desc, e)
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.BackendError{Op: "begin transaction", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	idField, hasIdentity := desc.Identity()
	var id int64
	explicit := false
	if hasIdentity {
		if v, ok := row[idField.Name]; ok {
			id, explicit = v.(int64), true
		}
	}

	if explicit {
		stored, found, err := d.fetchByID(ctx, tx, desc, id)
		if err != nil {
			return err
		}
		if found {
			if !sameRow(desc, stored, row) {
				return &core.ConflictError{Entity: desc.Name, ID: id, Reason: "a different row with this id exists"}
			}
			d.logger.Debug("entity already saved", slog.String("entity", desc.Name), slog.Int64("id", id))
			e.SetValues(row)
			return nil
		}
	}

	res, err := d.insert(ctx, tx, desc, row)
	if err != nil {
		err = classify("save", desc.Name, err)
		if ce, ok := err.(*core.ConflictError); ok && explicit {
			ce.ID = id
		}
		return err
	}
	if hasIdentity && !explicit {
		id, err = res.LastInsertId()
		if err != nil {
			return &core.BackendError{Op: "save", Err: err}
		}
		row[idField.Name] = id
	}

	if err := tx.Commit(); err != nil {
		return classify("save", desc.Name, err)
	}
	e.SetValues(row)
	return nil
}

// GetByID returns the entity whose identity equals id.
func (d *Dao) GetByID(ctx context.Context, desc *core.Descriptor, id int64) (*core.Entity, error) {
	desc, err := d.resolve("get", desc)
	if err != nil {
		return nil, err
	}
	idField, ok := desc.Identity()
	if !ok {
		return nil, &core.SchemaError{Entity: desc.Name, Reason: "no generated id"}
	}

	stmt, err := d.QueryBuilder(desc).Eq(idField.Name, id).Build()
	if err != nil {
		return nil, err
	}
	res, err := d.ExecuteQuery(ctx, stmt, LoadDefault)
	if err != nil {
		return nil, err
	}
	if len(res.Entities) == 0 {
		return nil, &core.NotFoundError{Entity: desc.Name, ID: id}
	}
	return res.Entities[0], nil
}

// All returns every row of desc ordered by identity.
func (d *Dao) All(ctx context.Context, desc *core.Descriptor) ([]*core.Entity, error) {
	desc, err := d.resolve("all", desc)
	if err != nil {
		return nil, err
	}
	stmt, err := d.QueryBuilder(desc).Build()
	if err != nil {
		return nil, err
	}
	res, err := d.ExecuteQuery(ctx, stmt, LoadDefault)
	if err != nil {
		return nil, err
	}
	return res.Entities, nil
}

// ExecuteQuery runs a compiled statement. Selects are hydrated and their
// relation lists loaded according to mode.
func (d *Dao) ExecuteQuery(ctx context.Context, stmt *query.Statement, mode LoadMode) (*Result, error) {
	if stmt == nil {
		return nil, &core.BuilderError{Reason: "nil statement"}
	}
	op := stmt.Kind().String()
	if err := d.current(op, stmt); err != nil {
		return nil, err
	}
	desc, err := d.ns.Resolve(stmt.Descriptor())
	if err != nil {
		return nil, err
	}

	switch stmt.Kind() {
	case query.KindSelect:
		entities, err := d.selectEntities(ctx, desc, stmt)
		if err != nil {
			return nil, err
		}
		if err := d.relations.Attach(ctx, desc, entities, mode); err != nil {
			return nil, err
		}
		return &Result{Entities: entities}, nil

	case query.KindUpdate, query.KindDelete:
		d.logger.Debug("executing statement", slog.String("sql", stmt.SQL()), slog.Int("args", len(stmt.Args())))
		res, err := d.db.ExecContext(ctx, stmt.SQL(), stmt.Args()...)
		if err != nil {
			return nil, classify(op, desc.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, &core.BackendError{Op: op, Err: err}
		}
		return &Result{RowsAffected: n}, nil
	}

	return nil, &core.BuilderError{Entity: desc.Name, Reason: fmt.Sprintf("unsupported statement kind %s", stmt.Kind())}
}

// selectEntities runs a select and hydrates its rows without relations.
func (d *Dao) selectEntities(ctx context.Context, desc *core.Descriptor, stmt *query.Statement) ([]*core.Entity, error) {
	d.logger.Debug("executing statement", slog.String("sql", stmt.SQL()), slog.Int("args", len(stmt.Args())))
	rows, err := d.db.QueryContext(ctx, stmt.SQL(), stmt.Args()...)
	if err != nil {
		return nil, classify("select", desc.Name, err)
	}
	defer func() { _ = rows.Close() }()

	values, err := scanRows(rows, desc, stmt.Columns())
	if err != nil {
		return nil, err
	}
	entities := make([]*core.Entity, 0, len(values))
	for _, v := range values {
		entities = append(entities, core.NewEntity(desc).SetValues(v))
	}
	return entities, nil
}

func (d *Dao) fetchByID(ctx context.Context, q querier, desc *core.Descriptor, id int64) (core.Values, bool, error) {
	idField, _ := desc.Identity()
	stmt, err := query.NewQuery(desc).Eq(idField.Name, id).Build()
	if err != nil {
		return nil, false, err
	}
	d.logger.Debug("executing statement", slog.String("sql", stmt.SQL()), slog.Int64("id", id))
	rows, err := q.QueryContext(ctx, stmt.SQL(), stmt.Args()...)
	if err != nil {
		return nil, false, classify("save", desc.Name, err)
	}
	defer func() { _ = rows.Close() }()

	values, err := scanRows(rows, desc, stmt.Columns())
	if err != nil || len(values) == 0 {
		return nil, false, err
	}
	return values[0], true, nil
}

func (d *Dao) insert(ctx context.Context, q querier, desc *core.Descriptor, row core.Values) (sql.Result, error) {
	var cols, marks []string
	var args []any
	for _, f := range desc.ScalarFields() {
		v, ok := row[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, query.QuoteIdent(f.Name))
		marks = append(marks, "?")
		args = append(args, v)
	}

	stmt := fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", query.QuoteIdent(desc.Table))
	if len(cols) > 0 {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			query.QuoteIdent(desc.Table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	}
	d.logger.Debug("executing statement", slog.String("sql", stmt), slog.Int("args", len(args)))
	return q.ExecContext(ctx, stmt, args...)
}

// rowValues coerces the scalar values of e to their column kinds. Unset
// fields take their default, or NULL without one. An unset identity is
// left out so the database assigns it.
func rowValues(desc *core.Descriptor, e *core.Entity) (core.Values, error) {
	vals := e.Values()
	row := make(core.Values, len(vals))
	for _, f := range desc.ScalarFields() {
		v, ok := vals[f.Name]
		if f.GeneratedID {
			if !ok || v == nil {
				continue
			}
		} else if !ok {
			v = f.Default
		}
		c, err := f.Coerce(v)
		if err != nil {
			return nil, &core.SchemaError{Entity: desc.Name, Field: f.Name, Reason: "invalid value", Err: err}
		}
		row[f.Name] = c
	}
	return row, nil
}

func sameRow(desc *core.Descriptor, stored, row core.Values) bool {
	for _, f := range desc.ScalarFields() {
		if stored[f.Name] != row[f.Name] {
			return false
		}
	}
	return true
}

// scanRows decodes rows into values keyed by column name.
func scanRows(rows *sql.Rows, desc *core.Descriptor, cols []string) ([]core.Values, error) {
	var out []core.Values
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &core.BackendError{Op: "scan", Err: err}
		}

		v := make(core.Values, len(cols))
		for i, col := range cols {
			f, ok := desc.ScalarField(col)
			if !ok {
				return nil, &core.BackendError{Op: "scan", Err: fmt.Errorf("unknown column %q", col)}
			}
			raw := dest[i]
			if b, ok := raw.([]byte); ok {
				raw = string(b)
			}
			c, err := f.Coerce(raw)
			if err != nil {
				return nil, &core.BackendError{Op: "scan", Err: fmt.Errorf("column %q: %w", col, err)}
			}
			v[col] = c
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.BackendError{Op: "scan", Err: err}
	}
	return out, nil
}
