package query

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/core"
)

// Update builds an UPDATE over one descriptor.
type Update struct {
	filter
	assignments core.Values
	opts        options
}

// NewUpdate starts an update on d.
func NewUpdate(d *core.Descriptor, opts ...Option) *Update {
	return &Update{filter: filter{desc: d}, assignments: make(core.Values), opts: buildOptions(opts)}
}

// Set records column assignments. Later calls override earlier values.
func (u *Update) Set(v core.Values) *Update {
	for k, val := range v {
		u.assignments[k] = val
	}
	return u
}

// Where appends one Eq leaf per pair, joined with And.
func (u *Update) Where(v core.Values) *Update { u.where(v); return u }

// Eq appends column = v. A nil v matches NULL.
func (u *Update) Eq(column string, v any) *Update { u.eq(column, v); return u }

// Gt appends column > v.
func (u *Update) Gt(column string, v any) *Update { u.gt(column, v); return u }

// In appends column IN set.
func (u *Update) In(column string, set any) *Update { u.in(column, set); return u }

// And joins operands with AND.
func (u *Update) And() *Update { u.combine(And); return u }

// Or joins operands with OR.
func (u *Update) Or() *Update { u.combine(Or); return u }

// Build compiles the update. At least one assignment is required.
func (u *Update) Build() (*Statement, error) {
	if len(u.assignments) == 0 {
		return nil, u.fail("update has no assignments")
	}

	names := orderedKeys(u.desc, u.assignments)
	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		field, ok := u.desc.ScalarField(name)
		if !ok {
			return nil, u.fail(fmt.Sprintf("unknown column %q in assignment", name))
		}
		if field.GeneratedID {
			return nil, u.fail(fmt.Sprintf("cannot assign generated id %q", name))
		}
		v, err := field.Coerce(u.assignments[name])
		if err != nil {
			return nil, u.fail(fmt.Sprintf("column %q: %v", name, err))
		}
		sets = append(sets, QuoteIdent(name)+" = ?")
		args = append(args, v)
	}

	where, whereArgs, err := u.compileWhere()
	if err != nil {
		return nil, err
	}

	return &Statement{
		kind:       KindUpdate,
		desc:       u.desc,
		sql:        fmt.Sprintf("UPDATE %s SET %s%s", QuoteIdent(u.desc.Table), strings.Join(sets, ", "), where),
		args:       append(args, whereArgs...),
		generation: u.opts.generation,
	}, nil
}

// Delete builds a DELETE over one descriptor. Without predicates every row
// is deleted.
type Delete struct {
	filter
	opts options
}

// NewDelete starts a delete on d.
func NewDelete(d *core.Descriptor, opts ...Option) *Delete {
	return &Delete{filter: filter{desc: d}, opts: buildOptions(opts)}
}

// Where appends one Eq leaf per pair, joined with And.
func (x *Delete) Where(v core.Values) *Delete { x.where(v); return x }

// Eq appends column = v. A nil v matches NULL.
func (x *Delete) Eq(column string, v any) *Delete { x.eq(column, v); return x }

// Gt appends column > v.
func (x *Delete) Gt(column string, v any) *Delete { x.gt(column, v); return x }

// In appends column IN set.
func (x *Delete) In(column string, set any) *Delete { x.in(column, set); return x }

// And joins operands with AND.
func (x *Delete) And() *Delete { x.combine(And); return x }

// Or joins operands with OR.
func (x *Delete) Or() *Delete { x.combine(Or); return x }

// Build compiles the delete.
func (x *Delete) Build() (*Statement, error) {
	where, args, err := x.compileWhere()
	if err != nil {
		return nil, err
	}
	return &Statement{
		kind:       KindDelete,
		desc:       x.desc,
		sql:        fmt.Sprintf("DELETE FROM %s%s", QuoteIdent(x.desc.Table), where),
		args:       args,
		generation: x.opts.generation,
	}, nil
}
