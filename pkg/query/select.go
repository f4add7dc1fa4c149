package query

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/core"
)

// Query builds a SELECT over one descriptor.
type Query struct {
	filter
	columns []string
	opts    options
}

// NewQuery starts a select on d. Without Select, all scalar columns are
// projected.
func NewQuery(d *core.Descriptor, opts ...Option) *Query {
	return &Query{filter: filter{desc: d}, opts: buildOptions(opts)}
}

// Select records the projection. "*" means every scalar column.
func (q *Query) Select(columns ...string) *Query {
	q.columns = append(q.columns, columns...)
	return q
}

// Where appends one Eq leaf per pair, joined with And.
func (q *Query) Where(v core.Values) *Query { q.where(v); return q }

// Eq appends column = v. A nil v matches NULL.
func (q *Query) Eq(column string, v any) *Query { q.eq(column, v); return q }

// Gt appends column > v.
func (q *Query) Gt(column string, v any) *Query { q.gt(column, v); return q }

// In appends column IN set, where set is a slice of values or an unbuilt
// *Query projecting a single column.
func (q *Query) In(column string, set any) *Query { q.in(column, set); return q }

// And joins operands with AND.
func (q *Query) And() *Query { q.combine(And); return q }

// Or joins operands with OR.
func (q *Query) Or() *Query { q.combine(Or); return q }

// Build compiles the query.
func (q *Query) Build() (*Statement, error) {
	sqlText, args, cols, err := q.compileSelect(true)
	if err != nil {
		return nil, err
	}
	return &Statement{
		kind:       KindSelect,
		desc:       q.desc,
		sql:        sqlText,
		args:       args,
		columns:    cols,
		generation: q.opts.generation,
	}, nil
}

func (q *Query) projection() ([]string, error) {
	if len(q.columns) == 0 {
		return q.desc.Columns(), nil
	}
	seen := make(map[string]struct{})
	var cols []string
	for _, c := range q.columns {
		if c == "*" {
			for _, all := range q.desc.Columns() {
				if _, ok := seen[all]; !ok {
					seen[all] = struct{}{}
					cols = append(cols, all)
				}
			}
			continue
		}
		if _, ok := q.desc.ScalarField(c); !ok {
			return nil, q.fail(fmt.Sprintf("unknown column %q in projection", c))
		}
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// compileSelect renders the select. Sub-selects are rendered without
// ordering.
func (q *Query) compileSelect(ordered bool) (string, []any, []string, error) {
	cols, err := q.projection()
	if err != nil {
		return "", nil, nil, err
	}
	where, args, err := q.compileWhere()
	if err != nil {
		return "", nil, nil, err
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", strings.Join(quoted, ", "), QuoteIdent(q.desc.Table), where)
	if id, ok := q.desc.Identity(); ok && ordered {
		sb.WriteString(" ORDER BY " + QuoteIdent(id.Name))
	}
	return sb.String(), args, cols, nil
}
