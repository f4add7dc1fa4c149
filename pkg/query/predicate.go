// Package query provides the fluent Query, Update and Delete builders.
//
// All three share one predicate engine. Leaves (Eq, Gt, In) are pushed onto
// an operand stack and And/Or join operands strictly left to right, with no
// precedence and no grouping:
//
//	Gt("a", 1).And().Eq("b", 2).Or().Eq("c", 3)   =>   ((a > 1 AND b = 2) OR c = 3)
//
// A combinator called with two or more operands on the stack joins the two
// most recent ones immediately; with a single operand it waits for the next
// leaf. A condition such as (a OR b) AND c therefore cannot be expressed.
// That restriction is deliberate and callers rely on the left-to-right
// reading.
package query

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/core"
)

// Op is a leaf comparison operator.
type Op int

// Leaf operators.
const (
	OpEq Op = iota + 1
	OpGt
	OpIn
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpGt:
		return ">"
	case OpIn:
		return "IN"
	}
	return "?"
}

// Combinator joins two predicate subtrees.
type Combinator int

// Combinators.
const (
	And Combinator = iota + 1
	Or
)

func (c Combinator) String() string {
	if c == Or {
		return "OR"
	}
	return "AND"
}

// Node is a predicate tree node: either a leaf (Column set) or an
// internal node joining Left and Right with Comb.
type Node struct {
	Column string
	Op     Op
	Value  any
	Set    []any
	Sub    *Query

	Comb        Combinator
	Left, Right *Node
}

// IsLeaf reports whether n is a comparison leaf.
func (n *Node) IsLeaf() bool { return n.Left == nil && n.Right == nil }

// filter is the predicate engine embedded by every builder.
type filter struct {
	desc    *core.Descriptor
	stack   []*Node
	pending Combinator
	errs    []string
}

func (f *filter) push(leaf *Node) {
	if f.pending != 0 {
		left := f.stack[len(f.stack)-1]
		f.stack[len(f.stack)-1] = &Node{Comb: f.pending, Left: left, Right: leaf}
		f.pending = 0
		return
	}
	f.stack = append(f.stack, leaf)
}

func (f *filter) combine(c Combinator) {
	if f.pending != 0 {
		f.errs = append(f.errs, fmt.Sprintf("%s follows %s without an operand in between", c, f.pending))
		return
	}
	switch n := len(f.stack); {
	case n == 0:
		f.errs = append(f.errs, fmt.Sprintf("%s needs two operands, none available", c))
	case n == 1:
		f.pending = c
	default:
		left, right := f.stack[n-2], f.stack[n-1]
		f.stack = append(f.stack[:n-2], &Node{Comb: c, Left: left, Right: right})
	}
}

func (f *filter) eq(column string, v any) {
	f.push(&Node{Column: column, Op: OpEq, Value: v})
}

func (f *filter) gt(column string, v any) {
	f.push(&Node{Column: column, Op: OpGt, Value: v})
}

func (f *filter) in(column string, set any) {
	leaf := &Node{Column: column, Op: OpIn}
	switch s := set.(type) {
	case *Query:
		if s == nil {
			f.errs = append(f.errs, fmt.Sprintf("IN on %q: nil sub-query", column))
		}
		leaf.Sub = s
	case []any:
		leaf.Set = s
	default:
		rv := reflect.ValueOf(set)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			f.errs = append(f.errs, fmt.Sprintf("IN on %q expects a slice or a *Query, got %T", column, set))
			break
		}
		leaf.Set = make([]any, rv.Len())
		for i := range rv.Len() {
			leaf.Set[i] = rv.Index(i).Interface()
		}
	}
	f.push(leaf)
}

// where appends one Eq leaf per pair, each joined to the tree with And.
// Pairs follow the descriptor's column order; unknown names come last,
// sorted, and fail at Build.
func (f *filter) where(v core.Values) {
	for _, name := range orderedKeys(f.desc, v) {
		if len(f.stack) > 0 && f.pending == 0 {
			f.pending = And
		}
		f.eq(name, v[name])
	}
}

func orderedKeys(d *core.Descriptor, v core.Values) []string {
	keys := make([]string, 0, len(v))
	for _, f := range d.Fields {
		if _, ok := v[f.Name]; ok {
			keys = append(keys, f.Name)
		}
	}
	var unknown []string
	for k := range v {
		if _, ok := d.Field(k); !ok {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	return append(keys, unknown...)
}

// tree returns the single root left after all combinators were applied.
func (f *filter) tree() (*Node, error) {
	if len(f.errs) > 0 {
		return nil, f.fail(f.errs[0])
	}
	if f.pending != 0 {
		return nil, f.fail(fmt.Sprintf("%s needs two operands, only one available", f.pending))
	}
	if len(f.stack) > 1 {
		return nil, f.fail(fmt.Sprintf("%d predicates are not joined by And/Or", len(f.stack)))
	}
	if len(f.stack) == 0 {
		return nil, nil
	}
	return f.stack[0], nil
}

func (f *filter) fail(reason string) *core.BuilderError {
	return &core.BuilderError{Entity: f.desc.Name, Reason: reason}
}

// compileWhere renders the predicate tree as a WHERE clause with its
// bound arguments. An empty tree renders as "".
func (f *filter) compileWhere() (string, []any, error) {
	root, err := f.tree()
	if err != nil || root == nil {
		return "", nil, err
	}
	var sb strings.Builder
	var args []any
	if err := f.compileNode(&sb, &args, root); err != nil {
		return "", nil, err
	}
	return " WHERE " + sb.String(), args, nil
}

func (f *filter) compileNode(sb *strings.Builder, args *[]any, n *Node) error {
	if !n.IsLeaf() {
		sb.WriteByte('(')
		if err := f.compileNode(sb, args, n.Left); err != nil {
			return err
		}
		fmt.Fprintf(sb, " %s ", n.Comb)
		if err := f.compileNode(sb, args, n.Right); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil
	}

	field, ok := f.desc.ScalarField(n.Column)
	if !ok {
		return f.fail(fmt.Sprintf("unknown column %q", n.Column))
	}
	col := QuoteIdent(field.Name)

	switch n.Op {
	case OpEq:
		v, err := field.Coerce(n.Value)
		if err != nil {
			return f.fail(fmt.Sprintf("column %q: %v", field.Name, err))
		}
		if v == nil {
			sb.WriteString(col + " IS NULL")
			return nil
		}
		sb.WriteString(col + " = ?")
		*args = append(*args, v)

	case OpGt:
		if n.Value == nil {
			return f.fail(fmt.Sprintf("column %q: cannot compare with NULL", field.Name))
		}
		v, err := field.Coerce(n.Value)
		if err != nil {
			return f.fail(fmt.Sprintf("column %q: %v", field.Name, err))
		}
		sb.WriteString(col + " > ?")
		*args = append(*args, v)

	case OpIn:
		if n.Sub != nil {
			subSQL, subArgs, cols, err := n.Sub.compileSelect(false)
			if err != nil {
				return err
			}
			if len(cols) != 1 {
				return f.fail(fmt.Sprintf("IN on %q: sub-query must select exactly one column, selects %d", field.Name, len(cols)))
			}
			sb.WriteString(col + " IN (" + subSQL + ")")
			*args = append(*args, subArgs...)
			return nil
		}
		values, err := distinct(field, n.Set)
		if err != nil {
			return f.fail(fmt.Sprintf("column %q: %v", field.Name, err))
		}
		if len(values) == 0 {
			sb.WriteString("0 = 1")
			return nil
		}
		sb.WriteString(col + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")")
		*args = append(*args, values...)

	default:
		return f.fail(fmt.Sprintf("unsupported operator %d", n.Op))
	}
	return nil
}

// distinct coerces the members of an IN set and drops repeated values.
func distinct(field core.Field, set []any) ([]any, error) {
	seen := make(map[any]struct{}, len(set))
	out := make([]any, 0, len(set))
	for _, raw := range set {
		v, err := field.Coerce(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
