package query

import (
	"slices"

	"github.com/leapstack-labs/ormlite/pkg/core"
)

// Kind identifies the statement type.
type Kind int

// Statement kinds.
const (
	KindSelect Kind = iota + 1
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	}
	return "unknown"
}

// Statement is a compiled, read-only builder result bound to its
// descriptor. It is executed by the Dao.
type Statement struct {
	kind       Kind
	desc       *core.Descriptor
	sql        string
	args       []any
	columns    []string
	generation uint64
}

// Kind returns the statement type.
func (s *Statement) Kind() Kind { return s.kind }

// Descriptor returns the descriptor the statement targets.
func (s *Statement) Descriptor() *core.Descriptor { return s.desc }

// SQL returns the compiled SQL text.
func (s *Statement) SQL() string { return s.sql }

// Args returns a copy of the bound arguments.
func (s *Statement) Args() []any { return slices.Clone(s.args) }

// Columns returns the projected columns of a select statement.
func (s *Statement) Columns() []string { return slices.Clone(s.columns) }

// Generation returns the configuration generation of the builder that
// produced the statement.
func (s *Statement) Generation() uint64 { return s.generation }

// Option configures a builder.
type Option func(*options)

type options struct {
	generation uint64
}

// WithGeneration stamps statements with the configuration generation of
// the Dao that created the builder.
func WithGeneration(g uint64) Option {
	return func(o *options) { o.generation = g }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
