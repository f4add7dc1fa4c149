package core

import (
	"context"
	"fmt"
)

// Values maps field names to values. It is used for assignments, equality
// filters and entity contents.
type Values map[string]any

// Entity is a runtime instance of a Descriptor. Scalar fields hold values;
// relation list fields hold a Relation cell attached by the loader.
type Entity struct {
	desc      *Descriptor
	values    Values
	relations map[string]*Relation
}

// NewEntity creates an empty instance of d.
func NewEntity(d *Descriptor) *Entity {
	return &Entity{
		desc:      d,
		values:    make(Values),
		relations: make(map[string]*Relation),
	}
}

// Descriptor returns the descriptor the entity conforms to.
func (e *Entity) Descriptor() *Descriptor { return e.desc }

// Set stores a value. Only scalar fields of the descriptor are persisted.
func (e *Entity) Set(name string, v any) *Entity {
	e.values[name] = v
	return e
}

// SetValues stores every pair of v.
func (e *Entity) SetValues(v Values) *Entity {
	for k, val := range v {
		e.values[k] = val
	}
	return e
}

// Unset removes a value.
func (e *Entity) Unset(name string) *Entity {
	delete(e.values, name)
	return e
}

// Get returns a stored value.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Int returns an integer value, or 0 when unset or not an integer.
func (e *Entity) Int(name string) int64 {
	switch v := e.values[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	}
	return 0
}

// Text returns a string value, or "" when unset or not a string.
func (e *Entity) Text(name string) string {
	s, _ := e.values[name].(string)
	return s
}

// ID returns the generated identity, if the descriptor has one and it is set.
func (e *Entity) ID() (int64, bool) {
	f, ok := e.desc.Identity()
	if !ok {
		return 0, false
	}
	v, ok := e.values[f.Name]
	if !ok || v == nil {
		return 0, false
	}
	id, err := f.Coerce(v)
	if err != nil {
		return 0, false
	}
	return id.(int64), true
}

// Values returns a copy of the stored scalar values.
func (e *Entity) Values() Values {
	out := make(Values, len(e.values))
	for _, f := range e.desc.ScalarFields() {
		if v, ok := e.values[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}

// Attach installs the relation cell for a relation list field.
func (e *Entity) Attach(name string, r *Relation) {
	e.relations[name] = r
}

// Relation returns the cell attached to a relation list field, or nil.
func (e *Entity) Relation(name string) *Relation {
	return e.relations[name]
}

// Related returns the related entities of a relation list field, resolving
// a lazy cell on first access. A field with no cell attached yields an
// empty list.
func (e *Entity) Related(ctx context.Context, name string) ([]*Entity, error) {
	f, ok := e.desc.Field(name)
	if !ok || f.Kind != RelationList {
		return nil, &SchemaError{Entity: e.desc.Name, Field: name, Reason: "not a relation list"}
	}
	r := e.relations[name]
	if r == nil {
		return nil, nil
	}
	return r.Get(ctx)
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s%v", e.desc.Name, map[string]any(e.Values()))
}
