package core

import (
	"fmt"
	"reflect"
)

// Descriptor is the metadata of one entity type: the entity name other
// descriptors use to reference it, its table, and its ordered fields.
// Field order defines column order.
type Descriptor struct {
	Name   string
	Table  string
	Fields []Field
}

// NewDescriptor builds a descriptor. An empty table defaults to name.
func NewDescriptor(name, table string, fields ...Field) *Descriptor {
	if table == "" {
		table = name
	}
	return &Descriptor{Name: name, Table: table, Fields: fields}
}

// Field returns the field with the given name.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ScalarField returns the column-backed field with the given name.
func (d *Descriptor) ScalarField(name string) (Field, bool) {
	f, ok := d.Field(name)
	if !ok || !f.IsScalar() {
		return Field{}, false
	}
	return f, true
}

// Identity returns the generated-id field, if the descriptor declares one.
func (d *Descriptor) Identity() (Field, bool) {
	for _, f := range d.Fields {
		if f.GeneratedID {
			return f, true
		}
	}
	return Field{}, false
}

// ScalarFields returns the column-backed fields in declaration order.
func (d *Descriptor) ScalarFields() []Field {
	out := make([]Field, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.IsScalar() {
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the column names in declaration order.
func (d *Descriptor) Columns() []string {
	fields := d.ScalarFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

// Relations returns the relation list fields in declaration order.
func (d *Descriptor) Relations() []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Kind == RelationList {
			out = append(out, f)
		}
	}
	return out
}

// Equal reports whether two descriptors declare the same structure.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	if d.Name != o.Name || d.Table != o.Table || len(d.Fields) != len(o.Fields) {
		return false
	}
	for i := range d.Fields {
		if !reflect.DeepEqual(d.Fields[i], o.Fields[i]) {
			return false
		}
	}
	return true
}

// validate checks the rules that need no other descriptor.
func (d *Descriptor) validate() error {
	if d.Name == "" {
		return &SchemaError{Reason: "descriptor name is required"}
	}
	if d.Table == "" {
		return &SchemaError{Entity: d.Name, Reason: "table name is required"}
	}

	seen := make(map[string]struct{}, len(d.Fields))
	generated := 0
	for _, f := range d.Fields {
		if f.Name == "" {
			return &SchemaError{Entity: d.Name, Reason: "field name is required"}
		}
		if _, dup := seen[f.Name]; dup {
			return &SchemaError{Entity: d.Name, Field: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case Integer, String, Foreign, RelationList:
		default:
			return &SchemaError{Entity: d.Name, Field: f.Name, Reason: fmt.Sprintf("unknown kind %s", f.Kind)}
		}

		if f.GeneratedID {
			generated++
			if f.Kind != Integer {
				return &SchemaError{Entity: d.Name, Field: f.Name, Reason: "generated id must be an integer field"}
			}
		}
		if f.LazyLoad && f.Kind != RelationList {
			return &SchemaError{Entity: d.Name, Field: f.Name, Reason: "lazy loading applies to relation lists only"}
		}
		if (f.Kind == Foreign || f.Kind == RelationList) && f.Target == "" {
			return &SchemaError{Entity: d.Name, Field: f.Name, Reason: "target entity is required"}
		}
		if f.Kind != Foreign && f.Kind != RelationList && f.Target != "" {
			return &SchemaError{Entity: d.Name, Field: f.Name, Reason: "only foreign and list fields take a target"}
		}
		if f.Default != nil {
			if !f.IsScalar() {
				return &SchemaError{Entity: d.Name, Field: f.Name, Reason: "relation lists cannot have a default"}
			}
			if _, err := f.Coerce(f.Default); err != nil {
				return &SchemaError{Entity: d.Name, Field: f.Name, Reason: "invalid default", Err: err}
			}
		}
	}
	if generated > 1 {
		return &SchemaError{Entity: d.Name, Reason: "more than one generated id field"}
	}
	return nil
}
