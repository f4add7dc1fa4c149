// Package loader reads entity declarations from YAML model files.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ModelFile is the document layout of a model file.
// Unknown keys are rejected.
type ModelFile struct {
	Module   string       `yaml:"module"`
	Entities []EntityYAML `yaml:"entities"`
}

// EntityYAML declares one entity.
type EntityYAML struct {
	Name   string      `yaml:"name"`
	Table  string      `yaml:"table"` // defaults to the title-cased plural of name
	Fields []FieldYAML `yaml:"fields"`
}

// FieldYAML declares one field. Nullable defaults to true and Lazy to
// true for lists.
type FieldYAML struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"` // integer, string, foreign, list
	Target      string `yaml:"target"`
	GeneratedID bool   `yaml:"generated_id"`
	Nullable    *bool  `yaml:"nullable"`
	Default     any    `yaml:"default"`
	Unique      bool   `yaml:"unique"`
	Lazy        *bool  `yaml:"lazy"`
}

// LoadFile reads a model file and registers its entities in a new
// namespace. Without a module key the namespace is named fallback.
func LoadFile(path, fallback string) (*core.Namespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	ns, err := Parse(data, fallback)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return ns, nil
}

// Parse decodes model YAML and registers the entities as one batch, so
// entities may reference each other in any order.
func Parse(data []byte, fallback string) (*core.Namespace, error) {
	var file ModelFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if len(file.Entities) == 0 {
		return nil, &ParseError{Message: "no entities declared"}
	}

	descriptors := make([]*core.Descriptor, 0, len(file.Entities))
	for _, e := range file.Entities {
		d, err := e.descriptor()
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}

	name := file.Module
	if name == "" {
		name = fallback
	}
	return core.NewNamespace(name, descriptors...)
}

func (e EntityYAML) descriptor() (*core.Descriptor, error) {
	if strings.TrimSpace(e.Name) == "" {
		return nil, &ParseError{Message: "entity without a name"}
	}
	table := e.Table
	if table == "" {
		table = TableName(e.Name)
	}

	fields := make([]core.Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		field, err := f.field()
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("entity %s: %v", e.Name, err)}
		}
		fields = append(fields, field)
	}
	return core.NewDescriptor(e.Name, table, fields...), nil
}

func (f FieldYAML) field() (core.Field, error) {
	kind, err := core.ParseKind(f.Type)
	if err != nil {
		return core.Field{}, fmt.Errorf("field %q: %w", f.Name, err)
	}

	var opts []core.FieldOption
	if f.GeneratedID {
		opts = append(opts, core.GeneratedID())
	}
	if f.Nullable != nil && !*f.Nullable {
		opts = append(opts, core.NotNull())
	}
	if f.Default != nil {
		opts = append(opts, core.Default(f.Default))
	}
	if f.Unique {
		opts = append(opts, core.Unique())
	}
	if f.Lazy != nil {
		opts = append(opts, core.Lazy(*f.Lazy))
	}

	switch kind {
	case core.Integer:
		return core.IntegerField(f.Name, opts...), nil
	case core.String:
		return core.StringField(f.Name, opts...), nil
	case core.Foreign:
		return core.ForeignField(f.Name, f.Target, opts...), nil
	default:
		return core.ListField(f.Name, f.Target, opts...), nil
	}
}

// TableName derives a table name from an entity name: "user" becomes
// "Users", "category" becomes "Categories".
func TableName(entity string) string {
	name := cases.Title(language.English, cases.NoLower).String(strings.TrimSpace(entity))
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"), strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return name + "es"
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return name[:len(name)-1] + "ies"
	}
	return name + "s"
}

// ParseError is returned for malformed model files.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}
