package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the semantic type of a field.
type Kind int

// Field kinds.
const (
	Integer Kind = iota + 1
	String
	Foreign
	RelationList
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case String:
		return "string"
	case Foreign:
		return "foreign"
	case RelationList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the textual kind names used in model files to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int":
		return Integer, nil
	case "string", "text":
		return String, nil
	case "foreign", "ref":
		return Foreign, nil
	case "list", "relation", "relation_list":
		return RelationList, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Field describes one column, or one relation list, of a Descriptor.
// Fields are treated as immutable once their descriptor is registered.
type Field struct {
	Name string
	Kind Kind

	// GeneratedID marks the Integer identity column; the store assigns it.
	GeneratedID bool
	Nullable    bool
	// Default is written for fields left unset on insert. nil means none.
	Default any
	Unique  bool

	// LazyLoad selects deferred loading for RelationList fields.
	LazyLoad bool

	// Target names the related Descriptor for Foreign and RelationList.
	Target string
}

// FieldOption customizes a Field built by one of the constructors.
type FieldOption func(*Field)

// GeneratedID marks an Integer field as the store-assigned identity.
func GeneratedID() FieldOption {
	return func(f *Field) {
		f.GeneratedID = true
		f.Nullable = false
	}
}

// NotNull forbids NULL values in the column.
func NotNull() FieldOption {
	return func(f *Field) { f.Nullable = false }
}

// Default sets the value used when the field is left unset on insert.
func Default(v any) FieldOption {
	return func(f *Field) { f.Default = v }
}

// Unique adds a uniqueness constraint to the column.
func Unique() FieldOption {
	return func(f *Field) { f.Unique = true }
}

// Lazy sets the default loading strategy of a relation list.
func Lazy(lazy bool) FieldOption {
	return func(f *Field) { f.LazyLoad = lazy }
}

func newField(name string, kind Kind, target string, opts []FieldOption) Field {
	f := Field{Name: name, Kind: kind, Target: target, Nullable: true}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// IntegerField declares an integer column.
func IntegerField(name string, opts ...FieldOption) Field {
	return newField(name, Integer, "", opts)
}

// StringField declares a text column.
func StringField(name string, opts ...FieldOption) Field {
	return newField(name, String, "", opts)
}

// ForeignField declares an integer column referencing the identity of target.
func ForeignField(name, target string, opts ...FieldOption) Field {
	return newField(name, Foreign, target, opts)
}

// ListField declares the collection of target rows whose Foreign field
// points back at the owner. Lists are lazy unless Lazy(false) is given.
func ListField(name, target string, opts ...FieldOption) Field {
	return newField(name, RelationList, target, append([]FieldOption{Lazy(true)}, opts...))
}

// IsScalar reports whether the field is backed by a physical column.
func (f Field) IsScalar() bool {
	return f.Kind != RelationList
}

// Coerce converts v to the canonical Go representation of the field's
// column: int64 for Integer and Foreign, string for String. nil passes
// through unchanged.
func (f Field) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case Integer, Foreign:
		return toInt64(v)
	case String:
		return toText(v)
	default:
		return nil, fmt.Errorf("field %q is a relation list and holds no column value", f.Name)
	}
}

func toInt64(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("value %v is not an integer", n)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", n)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("cannot use %T as integer", v)
	}
}

func toText(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return fmt.Sprint(s), nil
	default:
		return nil, fmt.Errorf("cannot use %T as string", v)
	}
}
