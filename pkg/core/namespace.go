package core

import (
	"fmt"
	"maps"
)

// Namespace is the set of descriptors in which Foreign and RelationList
// targets are resolved. Descriptors must not be mutated after
// registration.
type Namespace struct {
	name    string
	byName  map[string]*Descriptor
	byTable map[string]*Descriptor
	order   []*Descriptor
}

// NewNamespace creates a namespace and registers the given descriptors as
// one batch, so descriptors may reference each other.
func NewNamespace(name string, descriptors ...*Descriptor) (*Namespace, error) {
	n := &Namespace{
		name:    name,
		byName:  make(map[string]*Descriptor),
		byTable: make(map[string]*Descriptor),
	}
	if err := n.Register(descriptors...); err != nil {
		return nil, err
	}
	return n, nil
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Register validates and adds descriptors. The batch is all-or-nothing.
// Re-registering an identical descriptor is a no-op; a different
// descriptor under an existing entity or table name is a SchemaError.
func (n *Namespace) Register(descriptors ...*Descriptor) error {
	byName := maps.Clone(n.byName)
	byTable := maps.Clone(n.byTable)
	var added []*Descriptor

	for _, d := range descriptors {
		if d == nil {
			return &SchemaError{Reason: "nil descriptor"}
		}
		if err := d.validate(); err != nil {
			return err
		}
		if existing, ok := byName[d.Name]; ok {
			if existing.Equal(d) {
				continue
			}
			return &SchemaError{Entity: d.Name, Reason: "conflicts with an already registered descriptor"}
		}
		if existing, ok := byTable[d.Table]; ok {
			return &SchemaError{Entity: d.Name, Reason: fmt.Sprintf("table %q is already used by %s", d.Table, existing.Name)}
		}
		byName[d.Name] = d
		byTable[d.Table] = d
		added = append(added, d)
	}

	for _, d := range added {
		if err := checkReferences(d, byName); err != nil {
			return err
		}
	}

	n.byName = byName
	n.byTable = byTable
	n.order = append(n.order, added...)
	return nil
}

func checkReferences(d *Descriptor, byName map[string]*Descriptor) error {
	for _, f := range d.Fields {
		switch f.Kind {
		case Foreign:
			target, ok := byName[f.Target]
			if !ok {
				return &SchemaError{Entity: d.Name, Field: f.Name, Reason: fmt.Sprintf("unknown target entity %q", f.Target)}
			}
			if _, ok := target.Identity(); !ok {
				return &SchemaError{Entity: d.Name, Field: f.Name, Reason: fmt.Sprintf("target %s has no generated id to reference", target.Name)}
			}
		case RelationList:
			target, ok := byName[f.Target]
			if !ok {
				return &SchemaError{Entity: d.Name, Field: f.Name, Reason: fmt.Sprintf("unknown target entity %q", f.Target)}
			}
			if _, err := backReference(d, f, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func backReference(owner *Descriptor, list Field, target *Descriptor) (Field, error) {
	var found []Field
	for _, f := range target.Fields {
		if f.Kind == Foreign && f.Target == owner.Name {
			found = append(found, f)
		}
	}
	switch len(found) {
	case 1:
		if _, ok := owner.Identity(); !ok {
			return Field{}, &SchemaError{Entity: owner.Name, Field: list.Name, Reason: "relation lists need a generated id on the owner"}
		}
		return found[0], nil
	case 0:
		return Field{}, &SchemaError{Entity: owner.Name, Field: list.Name, Reason: fmt.Sprintf("%s has no foreign field referencing %s", target.Name, owner.Name)}
	default:
		return Field{}, &SchemaError{Entity: owner.Name, Field: list.Name, Reason: fmt.Sprintf("%s has more than one foreign field referencing %s", target.Name, owner.Name)}
	}
}

// Lookup returns the descriptor registered under the entity name.
func (n *Namespace) Lookup(name string) (*Descriptor, bool) {
	d, ok := n.byName[name]
	return d, ok
}

// Resolve returns the registered descriptor structurally equal to d.
func (n *Namespace) Resolve(d *Descriptor) (*Descriptor, error) {
	if d == nil {
		return nil, &SchemaError{Reason: "nil descriptor"}
	}
	registered, ok := n.byName[d.Name]
	if !ok || !registered.Equal(d) {
		return nil, &SchemaError{Entity: d.Name, Reason: fmt.Sprintf("not registered in namespace %q", n.name)}
	}
	return registered, nil
}

// Descriptors returns the registered descriptors in registration order.
func (n *Namespace) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(n.order))
	copy(out, n.order)
	return out
}

// Join resolves the relation list field on owner to its target descriptor
// and the target's Foreign field that points back at owner.
func (n *Namespace) Join(owner *Descriptor, list Field) (*Descriptor, Field, error) {
	if list.Kind != RelationList {
		return nil, Field{}, &SchemaError{Entity: owner.Name, Field: list.Name, Reason: "not a relation list"}
	}
	target, ok := n.byName[list.Target]
	if !ok {
		return nil, Field{}, &SchemaError{Entity: owner.Name, Field: list.Name, Reason: fmt.Sprintf("unknown target entity %q", list.Target)}
	}
	fk, err := backReference(owner, list, target)
	if err != nil {
		return nil, Field{}, err
	}
	return target, fk, nil
}

// Ordered returns the descriptors so that every Foreign target precedes the
// descriptors referencing it. Ties keep registration order. Self references
// are allowed; longer cycles are a SchemaError.
func (n *Namespace) Ordered() ([]*Descriptor, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(n.order))
	out := make([]*Descriptor, 0, len(n.order))

	var visit func(d *Descriptor) error
	visit = func(d *Descriptor) error {
		switch state[d.Name] {
		case done:
			return nil
		case visiting:
			return &SchemaError{Entity: d.Name, Reason: "foreign key cycle"}
		}
		state[d.Name] = visiting
		for _, f := range d.Fields {
			if f.Kind != Foreign || f.Target == d.Name {
				continue
			}
			if err := visit(n.byName[f.Target]); err != nil {
				return err
			}
		}
		state[d.Name] = done
		out = append(out, d)
		return nil
	}

	for _, d := range n.order {
		if err := visit(d); err != nil {
			return nil, err
		}
	}
	return out, nil
}
