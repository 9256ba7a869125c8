package schema

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchema is wrapped by every error NewRegistry returns.
var ErrInvalidSchema = errors.New("invalid schema")

// Registry is the ordered, immutable set of document types known to a studio.
// It keeps its own copies of the types it was built from and hands out
// copies, so no caller can change the rules a registry validates with.
type Registry struct {
	types  []*Type
	byName map[string]*Type
}

// NewRegistry checks the given types for consistency and returns a registry
// listing them in order. Type names must be unique, field names unique within
// their parent, references must target registered types, and declared
// initial values must satisfy their own field's rules.
func NewRegistry(types ...*Type) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Type, len(types))}
	for _, t := range types {
		if t == nil {
			return nil, fmt.Errorf("%w: nil type", ErrInvalidSchema)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("%w: type without a name", ErrInvalidSchema)
		}
		if t.Kind != KindDocument {
			return nil, fmt.Errorf("%w: type %q has kind %q, expected %q", ErrInvalidSchema, t.Name, t.Kind, KindDocument)
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate type name %q", ErrInvalidSchema, t.Name)
		}
		t = t.Clone()
		r.byName[t.Name] = t
		r.types = append(r.types, t)
	}
	for _, t := range r.types {
		if err := r.checkFields(t.Name, t.Fields, true); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. It is meant for
// package-level schema declarations.
func MustRegistry(types ...*Type) *Registry {
	r, err := NewRegistry(types...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) checkFields(path string, fields []Field, named bool) error {
	seen := make(map[string]bool, len(fields))
	for i := range fields {
		f := &fields[i]
		fieldPath := path + "." + f.Name
		if named {
			if f.Name == "" {
				return fmt.Errorf("%w: %s has a field without a name", ErrInvalidSchema, path)
			}
			if seen[f.Name] {
				return fmt.Errorf("%w: duplicate field %s", ErrInvalidSchema, fieldPath)
			}
			seen[f.Name] = true
		} else {
			fieldPath = fmt.Sprintf("%s[%s]", path, f.Type)
		}
		if err := r.checkField(fieldPath, f, fields); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) checkField(path string, f *Field, siblings []Field) error {
	if !f.Type.IsValid() {
		return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidSchema, path, f.Type)
	}
	switch f.Type {
	case TypeReference:
		if len(f.To) == 0 {
			return fmt.Errorf("%w: reference %s declares no target type", ErrInvalidSchema, path)
		}
		for _, target := range f.To {
			if _, ok := r.byName[target]; !ok {
				return fmt.Errorf("%w: reference %s targets unknown type %q", ErrInvalidSchema, path, target)
			}
		}
	case TypeArray:
		if len(f.Of) == 0 {
			return fmt.Errorf("%w: array %s declares no member types", ErrInvalidSchema, path)
		}
		if err := r.checkFields(path, f.Of, false); err != nil {
			return err
		}
	case TypeObject:
		if len(f.Fields) == 0 {
			return fmt.Errorf("%w: object %s declares no fields", ErrInvalidSchema, path)
		}
		if err := r.checkFields(path, f.Fields, true); err != nil {
			return err
		}
	case TypeSlug:
		if src := f.Options.Source; src != "" && !hasField(siblings, src) {
			return fmt.Errorf("%w: slug %s derives from unknown field %q", ErrInvalidSchema, path, src)
		}
	}
	if len(f.Options.List) > 0 && !f.Type.isTextual() {
		return fmt.Errorf("%w: %s uses a list option on a %s field", ErrInvalidSchema, path, f.Type)
	}
	if f.InitialValue != nil {
		if markers := ValidateField(f, f.InitialValue(time.Unix(0, 0))); len(markers) > 0 {
			return fmt.Errorf("%w: initial value of %s is invalid: %v", ErrInvalidSchema, path, markers)
		}
	}
	return nil
}

// Types returns copies of the registered types in declaration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.types))
	for i, t := range r.types {
		out[i] = t.Clone()
	}
	return out
}

// Names returns the registered type names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.types))
	for i, t := range r.types {
		names[i] = t.Name
	}
	return names
}

// Get returns a copy of the type with the given name.
func (r *Registry) Get(name string) (*Type, bool) {
	t, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}
