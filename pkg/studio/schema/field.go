package schema

import (
	"slices"
	"time"
)

// FieldType is the closed set of value shapes a field can hold.
type FieldType string

// Field type constants.
const (
	TypeString    FieldType = "string"
	TypeText      FieldType = "text"
	TypeDatetime  FieldType = "datetime"
	TypeImage     FieldType = "image"
	TypeBoolean   FieldType = "boolean"
	TypeNumber    FieldType = "number"
	TypeSlug      FieldType = "slug"
	TypeArray     FieldType = "array"
	TypeReference FieldType = "reference"
	TypeObject    FieldType = "object"
	TypeBlock     FieldType = "block"
)

// IsValid reports whether t is one of the known field types.
func (t FieldType) IsValid() bool {
	switch t {
	case TypeString, TypeText, TypeDatetime, TypeImage, TypeBoolean, TypeNumber,
		TypeSlug, TypeArray, TypeReference, TypeObject, TypeBlock:
		return true
	}
	return false
}

// isTextual reports whether values of t are plain strings.
func (t FieldType) isTextual() bool {
	return t == TypeString || t == TypeText
}

// Layout is a rendering hint for the editing UI.
type Layout string

// LayoutTags renders an array of strings as a tag input.
const LayoutTags Layout = "tags"

// ListOption is one allowed value of a list-restricted string field.
type ListOption struct {
	Title string `json:"title" yaml:"title"`
	Value string `json:"value" yaml:"value"`
}

// Options holds display and derivation hints.
type Options struct {
	// List restricts a string field to the given values.
	List []ListOption
	// Layout selects an alternative input widget.
	Layout Layout
	// Source names the sibling field a slug is derived from.
	Source string
	// MaxLength caps generated slugs. Zero means DefaultSlugMaxLength.
	MaxLength int
}

// InitialValueFunc produces a field's value for a newly created document.
// It is invoked once, at creation, with the creation time.
type InitialValueFunc func(now time.Time) any

// Static returns an InitialValueFunc that always yields v.
func Static(v any) InitialValueFunc {
	return func(time.Time) any { return v }
}

// CreationTime yields the creation timestamp formatted as RFC 3339 in UTC.
func CreationTime() InitialValueFunc {
	return func(now time.Time) any { return now.UTC().Format(time.RFC3339Nano) }
}

// Field describes one named attribute of a document or object.
//
// Array members in Of are unnamed; their Type (and To for references) decide
// which member an array item matches.
type Field struct {
	Name         string
	Title        string
	Type         FieldType
	Description  string
	Rule         Rule
	Options      Options
	InitialValue InitialValueFunc

	// To lists target document type names (reference only).
	To []string
	// Of lists member types (array only).
	Of []Field
	// Fields lists sub-fields (object only).
	Fields []Field
}

// clone returns a deep copy of f.
func (f Field) clone() Field {
	f.Rule = f.Rule.clone()
	f.Options.List = slices.Clone(f.Options.List)
	f.To = slices.Clone(f.To)
	f.Of = cloneFields(f.Of)
	f.Fields = cloneFields(f.Fields)
	return f
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.clone()
	}
	return out
}

// SubField returns the object sub-field with the given name.
func (f *Field) SubField(name string) (*Field, bool) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// AllowedValues returns the values permitted by a list option, or nil.
func (f *Field) AllowedValues() []string {
	if len(f.Options.List) == 0 {
		return nil
	}
	values := make([]string, len(f.Options.List))
	for i, o := range f.Options.List {
		values[i] = o.Value
	}
	return values
}
