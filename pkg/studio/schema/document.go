package schema

import "time"

// KindDocument marks a type as an independently stored document.
const KindDocument = "document"

// Type is a document schema: a named, ordered collection of fields.
type Type struct {
	Name        string
	Title       string
	Kind        string
	Description string
	Fields      []Field
}

// Clone returns a deep copy of t. Changes to the copy never reach t.
func (t *Type) Clone() *Type {
	c := *t
	c.Fields = cloneFields(t.Fields)
	return &c
}

// DefineDocument returns a document type. Kind defaults to KindDocument.
func DefineDocument(t Type) *Type {
	if t.Kind == "" {
		t.Kind = KindDocument
	}
	return &t
}

// Field returns the top-level field with the given name.
func (t *Type) Field(name string) (*Field, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// FieldNames lists top-level field names in declaration order.
func (t *Type) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// RequiredFields lists the names of top-level fields marked required.
func (t *Type) RequiredFields() []string {
	var names []string
	for _, f := range t.Fields {
		if f.Rule.IsRequired() {
			names = append(names, f.Name)
		}
	}
	return names
}

// InitialValues evaluates every initial value factory once against now.
func (t *Type) InitialValues(now time.Time) map[string]any {
	values := make(map[string]any)
	for _, f := range t.Fields {
		if f.InitialValue != nil {
			values[f.Name] = f.InitialValue(now)
		}
	}
	return values
}

// PreviewField names the field used as a document's display title: "title"
// or "name" when declared as strings, otherwise the first string field.
func (t *Type) PreviewField() string {
	for _, candidate := range []string{"title", "name"} {
		if f, ok := t.Field(candidate); ok && f.Type.isTextual() {
			return candidate
		}
	}
	for _, f := range t.Fields {
		if f.Type == TypeString {
			return f.Name
		}
	}
	return ""
}

// PreviewTitle extracts the display title from a document's values.
func (t *Type) PreviewTitle(values map[string]any) string {
	name := t.PreviewField()
	if name == "" {
		return ""
	}
	s, _ := values[name].(string)
	return s
}
