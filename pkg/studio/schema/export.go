package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// TypeSpec is the serializable description of a document type.
type TypeSpec struct {
	Name        string      `json:"name" yaml:"name"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	Type        string      `json:"type" yaml:"type"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldSpec `json:"fields" yaml:"fields"`
}

// FieldSpec is the serializable description of a field.
type FieldSpec struct {
	Name         string       `json:"name,omitempty" yaml:"name,omitempty"`
	Title        string       `json:"title,omitempty" yaml:"title,omitempty"`
	Type         FieldType    `json:"type" yaml:"type"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Validation   []RuleSpec   `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options      *OptionsSpec `json:"options,omitempty" yaml:"options,omitempty"`
	InitialValue any          `json:"initialValue,omitempty" yaml:"initialValue,omitempty"`
	To           []TargetSpec `json:"to,omitempty" yaml:"to,omitempty"`
	Of           []FieldSpec  `json:"of,omitempty" yaml:"of,omitempty"`
	Fields       []FieldSpec  `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// OptionsSpec is the serializable form of Options.
type OptionsSpec struct {
	List      []ListOption `json:"list,omitempty" yaml:"list,omitempty"`
	Layout    Layout       `json:"layout,omitempty" yaml:"layout,omitempty"`
	Source    string       `json:"source,omitempty" yaml:"source,omitempty"`
	MaxLength int          `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// TargetSpec names a reference target type.
type TargetSpec struct {
	Type string `json:"type" yaml:"type"`
}

// Export describes every registered type. Initial value factories are
// evaluated against now, so computed defaults show the value a document
// created at that instant would receive.
func (r *Registry) Export(now time.Time) []TypeSpec {
	specs := make([]TypeSpec, 0, len(r.types))
	for _, t := range r.types {
		specs = append(specs, TypeSpec{
			Name:        t.Name,
			Title:       t.Title,
			Type:        t.Kind,
			Description: t.Description,
			Fields:      exportFields(t.Fields, now),
		})
	}
	return specs
}

func exportFields(fields []Field, now time.Time) []FieldSpec {
	if len(fields) == 0 {
		return nil
	}
	specs := make([]FieldSpec, len(fields))
	for i, f := range fields {
		spec := FieldSpec{
			Name:        f.Name,
			Title:       f.Title,
			Type:        f.Type,
			Description: f.Description,
			Validation:  f.Rule.Specs(),
			Of:          exportFields(f.Of, now),
			Fields:      exportFields(f.Fields, now),
		}
		if o := f.Options; len(o.List) > 0 || o.Layout != "" || o.Source != "" || o.MaxLength > 0 {
			spec.Options = &OptionsSpec{List: o.List, Layout: o.Layout, Source: o.Source, MaxLength: o.MaxLength}
		}
		if f.InitialValue != nil {
			spec.InitialValue = f.InitialValue(now)
		}
		for _, target := range f.To {
			spec.To = append(spec.To, TargetSpec{Type: target})
		}
		specs[i] = spec
	}
	return specs
}

// WriteJSON writes specs as indented JSON.
func WriteJSON(w io.Writer, specs []TypeSpec) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(specs); err != nil {
		return fmt.Errorf("encode schema as json: %w", err)
	}
	return nil
}

// WriteYAML writes specs as a YAML document.
func WriteYAML(w io.Writer, specs []TypeSpec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(specs); err != nil {
		return fmt.Errorf("encode schema as yaml: %w", err)
	}
	return enc.Close()
}
