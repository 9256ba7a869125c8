package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Level is the severity of a validation marker.
type Level string

// LevelError markers block saving.
const LevelError Level = "error"

// Marker reports one failed predicate at a value path.
type Marker struct {
	Path    string `json:"path"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (m Marker) String() string {
	return fmt.Sprintf("%s: %s", m.Path, m.Message)
}

// Markers is the result of validating a document. A nil or empty Markers
// means the document is valid.
type Markers []Marker

func (ms Markers) Error() string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return strings.Join(parts, "; ")
}

// Paths lists the distinct paths that carry markers, sorted.
func (ms Markers) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, m := range ms {
		if !seen[m.Path] {
			seen[m.Path] = true
			paths = append(paths, m.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Has reports whether any marker is attached to path.
func (ms Markers) Has(path string) bool {
	for _, m := range ms {
		if m.Path == path {
			return true
		}
	}
	return false
}

// Validate checks document values against the type and returns every failed
// predicate. References and assets are checked for shape only; whether they
// resolve is up to the caller.
func (t *Type) Validate(values map[string]any) Markers {
	v := &validator{}
	v.object("", t.Fields, values)
	return v.markers
}

// ValidateField checks a single value against a field descriptor.
func ValidateField(f *Field, value any) Markers {
	v := &validator{}
	v.field(f.Name, f, value)
	return v.markers
}

type validator struct {
	markers Markers
}

func (v *validator) fail(path, format string, args ...any) {
	v.markers = append(v.markers, Marker{Path: path, Level: LevelError, Message: fmt.Sprintf(format, args...)})
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func (v *validator) object(path string, fields []Field, values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, "_") {
			continue
		}
		if !hasField(fields, k) {
			v.fail(joinPath(path, k), "Unknown field %q", k)
		}
	}
	for i := range fields {
		f := &fields[i]
		v.field(joinPath(path, f.Name), f, values[f.Name])
	}
}

func hasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (v *validator) field(path string, f *Field, value any) {
	if isEmpty(f, value) {
		if f.Rule.IsRequired() {
			v.fail(path, "Required")
		}
		return
	}

	switch f.Type {
	case TypeString, TypeText:
		s, ok := value.(string)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		v.bounds(path, f.Rule, float64(utf8.RuneCountInString(s)), "characters")
		if allowed := f.AllowedValues(); allowed != nil && !contains(allowed, s) {
			v.fail(path, "Value did not match any allowed values (%s)", strings.Join(allowed, ", "))
		}
	case TypeNumber:
		n, ok := toFloat(value)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		v.numberBounds(path, f.Rule, n)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
		}
	case TypeDatetime:
		s, ok := value.(string)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			v.fail(path, "Invalid datetime %q, expected RFC 3339", s)
		}
	case TypeSlug:
		m, ok := value.(map[string]any)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		if _, ok := m["current"].(string); !ok {
			v.fail(joinPath(path, "current"), "Expected slug to have a string \"current\"")
		}
	case TypeImage:
		m, ok := value.(map[string]any)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		if _, ok := assetRef(m); !ok {
			v.fail(joinPath(path, "asset"), "Expected image to reference an asset")
		}
	case TypeReference:
		m, ok := value.(map[string]any)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		if typ, ok := m["_type"].(string); ok && typ != string(TypeReference) {
			v.fail(path, "Expected _type %q, got %q", TypeReference, typ)
		}
		if _, ok := m["_ref"].(string); !ok {
			v.fail(path, "Expected reference to have a string \"_ref\"")
		}
	case TypeBlock:
		m, ok := value.(map[string]any)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		if typ, _ := m["_type"].(string); typ != string(TypeBlock) {
			v.fail(path, "Expected _type %q", TypeBlock)
		}
	case TypeObject:
		m, ok := value.(map[string]any)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		v.object(path, f.Fields, m)
	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			v.fail(path, "Expected type %q, got %s", f.Type, describe(value))
			return
		}
		v.bounds(path, f.Rule, float64(len(items)), "items")
		v.array(path, f, items)
	default:
		v.fail(path, "Unsupported field type %q", f.Type)
	}
}

func (v *validator) array(path string, f *Field, items []any) {
	seen := make(map[string]int, len(items))
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if item == nil {
			v.fail(itemPath, "Array items must not be null")
			continue
		}
		member, ok := matchMember(f.Of, item)
		if !ok {
			v.fail(itemPath, "Value of type %s is not allowed in this array", describe(item))
			continue
		}
		// Members carry their own rules; presence is judged on the array.
		v.field(itemPath, member, item)

		if f.Rule.IsUnique() {
			id := identity(item)
			if first, dup := seen[id]; dup {
				v.fail(itemPath, "Can't be a duplicate of item %d", first)
				continue
			}
			seen[id] = i
		}
	}
}

func (v *validator) bounds(path string, r Rule, n float64, unit string) {
	min, max := r.Bounds()
	if min != nil && n < *min {
		v.fail(path, "Must have at least %s %s", formatNumber(*min), unit)
	}
	if max != nil && n > *max {
		v.fail(path, "Must have at most %s %s", formatNumber(*max), unit)
	}
}

func (v *validator) numberBounds(path string, r Rule, n float64) {
	min, max := r.Bounds()
	if min != nil && n < *min {
		v.fail(path, "Must be greater than or equal to %s", formatNumber(*min))
	}
	if max != nil && n > *max {
		v.fail(path, "Must be less than or equal to %s", formatNumber(*max))
	}
}

// matchMember picks the array member type an item conforms to.
func matchMember(members []Field, item any) (*Field, bool) {
	if len(members) == 1 {
		return &members[0], true
	}
	typ := itemType(item)
	for i := range members {
		if string(members[i].Type) == typ {
			return &members[i], true
		}
	}
	return nil, false
}

func itemType(item any) string {
	switch x := item.(type) {
	case string:
		return string(TypeString)
	case bool:
		return string(TypeBoolean)
	case map[string]any:
		t, _ := x["_type"].(string)
		return t
	default:
		if _, ok := toFloat(item); ok {
			return string(TypeNumber)
		}
	}
	return ""
}

func isEmpty(f *Field, value any) bool {
	switch x := value.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		switch f.Type {
		case TypeSlug:
			current, _ := x["current"].(string)
			return current == ""
		case TypeImage:
			_, ok := assetRef(x)
			return !ok && x["asset"] == nil
		case TypeReference:
			ref, isString := x["_ref"].(string)
			return isString && ref == "" || x["_ref"] == nil
		case TypeObject:
			for k, v := range x {
				if !strings.HasPrefix(k, "_") && v != nil {
					return false
				}
			}
			return true
		}
	}
	return false
}

// identity returns the comparison key used for uniqueness checks.
func identity(item any) string {
	if m, ok := item.(map[string]any); ok {
		if ref, ok := m["_ref"].(string); ok {
			return "ref:" + ref
		}
		stripped := make(map[string]any, len(m))
		for k, v := range m {
			if k != "_key" {
				stripped[k] = v
			}
		}
		item = stripped
	}
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Sprintf("%#v", item)
	}
	return string(b)
}

func assetRef(image map[string]any) (string, bool) {
	asset, ok := image["asset"].(map[string]any)
	if !ok {
		return "", false
	}
	ref, ok := asset["_ref"].(string)
	return ref, ok && ref != ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		if t := itemType(v); t != "" {
			return fmt.Sprintf("object (%s)", t)
		}
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func formatNumber(f float64) string {
	return fmt.Sprintf("%g", f)
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
