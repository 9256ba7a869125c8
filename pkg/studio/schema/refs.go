package schema

import "fmt"

// Reference is a document reference found in a value tree.
type Reference struct {
	Path    string
	ID      string
	Targets []string
}

// AssetReference is an image asset reference found in a value tree.
type AssetReference struct {
	Path    string
	AssetID string
}

// References walks values and returns every reference to another document,
// in field order.
func (t *Type) References(values map[string]any) []Reference {
	w := &walker{}
	w.object("", t.Fields, values)
	return w.refs
}

// AssetReferences walks values and returns every image asset reference.
func (t *Type) AssetReferences(values map[string]any) []AssetReference {
	w := &walker{}
	w.object("", t.Fields, values)
	return w.assets
}

type walker struct {
	refs   []Reference
	assets []AssetReference
}

func (w *walker) object(path string, fields []Field, values map[string]any) {
	for i := range fields {
		f := &fields[i]
		if v, ok := values[f.Name]; ok && v != nil {
			w.value(joinPath(path, f.Name), f, v)
		}
	}
}

func (w *walker) value(path string, f *Field, value any) {
	switch f.Type {
	case TypeReference:
		if m, ok := value.(map[string]any); ok {
			if ref, ok := m["_ref"].(string); ok && ref != "" {
				w.refs = append(w.refs, Reference{Path: path, ID: ref, Targets: f.To})
			}
		}
	case TypeImage:
		if m, ok := value.(map[string]any); ok {
			if ref, ok := assetRef(m); ok {
				w.assets = append(w.assets, AssetReference{Path: joinPath(path, "asset"), AssetID: ref})
			}
		}
	case TypeObject:
		if m, ok := value.(map[string]any); ok {
			w.object(path, f.Fields, m)
		}
	case TypeArray:
		items, _ := value.([]any)
		for i, item := range items {
			if member, ok := matchMember(f.Of, item); ok && item != nil {
				w.value(fmt.Sprintf("%s[%d]", path, i), member, item)
			}
		}
	}
}
