package studio

import (
	"github.com/tendant/content-studio/pkg/studio/schema"
)

// assignItemKeys gives every object item of an array a _key when it has
// none, and a _type when the array admits a single member type.
func assignItemKeys(fields []schema.Field, values map[string]any) error {
	for i := range fields {
		f := &fields[i]
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if err := assignValueKeys(f, v); err != nil {
			return err
		}
	}
	return nil
}

func assignValueKeys(f *schema.Field, v any) error {
	switch f.Type {
	case schema.TypeObject:
		if m, ok := v.(map[string]any); ok {
			return assignItemKeys(f.Fields, m)
		}
	case schema.TypeArray:
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if k, _ := m[KeyKey].(string); k == "" {
				key, err := newItemKey()
				if err != nil {
					return err
				}
				m[KeyKey] = key
			}
			if _, ok := m[KeyType]; !ok && len(f.Of) == 1 {
				m[KeyType] = string(f.Of[0].Type)
			}
			if len(f.Of) == 1 && f.Of[0].Type == schema.TypeObject {
				if err := assignItemKeys(f.Of[0].Fields, m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// applyInitialValues fills absent fields with their declared initial value.
func applyInitialValues(initial, values map[string]any) {
	for k, v := range initial {
		if _, ok := values[k]; !ok {
			values[k] = v
		}
	}
}

// referencedIDs lists the distinct document and asset IDs the values point at.
func referencedIDs(refs []schema.Reference, assets []schema.AssetReference) []string {
	seen := make(map[string]bool, len(refs)+len(assets))
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, r := range refs {
		add(r.ID)
	}
	for _, a := range assets {
		add(a.AssetID)
	}
	return ids
}
