package studio

import (
	"fmt"
	"strings"
)

// applyPatch returns a copy of fields with unset then set applied.
func applyPatch(fields map[string]any, set map[string]any, unset []string) (map[string]any, error) {
	out := CloneFields(fields)
	if out == nil {
		out = make(map[string]any)
	}
	for _, path := range unset {
		parts, err := patchPath(path)
		if err != nil {
			return nil, err
		}
		parent, ok := walkTo(out, parts[:len(parts)-1], false)
		if ok {
			delete(parent, parts[len(parts)-1])
		}
	}
	for path, value := range set {
		parts, err := patchPath(path)
		if err != nil {
			return nil, err
		}
		parent, ok := walkTo(out, parts[:len(parts)-1], true)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not lead to an object", ErrInvalidPatch, path)
		}
		parent[parts[len(parts)-1]] = cloneValue(value)
	}
	return out, nil
}

func patchPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPatch)
	}
	parts := Path(path)
	if strings.HasPrefix(parts[0], "_") {
		return nil, fmt.Errorf("%w: %s is a system field", ErrInvalidPatch, path)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: malformed path %q", ErrInvalidPatch, path)
		}
	}
	return parts, nil
}

func walkTo(root map[string]any, parts []string, create bool) (map[string]any, bool) {
	cur := root
	for _, p := range parts {
		next, exists := cur[p]
		if !exists || next == nil {
			if !create {
				return nil, false
			}
			m := make(map[string]any)
			cur[p] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = m
	}
	return cur, true
}
