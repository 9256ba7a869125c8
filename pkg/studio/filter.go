package studio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultListLimit applies when a filter sets no limit.
	DefaultListLimit = 100
	// MaxListLimit caps every listing.
	MaxListLimit = 1000
)

var pathPattern = regexp.MustCompile(`^_?[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Normalize checks field paths and fills defaults for order and limit.
func (f DocumentFilter) Normalize() (DocumentFilter, error) {
	if f.OrderBy == "" {
		f.OrderBy = KeyCreatedAt
	}
	if !pathPattern.MatchString(f.OrderBy) {
		return f, fmt.Errorf("invalid order field %q", f.OrderBy)
	}
	switch f.Order {
	case "":
		f.Order = SortAsc
	case SortAsc, SortDesc:
	default:
		return f, fmt.Errorf("invalid sort order %q", f.Order)
	}
	for k := range f.Where {
		if !pathPattern.MatchString(k) {
			return f, fmt.Errorf("invalid filter field %q", k)
		}
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// Matches reports whether the document satisfies the type and field
// conditions of the filter. A nil condition matches missing and null values.
func (f DocumentFilter) Matches(d *Document) bool {
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	for path, want := range f.Where {
		got, ok := d.Lookup(path)
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || !JSONEqual(got, want) {
			return false
		}
	}
	return true
}

// Sort orders documents by the filter's order field with the document ID as
// tie breaker. Missing values sort last ascending and first descending.
func (f DocumentFilter) Sort(docs []*Document) {
	desc := f.Order == SortDesc
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Lookup(f.OrderBy)
		b, bok := docs[j].Lookup(f.OrderBy)
		c := compareValues(a, aok && a != nil, b, bok && b != nil)
		if c == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// Page applies offset and limit.
func (f DocumentFilter) Page(docs []*Document) []*Document {
	if f.Offset >= len(docs) {
		return []*Document{}
	}
	docs = docs[f.Offset:]
	if f.Limit > 0 && len(docs) > f.Limit {
		docs = docs[:f.Limit]
	}
	return docs
}

func compareValues(a any, aok bool, b any, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return bytes.Compare(ja, jb)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// JSONEqual compares two values by their canonical JSON encoding.
func JSONEqual(a, b any) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
