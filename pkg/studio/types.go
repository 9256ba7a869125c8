package studio

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// System keys carried by every stored document.
const (
	KeyID        = "_id"
	KeyType      = "_type"
	KeyRev       = "_rev"
	KeyCreatedAt = "_createdAt"
	KeyUpdatedAt = "_updatedAt"
	KeyKey       = "_key"
)

// AssetTypeImage is the _type of an uploaded image asset.
const AssetTypeImage = "sanity.imageAsset"

// Document is a stored instance of a schema document type. Fields holds the
// user-editable values; the system keys live on the struct and are merged
// back into a single flat object when the document is encoded as JSON.
type Document struct {
	ID        string
	Type      string
	Rev       string
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any
}

// MarshalJSON encodes the document as one flat object.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+5)
	for k, v := range d.Fields {
		if isSystemKey(k) {
			continue
		}
		out[k] = v
	}
	out[KeyID] = d.ID
	out[KeyType] = d.Type
	out[KeyRev] = d.Rev
	out[KeyCreatedAt] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
	out[KeyUpdatedAt] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat document object.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields, sys, err := SplitSystemKeys(raw)
	if err != nil {
		return err
	}
	*d = Document{
		ID:        sys.ID,
		Type:      sys.Type,
		Rev:       sys.Rev,
		CreatedAt: sys.CreatedAt,
		UpdatedAt: sys.UpdatedAt,
		Fields:    fields,
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Fields = CloneFields(d.Fields)
	return &c
}

// Title returns the preview title of the document for the given preview
// field, or its ID when the field is empty.
func (d *Document) Title(previewField string) string {
	if s, ok := d.Fields[previewField].(string); ok && s != "" {
		return s
	}
	return d.ID
}

// SystemKeys are the parsed system keys of a flat document object.
type SystemKeys struct {
	ID        string
	Type      string
	Rev       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SplitSystemKeys separates the top-level system keys from the field
// values of a flat document object. Unknown underscore keys are dropped.
func SplitSystemKeys(raw map[string]any) (map[string]any, SystemKeys, error) {
	var sys SystemKeys
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if !isSystemKey(k) {
			fields[k] = v
			continue
		}
		s, _ := v.(string)
		switch k {
		case KeyID:
			sys.ID = s
		case KeyType:
			sys.Type = s
		case KeyRev:
			sys.Rev = s
		case KeyCreatedAt, KeyUpdatedAt:
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, sys, fmt.Errorf("parse %s: %w", k, err)
			}
			if k == KeyCreatedAt {
				sys.CreatedAt = t
			} else {
				sys.UpdatedAt = t
			}
		}
	}
	return fields, sys, nil
}

func isSystemKey(k string) bool {
	return strings.HasPrefix(k, "_")
}

// CloneFields deep-copies a JSON value tree.
func CloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	return cloneValue(fields).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

// Asset is an uploaded image. Its ID is derived from the content hash,
// dimensions and extension, so uploading the same bytes twice yields the
// same asset.
type Asset struct {
	ID                 string    `json:"_id"`
	Type               string    `json:"_type"`
	OriginalFilename   string    `json:"originalFilename,omitempty"`
	MimeType           string    `json:"mimeType"`
	Extension          string    `json:"extension"`
	Size               int64     `json:"size"`
	SHA1Hash           string    `json:"sha1hash"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	StorageBackendName string    `json:"storageBackend"`
	ObjectKey          string    `json:"objectKey"`
	URL                string    `json:"url,omitempty"`
	CreatedAt          time.Time `json:"_createdAt"`
	UpdatedAt          time.Time `json:"_updatedAt"`
}

// AspectRatio returns width divided by height.
func (a *Asset) AspectRatio() float64 {
	if a.Height == 0 {
		return 0
	}
	return float64(a.Width) / float64(a.Height)
}

// SortOrder selects ascending or descending results.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DocumentFilter selects documents for List and Count.
//
// Where matches field values by JSON equality. Keys may be dotted paths into
// nested objects, for example "slug.current" or "author._ref". OrderBy accepts
// a system key (_createdAt, _updatedAt, _id) or a field path and defaults to
// _createdAt.
type DocumentFilter struct {
	Type    string
	Where   map[string]any
	OrderBy string
	Order   SortOrder
	Limit   int
	Offset  int
}

// Path splits a dotted field path.
func Path(p string) []string {
	return strings.Split(p, ".")
}

// Lookup resolves a dotted path inside a document, including system keys.
func (d *Document) Lookup(path string) (any, bool) {
	switch path {
	case KeyID:
		return d.ID, true
	case KeyType:
		return d.Type, true
	case KeyRev:
		return d.Rev, true
	case KeyCreatedAt:
		return d.CreatedAt.UTC().Format(time.RFC3339Nano), true
	case KeyUpdatedAt:
		return d.UpdatedAt.UTC().Format(time.RFC3339Nano), true
	}
	var cur any = d.Fields
	for _, part := range Path(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
