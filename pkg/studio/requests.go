package studio

import (
	"io"
	"time"
)

// CreateDocumentRequest contains parameters for creating a document.
// ID is optional; a UUID is assigned when it is empty.
type CreateDocumentRequest struct {
	Type   string
	ID     string
	Fields map[string]any
}

// UpdateDocumentRequest replaces every field of a document. When Type is set
// the stored document must have that type. A non-empty IfRevision must equal
// the stored revision.
type UpdateDocumentRequest struct {
	ID         string
	Type       string
	Fields     map[string]any
	IfRevision string
}

// PatchDocumentRequest sets and unsets individual fields. Paths may be
// dotted to reach into objects, for example "seo.metaTitle". Unset runs
// before Set.
type PatchDocumentRequest struct {
	ID         string
	Type       string
	Set        map[string]any
	Unset      []string
	IfRevision string
}

// GenerateSlugRequest asks for the slug a slug field would derive from the
// given values. DocumentID excludes that document from the uniqueness check.
type GenerateSlugRequest struct {
	Type       string
	Field      string
	Fields     map[string]any
	DocumentID string
}

// UploadAssetRequest contains parameters for uploading an image asset
type UploadAssetRequest struct {
	Reader             io.Reader
	FileName           string
	StorageBackendName string
}

// Query is a structured document query run by the vision console.
type Query struct {
	Type       string         `json:"type,omitempty"`
	Where      map[string]any `json:"where,omitempty"`
	OrderBy    string         `json:"orderBy,omitempty"`
	Order      SortOrder      `json:"order,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Offset     int            `json:"offset,omitempty"`
	Projection []string       `json:"projection,omitempty"`
}

// QueryResult is the answer to a Query.
type QueryResult struct {
	Query      Query            `json:"query"`
	APIVersion string           `json:"apiVersion"`
	Total      int              `json:"total"`
	Result     []map[string]any `json:"result"`
	Ms         int64            `json:"ms"`
}

// StructureItem is one entry of the content-structure navigator.
type StructureItem struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// DocumentSummary is the list view of a document in the navigator.
type DocumentSummary struct {
	ID        string    `json:"_id"`
	Type      string    `json:"_type"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"_updatedAt"`
}
