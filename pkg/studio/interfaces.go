package studio

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for asset storage backends
type BlobStore interface {
	// Upload stores content under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams stores content with a MIME type
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetPreviewURL returns a URL for displaying content inline
	GetPreviewURL(ctx context.Context, objectKey string) (string, error)

	// Download opens the stored content
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Links describes what a stored document points at and which of its values
// must not repeat within its type.
type Links struct {
	// Refs are the IDs of every document and asset the values reference.
	Refs []string
	// Unique maps dotted field paths to values no other document of the
	// same type may hold.
	Unique map[string]any
}

// Repository defines the interface for document and asset persistence.
//
// Writes check their Links atomically with the change: CreateDocument and
// UpdateDocument fail with *MissingReferenceError or *DuplicateValueError,
// and DeleteDocument and DeleteAsset fail with *ReferencedError while another
// document still points at the target. The repository keeps the refs so
// ListReferencing can answer without scanning documents.
type Repository interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *Document, links Links) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	// UpdateDocument replaces a document when its stored revision equals
	// prevRev and returns ErrRevisionConflict otherwise.
	UpdateDocument(ctx context.Context, doc *Document, prevRev string, links Links) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error)
	CountDocuments(ctx context.Context, filter DocumentFilter) (int, error)

	// ListReferencing returns the IDs of other documents referencing targetID
	ListReferencing(ctx context.Context, targetID string) ([]string, error)

	// Asset operations
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// EventSink receives notifications about committed changes
type EventSink interface {
	// DocumentCreated is fired when a document is created
	DocumentCreated(ctx context.Context, doc *Document) error

	// DocumentUpdated is fired when a document is replaced or patched
	DocumentUpdated(ctx context.Context, doc *Document) error

	// DocumentDeleted is fired when a document is deleted
	DocumentDeleted(ctx context.Context, docType, id string) error

	// AssetUploaded is fired when a new asset is stored
	AssetUploaded(ctx context.Context, asset *Asset) error

	// AssetDeleted is fired when an asset is deleted
	AssetDeleted(ctx context.Context, id string) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
