package studio

import (
	"context"
	"io"

	"github.com/tendant/content-studio/pkg/studio/schema"
)

// Service defines the main interface of the content studio
type Service interface {
	// Config returns the studio configuration the service was built with
	Config() Config

	// Document operations
	CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	UpdateDocument(ctx context.Context, req UpdateDocumentRequest) (*Document, error)
	PatchDocument(ctx context.Context, req PatchDocumentRequest) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error)
	CountDocuments(ctx context.Context, filter DocumentFilter) (int, error)

	// ValidateDocument checks values against the schema and resolves their
	// references without storing anything. An empty result means valid.
	ValidateDocument(ctx context.Context, docType, id string, fields map[string]any) (schema.Markers, error)
	GenerateSlug(ctx context.Context, req GenerateSlugRequest) (string, error)

	// Asset operations
	UploadAsset(ctx context.Context, req UploadAssetRequest) (*Asset, error)
	GetAsset(ctx context.Context, id string) (*Asset, error)
	DownloadAsset(ctx context.Context, id string) (io.ReadCloser, *Asset, error)
	GetAssetURL(ctx context.Context, id string) (string, error)
	DeleteAsset(ctx context.Context, id string) error

	// Plugin operations; ErrPluginDisabled when the plugin is not enabled
	Structure(ctx context.Context) ([]StructureItem, error)
	StructureList(ctx context.Context, docType string, limit, offset int) ([]DocumentSummary, error)
	Query(ctx context.Context, q Query) (*QueryResult, error)

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
