package studio

import (
	"errors"
	"fmt"

	"github.com/tendant/content-studio/pkg/studio/schema"
)

var (
	// ErrDocumentNotFound indicates a document was not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists indicates a document with the same ID is already stored
	ErrDocumentExists = errors.New("document already exists")

	// ErrUnknownDocumentType indicates the document type is not in the schema
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrRevisionConflict indicates the document changed since the caller read it
	ErrRevisionConflict = errors.New("revision conflict")

	// ErrReferenceNotFound indicates a reference points at a missing or mistyped document
	ErrReferenceNotFound = errors.New("referenced document not found")

	// ErrDuplicateValue indicates a unique field value is held by another document
	ErrDuplicateValue = errors.New("value already in use")

	// ErrDocumentReferenced indicates a document or asset is still referenced
	ErrDocumentReferenced = errors.New("document is referenced by other documents")

	// ErrAssetNotFound indicates an asset was not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidAsset indicates an upload is not a supported image
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrObjectNotFound indicates a blob is missing from its storage backend
	ErrObjectNotFound = errors.New("object not found")

	// ErrURLUnsupported indicates a storage backend cannot hand out URLs
	ErrURLUnsupported = errors.New("storage backend does not serve urls")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrValidation indicates a document failed schema validation
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPatch indicates a patch that cannot be applied
	ErrInvalidPatch = errors.New("invalid patch")

	// ErrPluginDisabled indicates the studio does not enable the requested plugin
	ErrPluginDisabled = errors.New("plugin not enabled")
)

// DocumentError represents an error related to a document operation
type DocumentError struct {
	DocumentID string
	Op         string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document operation %s failed for document %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// AssetError represents an error related to an asset operation
type AssetError struct {
	AssetID string
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError carries the markers produced for a rejected document.
// It matches ErrValidation, and also ErrReferenceNotFound when at least one
// marker comes from an unresolved reference.
type ValidationError struct {
	DocumentType string
	Markers      schema.Markers
	Unresolved   bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s document is invalid: %s", e.DocumentType, e.Markers.Error())
}

func (e *ValidationError) Unwrap() []error {
	if e.Unresolved {
		return []error{ErrValidation, ErrReferenceNotFound}
	}
	return []error{ErrValidation}
}

// ReferencedError lists the documents that still reference a target.
type ReferencedError struct {
	TargetID     string
	ReferencedBy []string
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("%s is referenced by %d document(s): %v", e.TargetID, len(e.ReferencedBy), e.ReferencedBy)
}

func (e *ReferencedError) Unwrap() error {
	return ErrDocumentReferenced
}

// MissingReferenceError is returned by a Repository write when a referenced
// document or asset does not exist.
type MissingReferenceError struct {
	ID string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("referenced document or asset %s does not exist", e.ID)
}

func (e *MissingReferenceError) Unwrap() error {
	return ErrReferenceNotFound
}

// DuplicateValueError is returned by a Repository write when another document
// of the same type already holds a unique value.
type DuplicateValueError struct {
	Field  string
	Value  any
	HeldBy string
}

func (e *DuplicateValueError) Error() string {
	return fmt.Sprintf("%s %v is already held by %s", e.Field, e.Value, e.HeldBy)
}

func (e *DuplicateValueError) Unwrap() error {
	return ErrDuplicateValue
}
