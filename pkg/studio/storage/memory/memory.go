package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tendant/content-studio/pkg/studio"
)

// Backend is an in-memory implementation of the studio.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

type object struct {
	data      []byte
	mimeType  string
	updatedAt time.Time
}

// New creates a new in-memory storage backend. When baseURL is set the
// backend hands out {baseURL}/{key} as preview and download URLs.
func New(baseURL ...string) *Backend {
	b := &Backend{objects: make(map[string]object)}
	if len(baseURL) > 0 {
		b.baseURL = strings.TrimRight(baseURL[0], "/")
	}
	return b
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*studio.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, studio.ErrObjectNotFound
	}
	return &studio.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.mimeType,
		UpdatedAt:   obj.updatedAt,
		Metadata:    map[string]string{"mime_type": obj.mimeType},
	}, nil
}

// Upload stores content with the default MIME type
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return b.UploadWithParams(ctx, reader, studio.UploadParams{ObjectKey: objectKey})
}

// UploadWithParams stores content with a MIME type
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params studio.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = object{data: data, mimeType: mimeType, updatedAt: time.Now().UTC()}
	return nil
}

// GetDownloadURL returns {baseURL}/{key}?dl={filename}
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	url, err := b.GetPreviewURL(ctx, objectKey)
	if err != nil {
		return "", err
	}
	if downloadFilename != "" {
		url += "?dl=" + downloadFilename
	}
	return url, nil
}

// GetPreviewURL returns {baseURL}/{key}
func (b *Backend) GetPreviewURL(ctx context.Context, objectKey string) (string, error) {
	if b.baseURL == "" {
		return "", studio.ErrURLUnsupported
	}
	return fmt.Sprintf("%s/%s", b.baseURL, objectKey), nil
}

// Download opens the stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, studio.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return studio.ErrObjectNotFound
	}
	delete(b.objects, objectKey)
	return nil
}

// Len returns the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
