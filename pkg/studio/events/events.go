// Package events publishes studio change notifications.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/tendant/content-studio/pkg/studio"
)

// Operation names used in subjects and payloads.
const (
	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpUploaded = "uploaded"
)

// Event is the JSON payload of a published change.
type Event struct {
	Op           string           `json:"op"`
	Dataset      string           `json:"dataset"`
	DocumentID   string           `json:"documentId,omitempty"`
	DocumentType string           `json:"documentType,omitempty"`
	Rev          string           `json:"rev,omitempty"`
	AssetID      string           `json:"assetId,omitempty"`
	Document     *studio.Document `json:"document,omitempty"`
	Asset        *studio.Asset    `json:"asset,omitempty"`
	Time         time.Time        `json:"time"`
}

// Multi fans each event out to every sink and joins their errors.
type Multi []studio.EventSink

func (m Multi) each(fn func(studio.EventSink) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) DocumentCreated(ctx context.Context, doc *studio.Document) error {
	return m.each(func(s studio.EventSink) error { return s.DocumentCreated(ctx, doc) })
}

func (m Multi) DocumentUpdated(ctx context.Context, doc *studio.Document) error {
	return m.each(func(s studio.EventSink) error { return s.DocumentUpdated(ctx, doc) })
}

func (m Multi) DocumentDeleted(ctx context.Context, docType, id string) error {
	return m.each(func(s studio.EventSink) error { return s.DocumentDeleted(ctx, docType, id) })
}

func (m Multi) AssetUploaded(ctx context.Context, asset *studio.Asset) error {
	return m.each(func(s studio.EventSink) error { return s.AssetUploaded(ctx, asset) })
}

func (m Multi) AssetDeleted(ctx context.Context, id string) error {
	return m.each(func(s studio.EventSink) error { return s.AssetDeleted(ctx, id) })
}
