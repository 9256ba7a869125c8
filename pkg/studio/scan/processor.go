package scan

import (
	"context"

	"github.com/tendant/content-studio/pkg/studio"
)

// DocumentProcessor processes individual documents found by a scan.
// Returning an error marks the document as failed; the scan continues.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *studio.Document) error
}

// ProcessorFunc adapts a function to the DocumentProcessor interface.
type ProcessorFunc func(context.Context, *studio.Document) error

func (f ProcessorFunc) Process(ctx context.Context, doc *studio.Document) error {
	return f(ctx, doc)
}

// Revalidate checks stored documents against the current schema and
// reference graph. Documents saved before a rule changed fail with a
// *studio.ValidationError listing the markers.
func Revalidate(svc studio.Service) DocumentProcessor {
	return ProcessorFunc(func(ctx context.Context, doc *studio.Document) error {
		markers, err := svc.ValidateDocument(ctx, doc.Type, doc.ID, doc.Fields)
		if err != nil {
			return err
		}
		if len(markers) > 0 {
			return &studio.ValidationError{DocumentType: doc.Type, Markers: markers}
		}
		return nil
	})
}

// Replay re-emits every document to sink as an update, for example to
// backfill a new NATS consumer.
func Replay(sink studio.EventSink) DocumentProcessor {
	return ProcessorFunc(func(ctx context.Context, doc *studio.Document) error {
		return sink.DocumentUpdated(ctx, doc)
	})
}
