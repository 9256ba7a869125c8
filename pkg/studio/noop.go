package studio

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (NoopEventSink) DocumentCreated(ctx context.Context, doc *Document) error { return nil }

func (NoopEventSink) DocumentUpdated(ctx context.Context, doc *Document) error { return nil }

func (NoopEventSink) DocumentDeleted(ctx context.Context, docType, id string) error { return nil }

func (NoopEventSink) AssetUploaded(ctx context.Context, asset *Asset) error { return nil }

func (NoopEventSink) AssetDeleted(ctx context.Context, id string) error { return nil }

// LoggingEventSink writes every event to a structured logger.
// Useful for development and debugging.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger.With("component", "events")}
}

func (l *LoggingEventSink) DocumentCreated(ctx context.Context, doc *Document) error {
	l.logger.InfoContext(ctx, "document created", "id", doc.ID, "type", doc.Type, "rev", doc.Rev)
	return nil
}

func (l *LoggingEventSink) DocumentUpdated(ctx context.Context, doc *Document) error {
	l.logger.InfoContext(ctx, "document updated", "id", doc.ID, "type", doc.Type, "rev", doc.Rev)
	return nil
}

func (l *LoggingEventSink) DocumentDeleted(ctx context.Context, docType, id string) error {
	l.logger.InfoContext(ctx, "document deleted", "id", id, "type", docType)
	return nil
}

func (l *LoggingEventSink) AssetUploaded(ctx context.Context, asset *Asset) error {
	l.logger.InfoContext(ctx, "asset uploaded", "id", asset.ID, "backend", asset.StorageBackendName, "size", asset.Size)
	return nil
}

func (l *LoggingEventSink) AssetDeleted(ctx context.Context, id string) error {
	l.logger.InfoContext(ctx, "asset deleted", "id", id)
	return nil
}
