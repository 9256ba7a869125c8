package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tendant/content-studio/pkg/studio"
)

// NATSSink publishes events as JSON to studio.<dataset>.<kind>.<op>.
type NATSSink struct {
	conn    *nats.Conn
	dataset string
	now     func() time.Time
}

// NewNATSSink connects to the NATS server at url with automatic reconnection.
func NewNATSSink(url, dataset string, opts ...nats.Option) (*NATSSink, error) {
	defaults := []nats.Option{
		nats.Name("content-studio"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSink{conn: nc, dataset: dataset, now: time.Now}, nil
}

// Subject returns the subject an event of the given kind and op is published on.
func Subject(dataset, kind, op string) string {
	return fmt.Sprintf("studio.%s.%s.%s", dataset, kind, op)
}

func (s *NATSSink) publish(kind string, ev Event) error {
	ev.Dataset = s.dataset
	ev.Time = s.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	subject := Subject(s.dataset, kind, ev.Op)
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	return nil
}

func (s *NATSSink) DocumentCreated(ctx context.Context, doc *studio.Document) error {
	return s.publish("document", Event{Op: OpCreated, DocumentID: doc.ID, DocumentType: doc.Type, Rev: doc.Rev, Document: doc})
}

func (s *NATSSink) DocumentUpdated(ctx context.Context, doc *studio.Document) error {
	return s.publish("document", Event{Op: OpUpdated, DocumentID: doc.ID, DocumentType: doc.Type, Rev: doc.Rev, Document: doc})
}

func (s *NATSSink) DocumentDeleted(ctx context.Context, docType, id string) error {
	return s.publish("document", Event{Op: OpDeleted, DocumentID: id, DocumentType: docType})
}

func (s *NATSSink) AssetUploaded(ctx context.Context, asset *studio.Asset) error {
	return s.publish("asset", Event{Op: OpUploaded, AssetID: asset.ID, Asset: asset})
}

func (s *NATSSink) AssetDeleted(ctx context.Context, id string) error {
	return s.publish("asset", Event{Op: OpDeleted, AssetID: id})
}

// Flush waits until the server has processed every published message.
func (s *NATSSink) Flush() error {
	return s.conn.Flush()
}

// Close drains pending messages and closes the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
