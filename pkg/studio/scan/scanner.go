// Package scan walks stored documents in batches and hands each one to a
// processor, for backfills and schema migrations.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/content-studio/pkg/studio"
)

// DefaultBatchSize is used when ScanOptions.BatchSize is zero.
const DefaultBatchSize = 100

// Scanner lists documents and processes them with a DocumentProcessor.
type Scanner struct {
	service studio.Service
	logger  *slog.Logger
}

// New creates a new Scanner instance.
func New(service studio.Service, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{service: service, logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Types lists the document types to walk; empty means every registered type.
	Types []string

	// Where restricts the scan to documents whose fields equal these values.
	Where map[string]any

	// Processor is required unless DryRun is set.
	Processor DocumentProcessor

	BatchSize int

	// DryRun reports what would be processed without calling Processor.
	DryRun bool

	// OnProgress is called after each batch with processed and found counts.
	OnProgress func(processed, found int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	TotalFound     int64
	TotalProcessed int64
	TotalFailed    int64
	FailedIDs      []string
	// Errors holds one entry per failed document, in FailedIDs order.
	Errors []error
}

// Err joins every processing error, or returns nil.
func (r *ScanResult) Err() error {
	return errors.Join(r.Errors...)
}

// Scan lists matching documents in batches and processes each one. A
// document that fails processing is recorded and the scan continues.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}
	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	opts.BatchSize = min(opts.BatchSize, studio.MaxListLimit)
	types := opts.Types
	if len(types) == 0 {
		types = s.service.Config().Schema.Types.Names()
	}

	for _, docType := range types {
		if err := s.scanType(ctx, docType, opts, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Scanner) scanType(ctx context.Context, docType string, opts ScanOptions, result *ScanResult) error {
	for offset := 0; ; offset += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		docs, err := s.service.ListDocuments(ctx, studio.DocumentFilter{
			Type:    docType,
			Where:   opts.Where,
			OrderBy: studio.KeyCreatedAt,
			Limit:   opts.BatchSize,
			Offset:  offset,
		})
		if err != nil {
			return fmt.Errorf("failed to list %s documents: %w", docType, err)
		}
		result.TotalFound += int64(len(docs))

		for _, doc := range docs {
			if opts.DryRun {
				s.logger.InfoContext(ctx, "dry run: would process document", "id", doc.ID, "type", doc.Type, "rev", doc.Rev)
				result.TotalProcessed++
				continue
			}
			if err := opts.Processor.Process(ctx, doc); err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, doc.ID)
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", doc.ID, err))
				s.logger.WarnContext(ctx, "failed to process document", "id", doc.ID, "type", doc.Type, "err", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
		if len(docs) < opts.BatchSize {
			return nil
		}
	}
}

// ForEach processes every document of the given types with fn.
func (s *Scanner) ForEach(ctx context.Context, types []string, fn func(context.Context, *studio.Document) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		Types:     types,
		Processor: ProcessorFunc(fn),
	})
}
