package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

func (s *service) requirePlugin(name PluginName) (Plugin, error) {
	p, ok := s.config.Plugin(name)
	if !ok {
		return Plugin{}, fmt.Errorf("%w: %s", ErrPluginDisabled, name)
	}
	return p, nil
}

// Structure lists every document type with its document count.
func (s *service) Structure(ctx context.Context) ([]StructureItem, error) {
	if _, err := s.requirePlugin(PluginStructure); err != nil {
		return nil, err
	}
	types := s.config.Schema.Types.Types()
	items := make([]StructureItem, 0, len(types))
	for _, t := range types {
		n, err := s.repository.CountDocuments(ctx, DocumentFilter{Type: t.Name})
		if err != nil {
			return nil, fmt.Errorf("count %s documents: %w", t.Name, err)
		}
		title := t.Title
		if title == "" {
			title = t.Name
		}
		items = append(items, StructureItem{Type: t.Name, Title: title, Count: n})
	}
	return items, nil
}

// StructureList lists documents of one type, most recently edited first.
func (s *service) StructureList(ctx context.Context, docType string, limit, offset int) ([]DocumentSummary, error) {
	if _, err := s.requirePlugin(PluginStructure); err != nil {
		return nil, err
	}
	t, err := s.documentType(docType)
	if err != nil {
		return nil, err
	}
	docs, err := s.ListDocuments(ctx, DocumentFilter{
		Type:    t.Name,
		OrderBy: KeyUpdatedAt,
		Order:   SortDesc,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, err
	}
	preview := t.PreviewField()
	out := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		out[i] = DocumentSummary{ID: d.ID, Type: d.Type, Title: d.Title(preview), UpdatedAt: d.UpdatedAt}
	}
	return out, nil
}

// Query runs a structured query for the vision console.
func (s *service) Query(ctx context.Context, q Query) (*QueryResult, error) {
	p, err := s.requirePlugin(PluginVision)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	filter := DocumentFilter{
		Type:    q.Type,
		Where:   q.Where,
		OrderBy: q.OrderBy,
		Order:   q.Order,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	total, err := s.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	docs, err := s.ListDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		row, err := flatten(d)
		if err != nil {
			return nil, err
		}
		result = append(result, project(row, q.Projection))
	}
	return &QueryResult{
		Query:      q,
		APIVersion: p.APIVersion,
		Total:      total,
		Result:     result,
		Ms:         time.Since(start).Milliseconds(),
	}, nil
}

func flatten(d *Document) (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return row, nil
}

// project keeps the listed top-level keys plus _id and _type.
func project(row map[string]any, keys []string) map[string]any {
	if len(keys) == 0 {
		return row
	}
	out := map[string]any{KeyID: row[KeyID], KeyType: row[KeyType]}
	for _, k := range keys {
		if v, ok := row[k]; ok {
			out[k] = v
		}
	}
	return out
}
