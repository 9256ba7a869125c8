package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/tendant/content-studio/pkg/studio"
)

// Repository implements studio.Repository using in-memory storage
type Repository struct {
	mu         sync.RWMutex
	documents  map[string]*studio.Document
	references map[string][]string // source document id -> referenced ids
	assets     map[string]*studio.Asset
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		documents:  make(map[string]*studio.Document),
		references: make(map[string][]string),
		assets:     make(map[string]*studio.Asset),
	}
}

// Document operations

func (r *Repository) CreateDocument(ctx context.Context, doc *studio.Document, links studio.Links) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[doc.ID]; exists {
		return studio.ErrDocumentExists
	}
	if err := r.checkLinks(doc, links); err != nil {
		return err
	}
	// Store copies to avoid external modifications
	r.documents[doc.ID] = doc.Clone()
	r.references[doc.ID] = slices.Clone(links.Refs)
	return nil
}

// checkLinks reports the first constraint storing doc would break. The
// caller holds r.mu.
func (r *Repository) checkLinks(doc *studio.Document, links studio.Links) error {
	for _, id := range links.Refs {
		if id == doc.ID {
			continue
		}
		if _, ok := r.documents[id]; ok {
			continue
		}
		if _, ok := r.assets[id]; ok {
			continue
		}
		return &studio.MissingReferenceError{ID: id}
	}
	for _, field := range slices.Sorted(maps.Keys(links.Unique)) {
		want := links.Unique[field]
		for _, other := range r.documents {
			if other.ID == doc.ID || other.Type != doc.Type {
				continue
			}
			if got, ok := other.Lookup(field); ok && studio.JSONEqual(got, want) {
				return &studio.DuplicateValueError{Field: field, Value: want, HeldBy: other.ID}
			}
		}
	}
	return nil
}

// referrers lists the other documents pointing at id. The caller holds r.mu.
func (r *Repository) referrers(id string) []string {
	var ids []string
	for source, refs := range r.references {
		if source != id && slices.Contains(refs, id) {
			ids = append(ids, source)
		}
	}
	slices.Sort(ids)
	return ids
}

func (r *Repository) GetDocument(ctx context.Context, id string) (*studio.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.documents[id]
	if !exists {
		return nil, studio.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

func (r *Repository) UpdateDocument(ctx context.Context, doc *studio.Document, prevRev string, links studio.Links) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.documents[doc.ID]
	if !exists {
		return studio.ErrDocumentNotFound
	}
	if stored.Rev != prevRev {
		return studio.ErrRevisionConflict
	}
	if err := r.checkLinks(doc, links); err != nil {
		return err
	}
	r.documents[doc.ID] = doc.Clone()
	r.references[doc.ID] = slices.Clone(links.Refs)
	return nil
}

func (r *Repository) DeleteDocument(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[id]; !exists {
		return studio.ErrDocumentNotFound
	}
	if referrers := r.referrers(id); len(referrers) > 0 {
		return &studio.ReferencedError{TargetID: id, ReferencedBy: referrers}
	}
	delete(r.documents, id)
	delete(r.references, id)
	return nil
}

func (r *Repository) matching(filter studio.DocumentFilter) []*studio.Document {
	var docs []*studio.Document
	for _, d := range r.documents {
		if filter.Matches(d) {
			docs = append(docs, d)
		}
	}
	return docs
}

func (r *Repository) ListDocuments(ctx context.Context, filter studio.DocumentFilter) ([]*studio.Document, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := r.matching(filter)
	filter.Sort(docs)
	docs = filter.Page(docs)

	out := make([]*studio.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out, nil
}

func (r *Repository) CountDocuments(ctx context.Context, filter studio.DocumentFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matching(filter)), nil
}

func (r *Repository) ListReferencing(ctx context.Context, targetID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.referrers(targetID), nil
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *studio.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	assetCopy := *asset
	assetCopy.URL = ""
	r.assets[asset.ID] = &assetCopy
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id string) (*studio.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, studio.ErrAssetNotFound
	}
	assetCopy := *asset
	return &assetCopy, nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[id]; !exists {
		return studio.ErrAssetNotFound
	}
	if referrers := r.referrers(id); len(referrers) > 0 {
		return &studio.ReferencedError{TargetID: id, ReferencedBy: referrers}
	}
	delete(r.assets, id)
	return nil
}
