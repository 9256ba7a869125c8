package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tendant/content-studio/pkg/studio/assetkey"
	"github.com/tendant/content-studio/pkg/studio/schema"
)

// service implements the Service interface
type service struct {
	config           Config
	repository       Repository
	blobStores       map[string]BlobStore
	defaultBlobStore string
	keyGenerator     assetkey.Generator
	eventSink        EventSink
	logger           *slog.Logger
	now              func() time.Time
	maxAssetSize     int64
}

// DefaultMaxAssetSize bounds image uploads.
const DefaultMaxAssetSize int64 = 20 << 20

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStudioConfig sets the studio configuration and schema
func WithStudioConfig(cfg Config) Option {
	return func(s *service) {
		s.config = DefineConfig(cfg)
	}
}

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend added becomes
// the default unless WithDefaultBlobStore says otherwise.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBlobStore == "" {
			s.defaultBlobStore = name
		}
	}
}

// WithDefaultBlobStore selects the backend used when an upload names none
func WithDefaultBlobStore(name string) Option {
	return func(s *service) {
		s.defaultBlobStore = name
	}
}

// WithKeyGenerator sets the object key strategy for assets
func WithKeyGenerator(g assetkey.Generator) Option {
	return func(s *service) {
		s.keyGenerator = g
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithMaxAssetSize bounds the size of uploaded images in bytes
func WithMaxAssetSize(n int64) Option {
	return func(s *service) {
		s.maxAssetSize = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		config:       NewStudioConfig(DefaultProjectID, DefaultDataset),
		blobStores:   make(map[string]BlobStore),
		eventSink:    NewNoopEventSink(),
		logger:       slog.Default(),
		now:          time.Now,
		maxAssetSize: DefaultMaxAssetSize,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.config.Schema.Types == nil {
		return nil, fmt.Errorf("schema is required")
	}
	if s.defaultBlobStore != "" {
		if _, ok := s.blobStores[s.defaultBlobStore]; !ok {
			return nil, fmt.Errorf("default blob store %q: %w", s.defaultBlobStore, ErrStorageBackendNotFound)
		}
	}
	if s.keyGenerator == nil {
		s.keyGenerator = assetkey.NewDefaultGenerator(s.config.ProjectID, s.config.Dataset)
	}
	s.logger = s.logger.With("studio", s.config.Name, "dataset", s.config.Dataset)

	return s, nil
}

func (s *service) Config() Config {
	return DefineConfig(s.config)
}

func (s *service) documentType(name string) (*schema.Type, error) {
	t, ok := s.config.Schema.Types.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocumentType, name)
	}
	return t, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// Document operations

func (s *service) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	t, err := s.documentType(req.Type)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = newDocumentID()
	}
	if strings.HasPrefix(id, "_") || strings.ContainsAny(id, " /") {
		return nil, &DocumentError{DocumentID: id, Op: "create", Err: fmt.Errorf("%w: malformed document id", ErrValidation)}
	}

	now := s.clock()
	fields := stripSystemKeys(req.Fields)
	applyInitialValues(t.InitialValues(now), fields)

	links, err := s.prepare(ctx, t, id, fields)
	if err != nil {
		return nil, err
	}

	rev, err := newRevision()
	if err != nil {
		return nil, &DocumentError{DocumentID: id, Op: "create", Err: err}
	}
	doc := &Document{
		ID:        id,
		Type:      t.Name,
		Rev:       rev,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    fields,
	}

	if err := s.repository.CreateDocument(ctx, doc, links); err != nil {
		if verr := constraintError(t, fields, err); verr != nil {
			return nil, verr
		}
		return nil, &DocumentError{DocumentID: id, Op: "create", Err: err}
	}

	s.logger.DebugContext(ctx, "document created", "id", doc.ID, "type", doc.Type, "rev", doc.Rev)
	if err := s.eventSink.DocumentCreated(ctx, doc); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "document.created", "id", doc.ID, "error", err)
	}
	return doc, nil
}

func (s *service) GetDocument(ctx context.Context, id string) (*Document, error) {
	doc, err := s.repository.GetDocument(ctx, id)
	if err != nil {
		return nil, &DocumentError{DocumentID: id, Op: "get", Err: err}
	}
	return doc, nil
}

func (s *service) UpdateDocument(ctx context.Context, req UpdateDocumentRequest) (*Document, error) {
	existing, err := s.loadForWrite(ctx, "update", req.ID, req.Type, req.IfRevision)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, "update", existing, stripSystemKeys(req.Fields))
}

func (s *service) PatchDocument(ctx context.Context, req PatchDocumentRequest) (*Document, error) {
	existing, err := s.loadForWrite(ctx, "patch", req.ID, req.Type, req.IfRevision)
	if err != nil {
		return nil, err
	}
	fields, err := applyPatch(existing.Fields, req.Set, req.Unset)
	if err != nil {
		return nil, &DocumentError{DocumentID: req.ID, Op: "patch", Err: err}
	}
	return s.replace(ctx, "patch", existing, fields)
}

func (s *service) loadForWrite(ctx context.Context, op, id, docType, ifRevision string) (*Document, error) {
	existing, err := s.repository.GetDocument(ctx, id)
	if err != nil {
		return nil, &DocumentError{DocumentID: id, Op: op, Err: err}
	}
	if docType != "" && existing.Type != docType {
		return nil, &DocumentError{DocumentID: id, Op: op, Err: ErrDocumentNotFound}
	}
	if ifRevision != "" && ifRevision != existing.Rev {
		return nil, &DocumentError{
			DocumentID: id,
			Op:         op,
			Err:        fmt.Errorf("%w: expected %s, stored %s", ErrRevisionConflict, ifRevision, existing.Rev),
		}
	}
	return existing, nil
}

func (s *service) replace(ctx context.Context, op string, existing *Document, fields map[string]any) (*Document, error) {
	t, err := s.documentType(existing.Type)
	if err != nil {
		return nil, err
	}
	links, err := s.prepare(ctx, t, existing.ID, fields)
	if err != nil {
		return nil, err
	}
	rev, err := newRevision()
	if err != nil {
		return nil, &DocumentError{DocumentID: existing.ID, Op: op, Err: err}
	}

	doc := &Document{
		ID:        existing.ID,
		Type:      existing.Type,
		Rev:       rev,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: s.clock(),
		Fields:    fields,
	}
	if err := s.repository.UpdateDocument(ctx, doc, existing.Rev, links); err != nil {
		if verr := constraintError(t, fields, err); verr != nil {
			return nil, verr
		}
		return nil, &DocumentError{DocumentID: doc.ID, Op: op, Err: err}
	}

	s.logger.DebugContext(ctx, "document updated", "op", op, "id", doc.ID, "rev", doc.Rev)
	if err := s.eventSink.DocumentUpdated(ctx, doc); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "document.updated", "id", doc.ID, "error", err)
	}
	return doc, nil
}

// prepare assigns array keys, validates and resolves references. It returns
// the links the repository enforces when it stores the document.
func (s *service) prepare(ctx context.Context, t *schema.Type, id string, fields map[string]any) (Links, error) {
	if err := assignItemKeys(t.Fields, fields); err != nil {
		return Links{}, &DocumentError{DocumentID: id, Op: "prepare", Err: err}
	}
	markers, unresolved, err := s.check(ctx, t, id, fields)
	if err != nil {
		return Links{}, err
	}
	if len(markers) > 0 {
		return Links{}, &ValidationError{DocumentType: t.Name, Markers: markers, Unresolved: unresolved}
	}
	return Links{
		Refs:   referencedIDs(t.References(fields), t.AssetReferences(fields)),
		Unique: uniqueValues(t, fields),
	}, nil
}

// uniqueValues lists the slug values that must not repeat within the type.
func uniqueValues(t *schema.Type, fields map[string]any) map[string]any {
	var out map[string]any
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Type != schema.TypeSlug {
			continue
		}
		if current := slugCurrent(fields[f.Name]); current != "" {
			if out == nil {
				out = make(map[string]any)
			}
			out[f.Name+".current"] = current
		}
	}
	return out
}

// constraintError turns a constraint the repository rejected at write time
// into the validation error check reports for the same document. It returns
// nil for any other error.
func constraintError(t *schema.Type, fields map[string]any, err error) error {
	var missing *MissingReferenceError
	if errors.As(err, &missing) {
		var markers schema.Markers
		for _, ref := range t.References(fields) {
			if ref.ID == missing.ID {
				markers = append(markers, missingDocumentMarker(ref.Path, ref.ID))
			}
		}
		for _, a := range t.AssetReferences(fields) {
			if a.AssetID == missing.ID {
				markers = append(markers, missingAssetMarker(a.Path, a.AssetID))
			}
		}
		if len(markers) == 0 {
			return nil
		}
		return &ValidationError{DocumentType: t.Name, Markers: markers, Unresolved: true}
	}
	var dup *DuplicateValueError
	if errors.As(err, &dup) {
		return &ValidationError{
			DocumentType: t.Name,
			Markers:      schema.Markers{slugTakenMarker(strings.TrimSuffix(dup.Field, ".current"), fmt.Sprint(dup.Value))},
		}
	}
	return nil
}

func missingDocumentMarker(path, id string) schema.Marker {
	return schema.Marker{
		Path:    path,
		Level:   schema.LevelError,
		Message: fmt.Sprintf("Referenced document %q does not exist", id),
	}
}

func missingAssetMarker(path, id string) schema.Marker {
	return schema.Marker{
		Path:    path,
		Level:   schema.LevelError,
		Message: fmt.Sprintf("Referenced asset %q does not exist", id),
	}
}

func slugTakenMarker(path, current string) schema.Marker {
	return schema.Marker{
		Path:    path,
		Level:   schema.LevelError,
		Message: fmt.Sprintf("Slug %q is already in use", current),
	}
}

// check runs schema validation, reference resolution and slug uniqueness.
func (s *service) check(ctx context.Context, t *schema.Type, id string, fields map[string]any) (schema.Markers, bool, error) {
	markers := t.Validate(fields)
	unresolved := false

	for _, ref := range t.References(fields) {
		target, err := s.repository.GetDocument(ctx, ref.ID)
		if errors.Is(err, ErrDocumentNotFound) {
			markers = append(markers, missingDocumentMarker(ref.Path, ref.ID))
			unresolved = true
			continue
		}
		if err != nil {
			return nil, false, &DocumentError{DocumentID: id, Op: "resolve_reference", Err: err}
		}
		if !slices.Contains(ref.Targets, target.Type) {
			markers = append(markers, schema.Marker{
				Path:    ref.Path,
				Level:   schema.LevelError,
				Message: fmt.Sprintf("Referenced document %q is a %s, expected %s", ref.ID, target.Type, strings.Join(ref.Targets, " or ")),
			})
			unresolved = true
		}
	}

	for _, a := range t.AssetReferences(fields) {
		_, err := s.repository.GetAsset(ctx, a.AssetID)
		if errors.Is(err, ErrAssetNotFound) {
			markers = append(markers, missingAssetMarker(a.Path, a.AssetID))
			unresolved = true
			continue
		}
		if err != nil {
			return nil, false, &DocumentError{DocumentID: id, Op: "resolve_asset", Err: err}
		}
	}

	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Type != schema.TypeSlug {
			continue
		}
		current := slugCurrent(fields[f.Name])
		if current == "" {
			continue
		}
		taken, err := s.slugTaken(ctx, t.Name, f.Name, current, id)
		if err != nil {
			return nil, false, err
		}
		if taken {
			markers = append(markers, slugTakenMarker(f.Name, current))
		}
	}
	return markers, unresolved, nil
}

func slugCurrent(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m["current"].(string)
	return s
}

func (s *service) slugTaken(ctx context.Context, docType, field, current, exceptID string) (bool, error) {
	docs, err := s.repository.ListDocuments(ctx, DocumentFilter{
		Type:  docType,
		Where: map[string]any{field + ".current": current},
		Limit: 2,
	})
	if err != nil {
		return false, fmt.Errorf("check slug uniqueness: %w", err)
	}
	for _, d := range docs {
		if d.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.repository.GetDocument(ctx, id)
	if err != nil {
		return &DocumentError{DocumentID: id, Op: "delete", Err: err}
	}
	if err := s.repository.DeleteDocument(ctx, id); err != nil {
		return &DocumentError{DocumentID: id, Op: "delete", Err: err}
	}

	s.logger.DebugContext(ctx, "document deleted", "id", id, "type", doc.Type)
	if err := s.eventSink.DocumentDeleted(ctx, doc.Type, id); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "document.deleted", "id", id, "error", err)
	}
	return nil
}

func (s *service) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error) {
	if filter.Type != "" {
		if _, err := s.documentType(filter.Type); err != nil {
			return nil, err
		}
	}
	filter, err := filter.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repository.ListDocuments(ctx, filter)
}

func (s *service) CountDocuments(ctx context.Context, filter DocumentFilter) (int, error) {
	if filter.Type != "" {
		if _, err := s.documentType(filter.Type); err != nil {
			return 0, err
		}
	}
	filter, err := filter.Normalize()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repository.CountDocuments(ctx, filter)
}

func (s *service) ValidateDocument(ctx context.Context, docType, id string, fields map[string]any) (schema.Markers, error) {
	t, err := s.documentType(docType)
	if err != nil {
		return nil, err
	}
	markers, _, err := s.check(ctx, t, id, stripSystemKeys(fields))
	if err != nil {
		return nil, err
	}
	if markers == nil {
		markers = schema.Markers{}
	}
	return markers, nil
}

func (s *service) GenerateSlug(ctx context.Context, req GenerateSlugRequest) (string, error) {
	t, err := s.documentType(req.Type)
	if err != nil {
		return "", err
	}
	f, ok := t.Field(req.Field)
	if !ok || f.Type != schema.TypeSlug {
		return "", fmt.Errorf("%w: %s.%s is not a slug field", ErrValidation, req.Type, req.Field)
	}
	base, ok := schema.SlugFor(f, req.Fields)
	if !ok || base == "" {
		return "", fmt.Errorf("%w: %s.%s has no source value", ErrValidation, req.Type, req.Field)
	}

	candidate := base
	for n := 2; ; n++ {
		taken, err := s.slugTaken(ctx, t.Name, f.Name, candidate, req.DocumentID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix := fmt.Sprintf("-%d", n)
		room := maxSlugLength(f) - len(suffix)
		if room < 1 {
			return "", fmt.Errorf("%w: no free slug for %s.%s fits in %d characters", ErrValidation, req.Type, req.Field, maxSlugLength(f))
		}
		candidate = schema.Slugify(base, room) + suffix
	}
}

func maxSlugLength(f *schema.Field) int {
	if f.Options.MaxLength > 0 {
		return f.Options.MaxLength
	}
	return schema.DefaultSlugMaxLength
}

func stripSystemKeys(fields map[string]any) map[string]any {
	out := CloneFields(fields)
	if out == nil {
		return make(map[string]any)
	}
	for k := range out {
		if isSystemKey(k) {
			delete(out, k)
		}
	}
	return out
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
	if s.defaultBlobStore == "" {
		s.defaultBlobStore = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}

// Asset operations

func (s *service) GetAsset(ctx context.Context, id string) (*Asset, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "get", Err: err}
	}
	s.attachURL(ctx, asset)
	return asset, nil
}

func (s *service) attachURL(ctx context.Context, asset *Asset) {
	backend, err := s.GetBackend(asset.StorageBackendName)
	if err != nil {
		s.logger.WarnContext(ctx, "asset backend missing", "id", asset.ID, "backend", asset.StorageBackendName)
		return
	}
	url, err := backend.GetPreviewURL(ctx, asset.ObjectKey)
	if err != nil {
		s.logger.WarnContext(ctx, "asset url unavailable", "id", asset.ID, "error", err)
		return
	}
	asset.URL = url
}

func (s *service) DownloadAsset(ctx context.Context, id string) (io.ReadCloser, *Asset, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, nil, &AssetError{AssetID: id, Op: "download", Err: err}
	}
	backend, err := s.GetBackend(asset.StorageBackendName)
	if err != nil {
		return nil, nil, &AssetError{AssetID: id, Op: "download", Err: err}
	}
	rc, err := backend.Download(ctx, asset.ObjectKey)
	if err != nil {
		return nil, nil, &StorageError{Backend: asset.StorageBackendName, Key: asset.ObjectKey, Op: "download", Err: err}
	}
	return rc, asset, nil
}

func (s *service) GetAssetURL(ctx context.Context, id string) (string, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return "", &AssetError{AssetID: id, Op: "url", Err: err}
	}
	backend, err := s.GetBackend(asset.StorageBackendName)
	if err != nil {
		return "", &AssetError{AssetID: id, Op: "url", Err: err}
	}
	url, err := backend.GetDownloadURL(ctx, asset.ObjectKey, asset.OriginalFilename)
	if err != nil {
		return "", &StorageError{Backend: asset.StorageBackendName, Key: asset.ObjectKey, Op: "url", Err: err}
	}
	return url, nil
}

func (s *service) DeleteAsset(ctx context.Context, id string) error {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}
	if err := s.repository.DeleteAsset(ctx, id); err != nil {
		return &AssetError{AssetID: id, Op: "delete", Err: err}
	}
	if backend, err := s.GetBackend(asset.StorageBackendName); err == nil {
		if err := backend.Delete(ctx, asset.ObjectKey); err != nil {
			s.logger.WarnContext(ctx, "asset blob not removed", "id", id, "key", asset.ObjectKey, "error", err)
		}
	}

	s.logger.DebugContext(ctx, "asset deleted", "id", id)
	if err := s.eventSink.AssetDeleted(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "asset.deleted", "id", id, "error", err)
	}
	return nil
}
