package studio_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/repo/memory"
	"github.com/tendant/content-studio/pkg/studio/schema"
	memorystorage "github.com/tendant/content-studio/pkg/studio/storage/memory"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type recordingSink struct {
	studio.NoopEventSink
	created, updated, deleted []string
	assets                    []string
}

func (r *recordingSink) DocumentCreated(ctx context.Context, d *studio.Document) error {
	r.created = append(r.created, d.ID)
	return nil
}

func (r *recordingSink) DocumentUpdated(ctx context.Context, d *studio.Document) error {
	r.updated = append(r.updated, d.ID)
	return nil
}

func (r *recordingSink) DocumentDeleted(ctx context.Context, docType, id string) error {
	r.deleted = append(r.deleted, docType+"/"+id)
	return nil
}

func (r *recordingSink) AssetUploaded(ctx context.Context, a *studio.Asset) error {
	r.assets = append(r.assets, a.ID)
	return nil
}

func setupTestService(t *testing.T, opts ...studio.Option) (studio.Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	base := []studio.Option{
		studio.WithRepository(memory.New()),
		studio.WithBlobStore("memory", memorystorage.New("http://cdn.test")),
		studio.WithEventSink(sink),
		studio.WithClock(func() time.Time { return fixedNow }),
	}
	svc, err := studio.New(append(base, opts...)...)
	require.NoError(t, err)
	return svc, sink
}

func slug(s string) map[string]any {
	return map[string]any{"_type": "slug", "current": s}
}

func ref(id string) map[string]any {
	return map[string]any{"_type": "reference", "_ref": id}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func createPost(t *testing.T, svc studio.Service, title string, extra map[string]any) *studio.Document {
	t.Helper()
	fields := map[string]any{"title": title, "slug": slug(strings.ToLower(strings.ReplaceAll(title, " ", "-")))}
	for k, v := range extra {
		fields[k] = v
	}
	doc, err := svc.CreateDocument(context.Background(), studio.CreateDocumentRequest{Type: "post", Fields: fields})
	require.NoError(t, err)
	return doc
}

func TestNew_RequiresRepository(t *testing.T) {
	_, err := studio.New()
	assert.Error(t, err)

	_, err = studio.New(studio.WithRepository(memory.New()), studio.WithDefaultBlobStore("missing"))
	assert.ErrorIs(t, err, studio.ErrStorageBackendNotFound)
}

func TestCreateDocument(t *testing.T) {
	svc, sink := setupTestService(t)
	ctx := context.Background()

	t.Run("AppliesInitialValues", func(t *testing.T) {
		doc := createPost(t, svc, "Mga Pang-uri", nil)

		assert.NotEmpty(t, doc.ID)
		assert.NotEmpty(t, doc.Rev)
		assert.Equal(t, "post", doc.Type)
		assert.Equal(t, fixedNow, doc.CreatedAt)
		assert.Equal(t, "2024-06-01T09:00:00Z", doc.Fields["publishedAt"])
		assert.Equal(t, false, doc.Fields["featured"])
		assert.Equal(t, "draft", doc.Fields["status"])
		assert.Contains(t, sink.created, doc.ID)
	})

	t.Run("ExplicitValuesWin", func(t *testing.T) {
		doc := createPost(t, svc, "Published Post", map[string]any{"status": "published", "featured": true})
		assert.Equal(t, "published", doc.Fields["status"])
		assert.Equal(t, true, doc.Fields["featured"])
	})

	t.Run("MissingRequired", func(t *testing.T) {
		_, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "author", Fields: map[string]any{"bio": "x"}})
		require.ErrorIs(t, err, studio.ErrValidation)
		var verr *studio.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.True(t, verr.Markers.Has("name"))
		assert.False(t, errors.Is(err, studio.ErrReferenceNotFound))
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "page"})
		assert.ErrorIs(t, err, studio.ErrUnknownDocumentType)
	})

	t.Run("SystemKeysIgnored", func(t *testing.T) {
		doc, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "author", Fields: map[string]any{
			"name": "Jose", "_id": "forged", "_rev": "forged",
		}})
		require.NoError(t, err)
		assert.NotEqual(t, "forged", doc.ID)
		assert.NotContains(t, doc.Fields, "_id")
	})

	t.Run("DuplicateID", func(t *testing.T) {
		_, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "author", ID: "author-1", Fields: map[string]any{"name": "A"}})
		require.NoError(t, err)
		_, err = svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "author", ID: "author-1", Fields: map[string]any{"name": "B"}})
		assert.ErrorIs(t, err, studio.ErrDocumentExists)
	})

	t.Run("AssignsArrayKeys", func(t *testing.T) {
		doc := createPost(t, svc, "With Body", map[string]any{
			"body": []any{map[string]any{"children": []any{}}},
		})
		block := doc.Fields["body"].([]any)[0].(map[string]any)
		assert.NotEmpty(t, block["_key"])
		assert.Equal(t, "block", block["_type"])
	})
}

func TestCreateDocument_References(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	author, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "author", Fields: map[string]any{"name": "Maria"}})
	require.NoError(t, err)
	cat, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "category", Fields: map[string]any{"title": "Grammar"}})
	require.NoError(t, err)

	t.Run("Resolved", func(t *testing.T) {
		createPost(t, svc, "Referencing", map[string]any{
			"author":     ref(author.ID),
			"categories": []any{ref(cat.ID)},
		})
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "post", Fields: map[string]any{
			"title": "Broken", "slug": slug("broken"), "author": ref("nobody"),
		}})
		assert.ErrorIs(t, err, studio.ErrReferenceNotFound)
		assert.ErrorIs(t, err, studio.ErrValidation)
	})

	t.Run("WrongTargetType", func(t *testing.T) {
		_, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "post", Fields: map[string]any{
			"title": "Mistyped", "slug": slug("mistyped"), "categories": []any{ref(author.ID)},
		}})
		var verr *studio.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.True(t, verr.Markers.Has("categories[0]"))
	})
}

func TestSlugUniqueness(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	first := createPost(t, svc, "Hello", map[string]any{"slug": slug("hello")})

	_, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "post", Fields: map[string]any{"title": "Again", "slug": slug("hello")}})
	var verr *studio.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Markers.Has("slug"))

	// a document keeps its own slug on update
	_, err = svc.PatchDocument(ctx, studio.PatchDocumentRequest{ID: first.ID, Set: map[string]any{"title": "Hello!"}})
	assert.NoError(t, err)

	got, err := svc.GenerateSlug(ctx, studio.GenerateSlugRequest{Type: "post", Field: "slug", Fields: map[string]any{"title": "Hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello-2", got)

	got, err = svc.GenerateSlug(ctx, studio.GenerateSlugRequest{Type: "post", Field: "slug", Fields: map[string]any{"title": "Hello"}, DocumentID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = svc.GenerateSlug(ctx, studio.GenerateSlugRequest{Type: "post", Field: "title", Fields: map[string]any{"title": "x"}})
	assert.ErrorIs(t, err, studio.ErrValidation)
}

func TestUpdateDocument(t *testing.T) {
	svc, sink := setupTestService(t)
	ctx := context.Background()
	doc := createPost(t, svc, "Original", nil)

	t.Run("FullReplace", func(t *testing.T) {
		updated, err := svc.UpdateDocument(ctx, studio.UpdateDocumentRequest{
			ID:         doc.ID,
			Type:       "post",
			IfRevision: doc.Rev,
			Fields: map[string]any{
				"title": "Replaced", "slug": slug("replaced"), "publishedAt": "2024-01-01T00:00:00Z", "status": "published",
			},
		})
		require.NoError(t, err)
		assert.NotEqual(t, doc.Rev, updated.Rev)
		assert.Equal(t, doc.CreatedAt, updated.CreatedAt)
		assert.NotContains(t, updated.Fields, "featured")
		assert.Contains(t, sink.updated, doc.ID)
	})

	t.Run("StaleRevision", func(t *testing.T) {
		_, err := svc.UpdateDocument(ctx, studio.UpdateDocumentRequest{ID: doc.ID, IfRevision: doc.Rev, Fields: map[string]any{}})
		assert.ErrorIs(t, err, studio.ErrRevisionConflict)
	})

	t.Run("WrongType", func(t *testing.T) {
		_, err := svc.UpdateDocument(ctx, studio.UpdateDocumentRequest{ID: doc.ID, Type: "author", Fields: map[string]any{"name": "x"}})
		assert.ErrorIs(t, err, studio.ErrDocumentNotFound)
	})

	t.Run("InvalidReplacementKeepsStored", func(t *testing.T) {
		_, err := svc.UpdateDocument(ctx, studio.UpdateDocumentRequest{ID: doc.ID, Fields: map[string]any{"title": "No slug"}})
		assert.ErrorIs(t, err, studio.ErrValidation)

		stored, err := svc.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "Replaced", stored.Fields["title"])
	})
}

func TestPatchDocument(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	doc := createPost(t, svc, "Patch Me", map[string]any{"excerpt": "short"})

	patched, err := svc.PatchDocument(ctx, studio.PatchDocumentRequest{
		ID:    doc.ID,
		Set:   map[string]any{"seo.metaTitle": "SEO", "readingTime": 5},
		Unset: []string{"excerpt"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"metaTitle": "SEO"}, patched.Fields["seo"])
	assert.NotContains(t, patched.Fields, "excerpt")
	assert.Equal(t, "Patch Me", patched.Fields["title"])

	_, err = svc.PatchDocument(ctx, studio.PatchDocumentRequest{ID: doc.ID, Set: map[string]any{"readingTime": 90}})
	assert.ErrorIs(t, err, studio.ErrValidation)

	_, err = svc.PatchDocument(ctx, studio.PatchDocumentRequest{ID: doc.ID, Set: map[string]any{"_rev": "x"}})
	assert.ErrorIs(t, err, studio.ErrInvalidPatch)

	_, err = svc.PatchDocument(ctx, studio.PatchDocumentRequest{ID: doc.ID, Set: map[string]any{"title.nested": "x"}})
	assert.ErrorIs(t, err, studio.ErrInvalidPatch)

	_, err = svc.PatchDocument(ctx, studio.PatchDocumentRequest{ID: "missing"})
	assert.ErrorIs(t, err, studio.ErrDocumentNotFound)
}

func TestDeleteDocument(t *testing.T) {
	svc, sink := setupTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "category", Fields: map[string]any{"title": "Verbs"}})
	require.NoError(t, err)
	post := createPost(t, svc, "Uses Category", map[string]any{"categories": []any{ref(cat.ID)}})

	err = svc.DeleteDocument(ctx, cat.ID)
	require.ErrorIs(t, err, studio.ErrDocumentReferenced)
	var rerr *studio.ReferencedError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, []string{post.ID}, rerr.ReferencedBy)

	require.NoError(t, svc.DeleteDocument(ctx, post.ID))
	require.NoError(t, svc.DeleteDocument(ctx, cat.ID))
	assert.Contains(t, sink.deleted, "category/"+cat.ID)

	_, err = svc.GetDocument(ctx, cat.ID)
	assert.ErrorIs(t, err, studio.ErrDocumentNotFound)
	assert.ErrorIs(t, svc.DeleteDocument(ctx, cat.ID), studio.ErrDocumentNotFound)
}

func TestListAndCount(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	createPost(t, svc, "One", map[string]any{"status": "published"})
	createPost(t, svc, "Two", nil)
	createPost(t, svc, "Three", map[string]any{"status": "published"})

	n, err := svc.CountDocuments(ctx, studio.DocumentFilter{Type: "post", Where: map[string]any{"status": "published"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	docs, err := svc.ListDocuments(ctx, studio.DocumentFilter{Type: "post", OrderBy: "title"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "One", docs[0].Fields["title"])
	assert.Equal(t, "Two", docs[2].Fields["title"])

	_, err = svc.ListDocuments(ctx, studio.DocumentFilter{Type: "page"})
	assert.ErrorIs(t, err, studio.ErrUnknownDocumentType)

	_, err = svc.ListDocuments(ctx, studio.DocumentFilter{Order: "sideways"})
	assert.ErrorIs(t, err, studio.ErrValidation)
}

func TestValidateDocument(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	markers, err := svc.ValidateDocument(ctx, "post", "", map[string]any{"title": "x", "status": "scheduled", "author": ref("ghost")})
	require.NoError(t, err)
	assert.True(t, markers.Has("slug"))
	assert.True(t, markers.Has("publishedAt"))
	assert.True(t, markers.Has("status"))
	assert.True(t, markers.Has("author"))

	markers, err = svc.ValidateDocument(ctx, "category", "", map[string]any{"title": "ok"})
	require.NoError(t, err)
	assert.Empty(t, markers)

	n, err := svc.CountDocuments(ctx, studio.DocumentFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAssets(t *testing.T) {
	svc, sink := setupTestService(t)
	ctx := context.Background()
	data := pngBytes(t, 4, 3)

	asset, err := svc.UploadAsset(ctx, studio.UploadAssetRequest{Reader: bytes.NewReader(data), FileName: "maria.png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.ID, "image-"))
	assert.True(t, strings.HasSuffix(asset.ID, "-4x3-png"))
	assert.Equal(t, "image/png", asset.MimeType)
	assert.Equal(t, 4, asset.Width)
	assert.Equal(t, 3, asset.Height)
	assert.Equal(t, int64(len(data)), asset.Size)
	assert.Equal(t, "http://cdn.test/"+asset.ObjectKey, asset.URL)
	assert.Equal(t, []string{asset.ID}, sink.assets)

	t.Run("SameBytesSameAsset", func(t *testing.T) {
		again, err := svc.UploadAsset(ctx, studio.UploadAssetRequest{Reader: bytes.NewReader(data), FileName: "copy.png"})
		require.NoError(t, err)
		assert.Equal(t, asset.ID, again.ID)
		assert.Len(t, sink.assets, 1)
	})

	t.Run("NotAnImage", func(t *testing.T) {
		_, err := svc.UploadAsset(ctx, studio.UploadAssetRequest{Reader: strings.NewReader("plain text")})
		assert.ErrorIs(t, err, studio.ErrInvalidAsset)
	})

	t.Run("TooLarge", func(t *testing.T) {
		small, _ := setupTestService(t, studio.WithMaxAssetSize(10))
		_, err := small.UploadAsset(ctx, studio.UploadAssetRequest{Reader: bytes.NewReader(data)})
		assert.ErrorIs(t, err, studio.ErrInvalidAsset)
	})

	t.Run("Download", func(t *testing.T) {
		rc, got, err := svc.DownloadAsset(ctx, asset.ID)
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, body)
		assert.Equal(t, asset.ObjectKey, got.ObjectKey)

		url, err := svc.GetAssetURL(ctx, asset.ID)
		require.NoError(t, err)
		assert.Contains(t, url, "dl=maria.png")
	})

	t.Run("ReferencedByAuthor", func(t *testing.T) {
		author, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "author", Fields: map[string]any{
			"name":  "Maria",
			"image": map[string]any{"_type": "image", "asset": ref(asset.ID)},
		}})
		require.NoError(t, err)

		assert.ErrorIs(t, svc.DeleteAsset(ctx, asset.ID), studio.ErrDocumentReferenced)
		require.NoError(t, svc.DeleteDocument(ctx, author.ID))
		require.NoError(t, svc.DeleteAsset(ctx, asset.ID))

		_, err = svc.GetAsset(ctx, asset.ID)
		assert.ErrorIs(t, err, studio.ErrAssetNotFound)
	})

	t.Run("MissingAssetReference", func(t *testing.T) {
		_, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "author", Fields: map[string]any{
			"name":  "Jose",
			"image": map[string]any{"_type": "image", "asset": ref("image-deadbeef-1x1-png")},
		}})
		assert.ErrorIs(t, err, studio.ErrReferenceNotFound)
	})
}

func TestPlugins(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	createPost(t, svc, "First", nil)
	createPost(t, svc, "Second", map[string]any{"status": "published"})

	items, err := svc.Structure(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, studio.StructureItem{Type: "post", Title: "Post", Count: 2}, items[2])

	summaries, err := svc.StructureList(ctx, "post", 10, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	res, err := svc.Query(ctx, studio.Query{
		Type:       "post",
		Where:      map[string]any{"status": "published"},
		Projection: []string{"title"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, studio.DefaultVisionAPIVersion, res.APIVersion)
	require.Len(t, res.Result, 1)
	assert.Equal(t, "Second", res.Result[0]["title"])
	assert.Contains(t, res.Result[0], "_id")
	assert.NotContains(t, res.Result[0], "status")

	bare, _ := setupTestService(t, studio.WithStudioConfig(studio.Config{ProjectID: "p", Dataset: "d"}))
	_, err = bare.Structure(ctx)
	assert.ErrorIs(t, err, studio.ErrPluginDisabled)
	_, err = bare.Query(ctx, studio.Query{})
	assert.ErrorIs(t, err, studio.ErrPluginDisabled)
}

func TestPublishedAt_CapturedOnceAtCreation(t *testing.T) {
	now := fixedNow
	svc, _ := setupTestService(t, studio.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	doc := createPost(t, svc, "Captured Once", nil)
	created := doc.Fields["publishedAt"]
	require.Equal(t, "2024-06-01T09:00:00Z", created)

	now = fixedNow.Add(72 * time.Hour)

	patched, err := svc.PatchDocument(ctx, studio.PatchDocumentRequest{ID: doc.ID, Set: map[string]any{"excerpt": "Edited later"}})
	require.NoError(t, err)
	assert.Equal(t, created, patched.Fields["publishedAt"])
	assert.Equal(t, fixedNow, patched.CreatedAt)
	assert.Equal(t, now, patched.UpdatedAt)

	// a full replace without publishedAt is rejected, never refilled
	_, err = svc.UpdateDocument(ctx, studio.UpdateDocumentRequest{ID: doc.ID, Fields: map[string]any{
		"title": "Captured Once", "slug": slug("captured-once"),
	}})
	var verr *studio.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Markers.Has("publishedAt"))

	stored, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored.Fields["publishedAt"])
	assert.Equal(t, patched.Rev, stored.Rev)
}

func TestConfig_SchemaIsReadOnly(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	post, ok := svc.Config().Schema.Types.Get("post")
	require.True(t, ok)
	excerpt, ok := post.Field("excerpt")
	require.True(t, ok)
	excerpt.Rule = schema.NewRule()
	for _, typ := range svc.Config().Schema.Types.Types() {
		typ.Fields = nil
	}

	markers, err := svc.ValidateDocument(ctx, "post", "", map[string]any{
		"title": "Long Excerpt", "slug": slug("long-excerpt"), "excerpt": strings.Repeat("a", 201),
	})
	require.NoError(t, err)
	assert.True(t, markers.Has("excerpt"))
}

func TestGenerateSlug_SuffixRespectsMaxLength(t *testing.T) {
	note := func(maxLength int) *schema.Registry {
		return schema.MustRegistry(schema.DefineDocument(schema.Type{Name: "note", Fields: []schema.Field{
			{Name: "title", Type: schema.TypeString},
			{Name: "slug", Type: schema.TypeSlug, Options: schema.Options{Source: "title", MaxLength: maxLength}},
		}}))
	}
	ctx := context.Background()

	tests := []struct {
		name      string
		maxLength int
		want      string
		wantErr   bool
	}{
		{name: "RoomForOneCharacter", maxLength: 3, want: "a-2"},
		{name: "NoRoomForSuffix", maxLength: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupTestService(t, studio.WithStudioConfig(studio.Config{Schema: studio.SchemaConfig{Types: note(tt.maxLength)}}))
			title := map[string]any{"title": "Abcdef"}

			first, err := svc.GenerateSlug(ctx, studio.GenerateSlugRequest{Type: "note", Field: "slug", Fields: title})
			require.NoError(t, err)
			require.Len(t, first, tt.maxLength)
			_, err = svc.CreateDocument(ctx, studio.CreateDocumentRequest{Type: "note", Fields: map[string]any{"title": "Abcdef", "slug": slug(first)}})
			require.NoError(t, err)

			got, err := svc.GenerateSlug(ctx, studio.GenerateSlugRequest{Type: "note", Field: "slug", Fields: title})
			if tt.wantErr {
				assert.ErrorIs(t, err, studio.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), tt.maxLength)
		})
	}
}
