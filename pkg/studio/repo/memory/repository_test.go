package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/repo/memory"
)

func newDoc(id, typ string, created time.Time, fields map[string]any) *studio.Document {
	return &studio.Document{ID: id, Type: typ, Rev: "r1", CreatedAt: created, UpdatedAt: created, Fields: fields}
}

func TestMemoryRepository_DocumentOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("CreateAndGet", func(t *testing.T) {
		doc := newDoc("a1", "author", now, map[string]any{"name": "Maria"})
		require.NoError(t, repo.CreateDocument(ctx, doc, studio.Links{}))

		got, err := repo.GetDocument(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "Maria", got.Fields["name"])

		// stored copy is isolated from the caller
		doc.Fields["name"] = "changed"
		got.Fields["name"] = "changed too"
		again, err := repo.GetDocument(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "Maria", again.Fields["name"])
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		err := repo.CreateDocument(ctx, newDoc("a1", "author", now, nil), studio.Links{})
		assert.ErrorIs(t, err, studio.ErrDocumentExists)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetDocument(ctx, "missing")
		assert.ErrorIs(t, err, studio.ErrDocumentNotFound)
	})

	t.Run("UpdateWithRevision", func(t *testing.T) {
		next := newDoc("a1", "author", now, map[string]any{"name": "Jose"})
		next.Rev = "r2"
		require.NoError(t, repo.UpdateDocument(ctx, next, "r1", studio.Links{}))

		stale := newDoc("a1", "author", now, map[string]any{"name": "Stale"})
		stale.Rev = "r3"
		assert.ErrorIs(t, repo.UpdateDocument(ctx, stale, "r1", studio.Links{}), studio.ErrRevisionConflict)

		got, err := repo.GetDocument(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "r2", got.Rev)
		assert.Equal(t, "Jose", got.Fields["name"])
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := repo.UpdateDocument(ctx, newDoc("nope", "author", now, nil), "r1", studio.Links{})
		assert.ErrorIs(t, err, studio.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteDocument(ctx, "a1"))
		assert.ErrorIs(t, repo.DeleteDocument(ctx, "a1"), studio.ErrDocumentNotFound)
	})
}

func TestMemoryRepository_ListAndCount(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		status := "draft"
		if i%2 == 0 {
			status = "published"
		}
		doc := newDoc(fmt.Sprintf("p%d", i), "post", base.Add(time.Duration(i)*time.Hour), map[string]any{
			"title":       fmt.Sprintf("Post %d", i),
			"status":      status,
			"readingTime": float64(10 - i),
			"slug":        map[string]any{"_type": "slug", "current": fmt.Sprintf("post-%d", i)},
		})
		require.NoError(t, repo.CreateDocument(ctx, doc, studio.Links{}))
	}
	require.NoError(t, repo.CreateDocument(ctx, newDoc("c1", "category", base, map[string]any{"title": "Grammar"}), studio.Links{}))

	t.Run("ByType", func(t *testing.T) {
		n, err := repo.CountDocuments(ctx, studio.DocumentFilter{Type: "post"})
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = repo.CountDocuments(ctx, studio.DocumentFilter{})
		require.NoError(t, err)
		assert.Equal(t, 6, n)
	})

	t.Run("WhereEquality", func(t *testing.T) {
		docs, err := repo.ListDocuments(ctx, studio.DocumentFilter{Type: "post", Where: map[string]any{"status": "published"}})
		require.NoError(t, err)
		assert.Len(t, docs, 3)

		docs, err = repo.ListDocuments(ctx, studio.DocumentFilter{Where: map[string]any{"slug.current": "post-3"}})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "p3", docs[0].ID)
	})

	t.Run("DefaultOrderIsCreatedAt", func(t *testing.T) {
		docs, err := repo.ListDocuments(ctx, studio.DocumentFilter{Type: "post"})
		require.NoError(t, err)
		require.Len(t, docs, 5)
		assert.Equal(t, "p0", docs[0].ID)
		assert.Equal(t, "p4", docs[4].ID)
	})

	t.Run("OrderByNumberDesc", func(t *testing.T) {
		docs, err := repo.ListDocuments(ctx, studio.DocumentFilter{Type: "post", OrderBy: "readingTime", Order: studio.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, "p0", docs[0].ID)
	})

	t.Run("Pagination", func(t *testing.T) {
		docs, err := repo.ListDocuments(ctx, studio.DocumentFilter{Type: "post", Limit: 2, Offset: 3})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "p3", docs[0].ID)

		docs, err = repo.ListDocuments(ctx, studio.DocumentFilter{Type: "post", Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("InvalidOrderField", func(t *testing.T) {
		_, err := repo.ListDocuments(ctx, studio.DocumentFilter{OrderBy: "title; drop"})
		assert.Error(t, err)
	})
}

func TestMemoryRepository_References(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.CreateAsset(ctx, &studio.Asset{ID: "image-x"}))
	require.NoError(t, repo.CreateDocument(ctx, newDoc("c1", "category", now, nil), studio.Links{}))
	require.NoError(t, repo.CreateDocument(ctx, newDoc("p1", "post", now, nil), studio.Links{Refs: []string{"c1", "image-x"}}))
	require.NoError(t, repo.CreateDocument(ctx, newDoc("p2", "post", now, nil), studio.Links{Refs: []string{"c1", "p2"}}))

	ids, err := repo.ListReferencing(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	ids, err = repo.ListReferencing(ctx, "image-x")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	// self references do not count
	ids, err = repo.ListReferencing(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, ids)

	next := newDoc("p1", "post", now, nil)
	next.Rev = "r2"
	require.NoError(t, repo.UpdateDocument(ctx, next, "r1", studio.Links{}))
	require.NoError(t, repo.DeleteDocument(ctx, "p2"))

	ids, err = repo.ListReferencing(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryRepository_LinkConstraints(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.CreateAsset(ctx, &studio.Asset{ID: "image-x"}))
	require.NoError(t, repo.CreateDocument(ctx, newDoc("c1", "category", now, nil), studio.Links{}))

	t.Run("MissingReference", func(t *testing.T) {
		err := repo.CreateDocument(ctx, newDoc("p1", "post", now, nil), studio.Links{Refs: []string{"c1", "gone"}})
		var missing *studio.MissingReferenceError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "gone", missing.ID)
		assert.ErrorIs(t, err, studio.ErrReferenceNotFound)

		_, err = repo.GetDocument(ctx, "p1")
		assert.ErrorIs(t, err, studio.ErrDocumentNotFound)
	})

	t.Run("DeleteReferenced", func(t *testing.T) {
		require.NoError(t, repo.CreateDocument(ctx, newDoc("p2", "post", now, nil), studio.Links{Refs: []string{"c1", "image-x"}}))

		err := repo.DeleteDocument(ctx, "c1")
		var referenced *studio.ReferencedError
		require.ErrorAs(t, err, &referenced)
		assert.Equal(t, []string{"p2"}, referenced.ReferencedBy)
		assert.ErrorIs(t, repo.DeleteAsset(ctx, "image-x"), studio.ErrDocumentReferenced)

		// dropping the reference frees the target
		next := newDoc("p2", "post", now, nil)
		next.Rev = "r2"
		require.NoError(t, repo.UpdateDocument(ctx, next, "r1", studio.Links{}))
		require.NoError(t, repo.DeleteDocument(ctx, "c1"))
		require.NoError(t, repo.DeleteAsset(ctx, "image-x"))
	})

	t.Run("UpdateToMissingReference", func(t *testing.T) {
		next := newDoc("p2", "post", now, nil)
		next.Rev = "r3"
		err := repo.UpdateDocument(ctx, next, "r2", studio.Links{Refs: []string{"c1"}})
		assert.ErrorIs(t, err, studio.ErrReferenceNotFound)

		stored, err := repo.GetDocument(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, "r2", stored.Rev)
	})

	t.Run("UniqueValues", func(t *testing.T) {
		slug := map[string]any{"slug": map[string]any{"current": "hello"}}
		unique := studio.Links{Unique: map[string]any{"slug.current": "hello"}}
		require.NoError(t, repo.CreateDocument(ctx, newDoc("s1", "post", now, slug), unique))

		err := repo.CreateDocument(ctx, newDoc("s2", "post", now, slug), unique)
		var dup *studio.DuplicateValueError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "s1", dup.HeldBy)
		assert.Equal(t, "slug.current", dup.Field)

		// same value in another type, and the holder rewriting itself
		require.NoError(t, repo.CreateDocument(ctx, newDoc("a1", "author", now, slug), unique))
		next := newDoc("s1", "post", now, slug)
		next.Rev = "r2"
		require.NoError(t, repo.UpdateDocument(ctx, next, "r1", unique))
	})
}

func TestMemoryRepository_Assets(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	asset := &studio.Asset{ID: "image-abc-1x1-png", Type: studio.AssetTypeImage, URL: "http://transient"}
	require.NoError(t, repo.CreateAsset(ctx, asset))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, got.URL)

	require.NoError(t, repo.DeleteAsset(ctx, asset.ID))
	_, err = repo.GetAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, studio.ErrAssetNotFound)
	assert.ErrorIs(t, repo.DeleteAsset(ctx, asset.ID), studio.ErrAssetNotFound)
}

func TestMemoryRepository_Concurrent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.CreateDocument(ctx, newDoc(fmt.Sprintf("d%d", i), "author", time.Now(), map[string]any{"name": "x"}), studio.Links{})
			_, _ = repo.ListDocuments(ctx, studio.DocumentFilter{Type: "author"})
		}(i)
	}
	wg.Wait()

	n, err := repo.CountDocuments(ctx, studio.DocumentFilter{Type: "author"})
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}
