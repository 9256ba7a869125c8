package presets

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-studio/pkg/studio"
)

func TestNewDevelopment(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dev-data")
	svc, cleanup, err := NewDevelopment(WithDevStorage(dir), WithDevURLPrefix("http://localhost:9999/files"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	asset, err := svc.UploadAsset(context.Background(), studio.UploadAssetRequest{
		Reader:   &buf,
		FileName: "dot.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/files/"+asset.ObjectKey, asset.URL)

	_, err = os.Stat(filepath.Join(dir, asset.ObjectKey))
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "storage directory should be removed after cleanup")
}

func TestNewTesting_Fixtures(t *testing.T) {
	svc := NewTesting(t, WithTestFixtures())
	ctx := context.Background()

	post, err := svc.GetDocument(ctx, "post-mga-panghalip")
	require.NoError(t, err)
	assert.Equal(t, "published", post.Fields["status"])
	assert.NotEmpty(t, post.Fields["publishedAt"])

	n, err := svc.CountDocuments(ctx, studio.DocumentFilter{Type: "category"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// the post holds references to the author and both categories
	err = svc.DeleteDocument(ctx, "author-maria-santos")
	assert.ErrorIs(t, err, studio.ErrDocumentReferenced)
	err = svc.DeleteDocument(ctx, "category-grammar")
	assert.ErrorIs(t, err, studio.ErrDocumentReferenced)
}

func TestNewTesting_Empty(t *testing.T) {
	svc := NewTesting(t, WithTestStudioConfig(studio.DefineConfig(studio.Config{ProjectID: "p1", Dataset: "test"})))

	assert.Equal(t, "p1", svc.Config().ProjectID)
	assert.False(t, svc.Config().HasPlugin(studio.PluginVision))
	n, err := svc.CountDocuments(context.Background(), studio.DocumentFilter{Type: "post"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewProduction_RejectsMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory")
	_, _, err := NewProduction(context.Background(), nil)
	assert.ErrorContains(t, err, "memory not allowed")

	t.Setenv("DATABASE_URL", "postgres://studio@localhost/studio")
	t.Setenv("STORAGE_URL", "memory://")
	_, _, err = NewProduction(context.Background(), nil)
	assert.ErrorContains(t, err, "persistent storage")
}
