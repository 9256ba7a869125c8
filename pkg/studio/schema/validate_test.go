package schema_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-studio/pkg/studio/schema"
)

func articleType() *schema.Type {
	return schema.DefineDocument(schema.Type{
		Name: "article",
		Fields: []schema.Field{
			{Name: "headline", Type: schema.TypeString, Rule: schema.NewRule().Required().Max(10)},
			{Name: "summary", Type: schema.TypeText, Rule: schema.NewRule().Min(3)},
			{Name: "score", Type: schema.TypeNumber, Rule: schema.NewRule().Min(0).Max(5)},
			{Name: "pinned", Type: schema.TypeBoolean},
			{Name: "postedAt", Type: schema.TypeDatetime},
			{Name: "slug", Type: schema.TypeSlug, Options: schema.Options{Source: "headline"}},
			{Name: "cover", Type: schema.TypeImage},
			{Name: "kind", Type: schema.TypeString, Options: schema.Options{List: []schema.ListOption{{Value: "news"}, {Value: "opinion"}}}},
			{Name: "related", Type: schema.TypeArray, Of: []schema.Field{{Type: schema.TypeReference, To: []string{"article"}}}, Rule: schema.NewRule().Unique().Max(2)},
			{Name: "labels", Type: schema.TypeArray, Of: []schema.Field{{Type: schema.TypeString}}, Rule: schema.NewRule().Unique()},
			{Name: "meta", Type: schema.TypeObject, Fields: []schema.Field{
				{Name: "note", Type: schema.TypeString, Rule: schema.NewRule().Max(4)},
			}},
		},
	})
}

func ref(id string) map[string]any {
	return map[string]any{"_type": "reference", "_ref": id}
}

func TestValidate_Required(t *testing.T) {
	typ := articleType()

	tests := []struct {
		name   string
		values map[string]any
		valid  bool
	}{
		{name: "missing", values: map[string]any{}, valid: false},
		{name: "null", values: map[string]any{"headline": nil}, valid: false},
		{name: "empty string", values: map[string]any{"headline": ""}, valid: false},
		{name: "present", values: map[string]any{"headline": "Hello"}, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markers := typ.Validate(tt.values)
			if tt.valid {
				assert.Empty(t, markers)
			} else {
				require.NotEmpty(t, markers)
				assert.True(t, markers.Has("headline"))
				assert.Equal(t, "Required", markers[0].Message)
			}
		})
	}
}

func TestValidate_StringLengthCountsRunes(t *testing.T) {
	typ := articleType()

	assert.Empty(t, typ.Validate(map[string]any{"headline": "ñññññññññå"}))
	markers := typ.Validate(map[string]any{"headline": "ñññññññññåå"})
	require.Len(t, markers, 1)
	assert.Equal(t, "headline", markers[0].Path)
	assert.Contains(t, markers[0].Message, "at most 10")

	markers = typ.Validate(map[string]any{"headline": "ok", "summary": "ab"})
	assert.True(t, markers.Has("summary"))
}

func TestValidate_NumberBounds(t *testing.T) {
	typ := articleType()

	for _, n := range []any{0, 5, 2.5, int64(3), float64(0)} {
		assert.Empty(t, typ.Validate(map[string]any{"headline": "ok", "score": n}), "score %v", n)
	}
	for _, n := range []any{-1, 5.01, 6} {
		assert.True(t, typ.Validate(map[string]any{"headline": "ok", "score": n}).Has("score"), "score %v", n)
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	typ := articleType()

	tests := map[string]any{
		"score":    "three",
		"pinned":   "yes",
		"summary":  42.0,
		"postedAt": "yesterday",
		"slug":     "not-an-object",
		"cover":    map[string]any{"_type": "image", "asset": "img"},
		"related":  "nope",
		"meta":     []any{"x"},
	}
	for field, value := range tests {
		t.Run(field, func(t *testing.T) {
			markers := typ.Validate(map[string]any{"headline": "ok", field: value})
			require.NotEmpty(t, markers)
			assert.True(t, strings.HasPrefix(markers[0].Path, field), "path %q", markers[0].Path)
		})
	}
}

func TestValidate_Datetime(t *testing.T) {
	typ := articleType()
	assert.Empty(t, typ.Validate(map[string]any{"headline": "ok", "postedAt": "2024-05-01T10:00:00Z"}))
	assert.Empty(t, typ.Validate(map[string]any{"headline": "ok", "postedAt": "2024-05-01T10:00:00.123456789+08:00"}))
	assert.NotEmpty(t, typ.Validate(map[string]any{"headline": "ok", "postedAt": "2024-05-01"}))
}

func TestValidate_ListOptions(t *testing.T) {
	typ := articleType()
	assert.Empty(t, typ.Validate(map[string]any{"headline": "ok", "kind": "news"}))
	markers := typ.Validate(map[string]any{"headline": "ok", "kind": "gossip"})
	require.Len(t, markers, 1)
	assert.Contains(t, markers[0].Message, "allowed values")
}

func TestValidate_ArrayUniqueness(t *testing.T) {
	typ := articleType()

	t.Run("distinct references", func(t *testing.T) {
		assert.Empty(t, typ.Validate(map[string]any{"headline": "ok", "related": []any{ref("a"), ref("b")}}))
	})

	t.Run("duplicate references with different keys", func(t *testing.T) {
		a1 := ref("a")
		a1["_key"] = "k1"
		a2 := ref("a")
		a2["_key"] = "k2"
		markers := typ.Validate(map[string]any{"headline": "ok", "related": []any{a1, a2}})
		require.Len(t, markers, 1)
		assert.Equal(t, "related[1]", markers[0].Path)
	})

	t.Run("duplicate strings", func(t *testing.T) {
		markers := typ.Validate(map[string]any{"headline": "ok", "labels": []any{"go", "rust", "go"}})
		require.Len(t, markers, 1)
		assert.Equal(t, "labels[2]", markers[0].Path)
	})

	t.Run("array max", func(t *testing.T) {
		markers := typ.Validate(map[string]any{"headline": "ok", "related": []any{ref("a"), ref("b"), ref("c")}})
		assert.True(t, markers.Has("related"))
	})

	t.Run("wrong member type", func(t *testing.T) {
		markers := typ.Validate(map[string]any{"headline": "ok", "labels": []any{"go", 7.0}})
		assert.True(t, markers.Has("labels[1]"))
	})
}

func TestValidate_NestedObjectAndUnknownFields(t *testing.T) {
	typ := articleType()

	markers := typ.Validate(map[string]any{"headline": "ok", "meta": map[string]any{"note": "too long"}})
	assert.True(t, markers.Has("meta.note"))

	markers = typ.Validate(map[string]any{"headline": "ok", "meta": map[string]any{"other": "x"}})
	assert.True(t, markers.Has("meta.other"))

	markers = typ.Validate(map[string]any{"headline": "ok", "bogus": 1})
	assert.True(t, markers.Has("bogus"))

	assert.Empty(t, typ.Validate(map[string]any{"headline": "ok", "_id": "x", "_type": "article"}))
}

func TestValidate_ImageAndSlug(t *testing.T) {
	typ := articleType()
	values := map[string]any{
		"headline": "ok",
		"slug":     map[string]any{"_type": "slug", "current": "ok"},
		"cover":    map[string]any{"_type": "image", "asset": map[string]any{"_type": "reference", "_ref": "image-abc-1x1-png"}},
	}
	assert.Empty(t, typ.Validate(values))
}

func TestMarkers_Error(t *testing.T) {
	markers := schema.Markers{
		{Path: "a", Level: schema.LevelError, Message: "Required"},
		{Path: "b", Level: schema.LevelError, Message: "Too long"},
	}
	assert.Equal(t, "a: Required; b: Too long", markers.Error())
	assert.Equal(t, []string{"a", "b"}, markers.Paths())
}

func TestReferencesAndAssets(t *testing.T) {
	typ := articleType()
	values := map[string]any{
		"headline": "ok",
		"related":  []any{ref("a"), ref("b")},
		"cover":    map[string]any{"asset": map[string]any{"_ref": "image-1"}},
	}

	refs := typ.References(values)
	require.Len(t, refs, 2)
	assert.Equal(t, "related[0]", refs[0].Path)
	assert.Equal(t, "a", refs[0].ID)
	assert.Equal(t, []string{"article"}, refs[0].Targets)

	assets := typ.AssetReferences(values)
	require.Len(t, assets, 1)
	assert.Equal(t, "image-1", assets[0].AssetID)
	assert.Equal(t, "cover.asset", assets[0].Path)
}

func TestInitialValues(t *testing.T) {
	typ := schema.DefineDocument(schema.Type{
		Name: "note",
		Fields: []schema.Field{
			{Name: "createdOn", Type: schema.TypeDatetime, InitialValue: schema.CreationTime()},
			{Name: "done", Type: schema.TypeBoolean, InitialValue: schema.Static(false)},
			{Name: "text", Type: schema.TypeText},
		},
	})

	now := time.Date(2024, 3, 1, 8, 30, 0, 0, time.FixedZone("PHT", 8*3600))
	values := typ.InitialValues(now)
	assert.Equal(t, "2024-03-01T00:30:00Z", values["createdOn"])
	assert.Equal(t, false, values["done"])
	assert.NotContains(t, values, "text")
}
