package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-studio/pkg/studio/schema"
)

func TestNewRegistry(t *testing.T) {
	person := func() *schema.Type {
		return schema.DefineDocument(schema.Type{
			Name:   "person",
			Fields: []schema.Field{{Name: "name", Type: schema.TypeString}},
		})
	}

	tests := []struct {
		name    string
		types   []*schema.Type
		wantErr string
	}{
		{
			name:  "valid",
			types: []*schema.Type{person()},
		},
		{
			name:    "duplicate type",
			types:   []*schema.Type{person(), person()},
			wantErr: "duplicate type name",
		},
		{
			name: "duplicate field",
			types: []*schema.Type{schema.DefineDocument(schema.Type{
				Name: "x",
				Fields: []schema.Field{
					{Name: "a", Type: schema.TypeString},
					{Name: "a", Type: schema.TypeText},
				},
			})},
			wantErr: "duplicate field x.a",
		},
		{
			name: "unknown field type",
			types: []*schema.Type{schema.DefineDocument(schema.Type{
				Name:   "x",
				Fields: []schema.Field{{Name: "a", Type: "geopoint"}},
			})},
			wantErr: "unknown type",
		},
		{
			name: "reference to unknown type",
			types: []*schema.Type{schema.DefineDocument(schema.Type{
				Name:   "x",
				Fields: []schema.Field{{Name: "owner", Type: schema.TypeReference, To: []string{"person"}}},
			})},
			wantErr: "targets unknown type",
		},
		{
			name: "array without members",
			types: []*schema.Type{schema.DefineDocument(schema.Type{
				Name:   "x",
				Fields: []schema.Field{{Name: "items", Type: schema.TypeArray}},
			})},
			wantErr: "no member types",
		},
		{
			name: "slug with unknown source",
			types: []*schema.Type{schema.DefineDocument(schema.Type{
				Name:   "x",
				Fields: []schema.Field{{Name: "slug", Type: schema.TypeSlug, Options: schema.Options{Source: "title"}}},
			})},
			wantErr: "derives from unknown field",
		},
		{
			name: "initial value outside list",
			types: []*schema.Type{schema.DefineDocument(schema.Type{
				Name: "x",
				Fields: []schema.Field{{
					Name:         "state",
					Type:         schema.TypeString,
					Options:      schema.Options{List: []schema.ListOption{{Value: "on"}, {Value: "off"}}},
					InitialValue: schema.Static("maybe"),
				}},
			})},
			wantErr: "initial value",
		},
		{
			name:    "non document kind",
			types:   []*schema.Type{{Name: "x", Kind: "object"}},
			wantErr: "expected \"document\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := schema.NewRegistry(tt.types...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, len(tt.types), r.Len())
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, schema.ErrInvalidSchema)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	a := schema.DefineDocument(schema.Type{Name: "a", Fields: []schema.Field{{Name: "t", Type: schema.TypeString}}})
	b := schema.DefineDocument(schema.Type{Name: "b", Fields: []schema.Field{{Name: "a", Type: schema.TypeReference, To: []string{"a"}}}})
	r := schema.MustRegistry(a, b)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	got, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, b.Fields, got.Fields)
	assert.NotSame(t, b, got)
	_, ok = r.Get("c")
	assert.False(t, ok)

	types := r.Types()
	types[0] = nil
	assert.NotNil(t, r.Types()[0], "Types must return a copy")
}

func TestRegistry_HandsOutCopies(t *testing.T) {
	post := schema.DefineDocument(schema.Type{Name: "post", Fields: []schema.Field{
		{Name: "excerpt", Type: schema.TypeText, Rule: schema.NewRule().Max(5)},
		{Name: "tags", Type: schema.TypeArray, Of: []schema.Field{{Type: schema.TypeString}}, Rule: schema.NewRule().Unique()},
	}})
	r := schema.MustRegistry(post)
	tooLong := map[string]any{"excerpt": "longer than five"}

	// the declaration used to build the registry
	post.Fields[0].Rule = schema.NewRule()

	// a type returned by Get
	got, ok := r.Get("post")
	require.True(t, ok)
	f, ok := got.Field("excerpt")
	require.True(t, ok)
	f.Rule = schema.NewRule()
	got.Fields[1].Of[0].Type = schema.TypeNumber

	// a type returned by Types, including the bounds behind its rule
	listed := r.Types()[0]
	_, max := listed.Fields[0].Rule.Bounds()
	*max = 1000

	fresh, ok := r.Get("post")
	require.True(t, ok)
	assert.True(t, fresh.Validate(tooLong).Has("excerpt"))
	assert.Equal(t, schema.TypeString, fresh.Fields[1].Of[0].Type)
	_, max = fresh.Fields[0].Rule.Bounds()
	require.NotNil(t, max)
	assert.Equal(t, 5.0, *max)
}

func TestMustRegistry_Panics(t *testing.T) {
	assert.Panics(t, func() {
		schema.MustRegistry(schema.DefineDocument(schema.Type{Name: ""}))
	})
}
