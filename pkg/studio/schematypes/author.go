package schematypes

import "github.com/tendant/content-studio/pkg/studio/schema"

// Author represents an author who can be assigned to blog posts.
func Author() *schema.Type {
	return schema.DefineDocument(schema.Type{
		Name:  "author",
		Title: "Author",
		Fields: []schema.Field{
			{
				Name:        "name",
				Title:       "Name",
				Type:        schema.TypeString,
				Description: "Full name of the author",
				Rule:        schema.NewRule().Required(),
			},
			{
				Name:        "image",
				Title:       "Profile Image",
				Type:        schema.TypeImage,
				Description: "A photo or avatar for the author",
			},
			{
				Name:        "bio",
				Title:       "Bio",
				Type:        schema.TypeText,
				Description: "A short biography of the author",
			},
		},
	})
}
