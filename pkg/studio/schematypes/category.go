package schematypes

import "github.com/tendant/content-studio/pkg/studio/schema"

// Category represents a broad content category for organizing posts.
func Category() *schema.Type {
	return schema.DefineDocument(schema.Type{
		Name:  "category",
		Title: "Category",
		Fields: []schema.Field{
			{
				Name:        "title",
				Title:       "Title",
				Type:        schema.TypeString,
				Description: "The name of the category (e.g., Technology, Culture)",
				Rule:        schema.NewRule().Required(),
			},
			{
				Name:        "description",
				Title:       "Description",
				Type:        schema.TypeText,
				Description: "A short description of what this category is about",
			},
		},
	})
}
