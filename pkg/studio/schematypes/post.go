package schematypes

import "github.com/tendant/content-studio/pkg/studio/schema"

// Post status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ExcerptMaxLength bounds the post excerpt, in characters.
const ExcerptMaxLength = 200

// Post is a blog post.
func Post() *schema.Type {
	return schema.DefineDocument(schema.Type{
		Name:  "post",
		Title: "Post",
		Fields: []schema.Field{
			{
				Name:        "title",
				Title:       "Title",
				Type:        schema.TypeString,
				Description: "The main title of the blog post. This will be displayed prominently and used in URLs.",
				Rule:        schema.NewRule().Required(),
			},
			{
				Name:        "slug",
				Title:       "Slug",
				Type:        schema.TypeSlug,
				Description: "The URL-friendly version of the title. Used in the post URL (e.g., /posts/my-awesome-post)",
				Options:     schema.Options{Source: "title"},
				Rule:        schema.NewRule().Required(),
			},
			{
				Name:         "publishedAt",
				Title:        "Published At",
				Type:         schema.TypeDatetime,
				Description:  "The date and time when the post was or will be published. Used for sorting and display.",
				InitialValue: schema.CreationTime(),
				Rule:         schema.NewRule().Required(),
			},
			{
				Name:        "image",
				Title:       "Featured Image",
				Type:        schema.TypeImage,
				Description: "The main image associated with the post. Used in post previews, social sharing, and as the header image.",
			},
			{
				Name:        "body",
				Title:       "Content",
				Type:        schema.TypeArray,
				Description: "The main content of the post. Supports rich text formatting, links, and other content blocks.",
				Of:          []schema.Field{{Type: schema.TypeBlock}},
			},
			{
				Name:        "excerpt",
				Title:       "Excerpt",
				Type:        schema.TypeText,
				Description: "A short summary of the post for previews and SEO",
				Rule:        schema.NewRule().Max(ExcerptMaxLength),
			},
			{
				Name:        "categories",
				Title:       "Categories",
				Type:        schema.TypeArray,
				Description: "Broad content categories this post belongs to (e.g., Technology, Culture)",
				Of:          []schema.Field{{Type: schema.TypeReference, To: []string{"category"}}},
				Rule:        schema.NewRule().Unique(),
			},
			{
				Name:        "tags",
				Title:       "Tags",
				Type:        schema.TypeArray,
				Description: "Specific keywords or topics (e.g., grammar, pronunciation, beginner)",
				Of:          []schema.Field{{Type: schema.TypeString}},
				Options:     schema.Options{Layout: schema.LayoutTags},
				Rule:        schema.NewRule().Unique(),
			},
			{
				Name:        "author",
				Title:       "Author",
				Type:        schema.TypeReference,
				Description: "The author of this post",
				To:          []string{"author"},
			},
			{
				Name:        "readingTime",
				Title:       "Reading Time",
				Type:        schema.TypeNumber,
				Description: "Estimated reading time in minutes",
				Rule:        schema.NewRule().Min(1).Max(60),
			},
			{
				Name:  "seo",
				Title: "SEO",
				Type:  schema.TypeObject,
				Fields: []schema.Field{
					{
						Name:        "metaTitle",
						Title:       "Meta Title",
						Type:        schema.TypeString,
						Description: "Title used for search engines and browsers",
					},
					{
						Name:        "metaDescription",
						Title:       "Meta Description",
						Type:        schema.TypeText,
						Description: "Description for search engines and social sharing",
					},
					{
						Name:        "keywords",
						Title:       "Keywords",
						Type:        schema.TypeArray,
						Description: "Keywords for search engines",
						Of:          []schema.Field{{Type: schema.TypeString}},
					},
				},
			},
			{
				Name:         "featured",
				Title:        "Featured Post",
				Type:         schema.TypeBoolean,
				Description:  "Whether this post should be featured on the homepage",
				InitialValue: schema.Static(false),
			},
			{
				Name:  "status",
				Title: "Status",
				Type:  schema.TypeString,
				Options: schema.Options{
					List: []schema.ListOption{
						{Title: "Draft", Value: StatusDraft},
						{Title: "Published", Value: StatusPublished},
						{Title: "Archived", Value: StatusArchived},
					},
				},
				InitialValue: schema.Static(StatusDraft),
				Rule:         schema.NewRule().Required(),
			},
		},
	})
}
