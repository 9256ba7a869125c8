package presets

import (
	"context"
	"fmt"

	"github.com/tendant/content-studio/pkg/studio"
)

// Fixtures holds the documents created by SeedFixtures.
type Fixtures struct {
	Author     *studio.Document
	Categories []*studio.Document
	Post       *studio.Document
}

// SeedFixtures creates one author, two categories and a published post
// referencing all of them.
func SeedFixtures(ctx context.Context, svc studio.Service) (*Fixtures, error) {
	f := &Fixtures{}
	var err error

	f.Author, err = svc.CreateDocument(ctx, studio.CreateDocumentRequest{
		Type:   "author",
		ID:     "author-maria-santos",
		Fields: map[string]any{"name": "Maria Santos", "bio": "Teaches Tagalog to beginners."},
	})
	if err != nil {
		return nil, fmt.Errorf("seed author: %w", err)
	}

	for _, c := range []struct{ id, title, description string }{
		{"category-grammar", "Grammar", "Sentence structure and verb focus."},
		{"category-vocabulary", "Vocabulary", "Everyday words and phrases."},
	} {
		doc, err := svc.CreateDocument(ctx, studio.CreateDocumentRequest{
			Type:   "category",
			ID:     c.id,
			Fields: map[string]any{"title": c.title, "description": c.description},
		})
		if err != nil {
			return nil, fmt.Errorf("seed category %s: %w", c.id, err)
		}
		f.Categories = append(f.Categories, doc)
	}

	categories := make([]any, len(f.Categories))
	for i, c := range f.Categories {
		categories[i] = map[string]any{"_type": "reference", "_ref": c.ID}
	}
	f.Post, err = svc.CreateDocument(ctx, studio.CreateDocumentRequest{
		Type: "post",
		ID:   "post-mga-panghalip",
		Fields: map[string]any{
			"title":       "Mga Panghalip",
			"slug":        map[string]any{"_type": "slug", "current": "mga-panghalip"},
			"excerpt":     "Ako, ikaw, siya: the personal pronouns.",
			"status":      "published",
			"featured":    true,
			"readingTime": 5,
			"tags":        []any{"pronouns", "beginner"},
			"categories":  categories,
			"author":      map[string]any{"_type": "reference", "_ref": f.Author.ID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("seed post: %w", err)
	}
	return f, nil
}
