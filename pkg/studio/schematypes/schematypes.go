// Package schematypes declares the studio's document types: author, category
// and post.
package schematypes

import "github.com/tendant/content-studio/pkg/studio/schema"

// Types returns a registry of every document type, in the order the studio
// lists them.
func Types() *schema.Registry {
	return schema.MustRegistry(Author(), Category(), Post())
}
