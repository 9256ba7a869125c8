package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSlugMaxLength caps slugs when a field sets no MaxLength.
const DefaultSlugMaxLength = 200

// Slugify lowercases s, folds accented letters to ASCII and joins the
// remaining alphanumeric runs with single hyphens. The result is cut to
// maxLen runes without leaving a trailing hyphen; maxLen <= 0 selects
// DefaultSlugMaxLength.
func Slugify(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSlugMaxLength
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingHyphen := false
	n := 0
	for _, r := range strings.ToLower(folded) {
		if n >= maxLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				if n+1 >= maxLen {
					break
				}
				b.WriteByte('-')
				n++
			}
			pendingHyphen = false
			b.WriteRune(r)
			n++
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// SlugFor derives the slug for a slug field from its source value.
func SlugFor(f *Field, values map[string]any) (string, bool) {
	if f.Type != TypeSlug || f.Options.Source == "" {
		return "", false
	}
	src, ok := values[f.Options.Source].(string)
	if !ok || src == "" {
		return "", false
	}
	return Slugify(src, f.Options.MaxLength), true
}
