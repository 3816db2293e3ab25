// Package tags normalizes comma separated tag strings into a canonical form.
// The same form is used when storing tags and when searching for them.
package tags

import (
	"strings"
)

// Separator splits raw tag input.
const Separator = ","

// Normalize splits raw on commas, trims and lower-cases each term, drops empty
// terms and removes duplicates while keeping first-seen order.
func Normalize(raw string) []string {
	parts := strings.Split(raw, Separator)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Join renders normalized names back into the raw input form.
func Join(names []string) string {
	return strings.Join(names, Separator)
}

// Slug turns a tag name into a URL friendly identifier.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r > 127:
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
