package api

import (
	"fmt"
	"regexp"
	"strings"

	"clowdy/internal/database"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugHyphens  = regexp.MustCompile(`[\s_]+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// slugify converts a project name to a URL-friendly slug: lowercase,
// punctuation stripped, whitespace and underscores hyphenated.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// uniqueSlug returns base if no project uses it yet, otherwise the first
// free base-N. A project renaming to its own name collides with its own
// slug and picks up a suffix; renames always produce a fresh slug.
func uniqueSlug(repo *database.Repository, base string) (string, error) {
	slug := base
	for counter := 1; ; counter++ {
		taken, err := repo.SlugExists(slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
