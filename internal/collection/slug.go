package collection

import (
	"regexp"
	"strings"

	"github.com/binyominzeev/vidfaq/pkg/models"
)

var (
	slugStripPattern      = regexp.MustCompile(`[^a-z0-9\s\v\p{Z}\x{feff}-]`)
	slugWhitespacePattern = regexp.MustCompile(`[\s\v\p{Z}\x{feff}]+`)
	slugHyphenPattern     = regexp.MustCompile(`-+`)
)

// NormalizeSlug derives a URL-safe identifier from a human title
func NormalizeSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = slugWhitespacePattern.ReplaceAllString(slug, "-")
	slug = slugHyphenPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > models.MaxSlugLength {
		slug = strings.TrimRight(slug[:models.MaxSlugLength], "-")
	}

	return slug
}

// AllocateSlug normalizes title and checks it against the owner's existing slugs.
// Collisions are reported, never disambiguated.
func AllocateSlug(title string, existing map[string]struct{}) (string, error) {
	slug := NormalizeSlug(title)
	if slug == "" {
		return "", ErrEmptySlug
	}
	if _, taken := existing[slug]; taken {
		return "", ErrDuplicateTitle
	}
	return slug, nil
}

// SlugSet collects the slugs of entries, skipping the entry with id exclude
func SlugSet(entries []*models.VideoEntry, exclude string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == exclude {
			continue
		}
		set[e.Slug] = struct{}{}
	}
	return set
}
