// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/karobarpk/karobar/utils/textutils"
)

// maxSlugLength bounds derived slugs; collision suffixes may push the final
// slug slightly past it.
const maxSlugLength = 60

// Slugify derives a URL slug from a business name: accent-folded lowercase
// with non-alphanumerics dropped, whitespace and hyphen runs collapsed to
// single hyphens, bounded length. Returns "" when nothing usable remains.
func Slugify(name string) string {
	folded := textutils.LowerASCIIFolding(name)

	var b strings.Builder

	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '\t':
			b.WriteRune(' ')
		}
	}

	slug := strings.ReplaceAll(textutils.CollapseWhitespace(b.String()), " ", "-")

	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}

	return slug
}

// AssignSlug resolves a free slug for the name: the base slug when
// available, otherwise base-1, base-2, ... until an unused one is found.
// The loop is bounded only by the number of existing collisions, which is
// expected to be tiny. An empty base falls back to a timestamp slug.
func AssignSlug(repo ListingRepository, name string, now time.Time) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = fmt.Sprintf("listing-%d", now.UnixMilli())
	}

	slug := base

	for suffix := 1; ; suffix++ {
		taken, err := repo.SlugExists(slug)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", slug, err)
		}

		if !taken {
			return slug, nil
		}

		slug = fmt.Sprintf("%s-%d", base, suffix)
	}
}
