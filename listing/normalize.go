// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

// Package listing implements the business-directory intake pipeline:
// normalization of submission identifiers, duplicate detection against the
// directory, geocoding, auto-approval and post-commit notification fan-out.
package listing

import (
	"net/url"
	"regexp"
	"strings"
)

// NormalizePhone strips every non-digit character from a phone number.
// No length or format validation happens here; the result is a matching
// key, not validated data.
func NormalizePhone(s string) string {
	var b strings.Builder

	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeURL reduces a URL to a scheme-agnostic comparison key:
// host + path (trailing slashes stripped) + query, lowercased. A string
// without a scheme is parsed as https. On parse failure the trimmed
// lowercased input is returned as-is, since URLs are best-effort matching
// keys rather than validated data. Empty input yields "".
func NormalizeURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	raw := s
	if !strings.Contains(s, "://") {
		raw = "https://" + s
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return s
	}

	path := strings.TrimRight(u.Path, "/")

	key := u.Host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}

	return key
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// EscapeRegex escapes regex metacharacters so a value can be embedded in a
// case-insensitive contains/equals pattern. Every value interpolated into a
// stored-engine regex query must pass through here first; matching against
// caller-supplied text without it would allow pattern injection.
func EscapeRegex(s string) string {
	return regexp.QuoteMeta(s)
}
