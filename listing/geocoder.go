// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import "strings"

// GeocodingResult represents a geocoding result from any provider.
type GeocodingResult struct {
	Latitude    float64
	Longitude   float64
	Provider    string
	DisplayName string
}

// GeocodingProvider resolves a free-text query to coordinates.
type GeocodingProvider interface {
	Geocode(query string) (*GeocodingResult, error)
	Name() string
}

// Address is the free-text location of a submission.
type Address struct {
	Street  string
	Area    string
	City    string
	Country string
}

// Query joins the non-empty address parts into a single geocoding query.
func (a Address) Query() string {
	parts := make([]string, 0, 4)

	for _, p := range []string{a.Street, a.Area, a.City, a.Country} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, ", ")
}

// CacheKey derives the cache key for the address tuple.
func (a Address) CacheKey() string {
	parts := []string{a.Street, a.City, a.Area, a.Country}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}

	return strings.Join(parts, "|")
}
