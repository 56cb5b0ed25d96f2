// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	maxNameLength    = 200
	maxAddressLength = 500
	maxURLLength     = 500
)

// validateCoordinates checks the global latitude/longitude ranges.
func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}

	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got: %f)", lat)
	}

	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got: %f)", lng)
	}

	return nil
}

// ValidateSubmission checks the caller-supplied submission before the
// pipeline runs. Field-format validation beyond this belongs to the HTTP
// layer; this guards only what the pipeline itself relies on.
func ValidateSubmission(s *Submission) error {
	if s == nil {
		return errors.New("submission can't be nil")
	}

	for _, req := range []struct {
		field string
		value string
	}{
		{"name", s.Name},
		{"city", s.City},
		{"category", s.Category},
		{"phone", s.Phone},
		{"email", s.Email},
		{"address", s.Address},
	} {
		if strings.TrimSpace(req.value) == "" {
			return fmt.Errorf("%s can't be empty", req.field)
		}
	}

	if len(s.Name) > maxNameLength {
		return fmt.Errorf("name too long (maximum %d characters)", maxNameLength)
	}

	if len(s.Address) > maxAddressLength {
		return fmt.Errorf("address too long (maximum %d characters)", maxAddressLength)
	}

	for _, u := range []string{s.WebsiteURL, s.FacebookURL, s.GmbURL, s.YoutubeURL} {
		if len(u) > maxURLLength {
			return fmt.Errorf("URL too long (maximum %d characters)", maxURLLength)
		}
	}

	if (s.Latitude == nil) != (s.Longitude == nil) {
		return errors.New("latitude and longitude must be supplied together")
	}

	if s.Latitude != nil {
		if err := validateCoordinates(*s.Latitude, *s.Longitude); err != nil {
			return fmt.Errorf("invalid coordinates: %w", err)
		}
	}

	return nil
}
