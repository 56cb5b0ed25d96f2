// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"log"
	"sync"
)

// ConflictSet maps a checked field name to whether an existing listing
// matched it. A field is present only when a match was found: absence means
// "no conflict found", not "guaranteed unique".
type ConflictSet map[string]bool

// HasConflicts reports whether any dimension matched.
func (c ConflictSet) HasConflicts() bool {
	return len(c) > 0
}

// MatchStrategy selects how a duplicate dimension is compared against the
// store.
type MatchStrategy int

const (
	// MatchExactCollated compares columns case-insensitively, exact.
	MatchExactCollated MatchStrategy = iota

	// MatchExactNormalizedOrRegex compares an indexed normalized column,
	// OR'd with a case-insensitive regex over raw columns as a fallback
	// for records stored before normalization existed.
	MatchExactNormalizedOrRegex

	// MatchSubstringOnRaw matches the normalized value as a
	// case-insensitive substring of the raw stored field. Used where no
	// normalized column exists.
	MatchSubstringOnRaw
)

// ColumnValue is one column/value pair of an exact collated match.
type ColumnValue struct {
	Column string
	Value  string
}

// MatchCondition is a single store lookup produced by the duplicate check
// table. Pattern must always be built from EscapeRegex'd input.
type MatchCondition struct {
	Strategy MatchStrategy

	// MatchExactCollated
	Equals []ColumnValue

	// MatchExactNormalizedOrRegex
	NormColumn string
	NormValue  string

	// regex fallback and MatchSubstringOnRaw
	RegexColumns []string
	Pattern      string
}

// duplicateCheck is one row of the declarative matching table: which field
// it guards, the minimum-signal precondition that gates it, and how to
// build the store lookup.
type duplicateCheck struct {
	field     string
	applies   func(*Submission) bool
	condition func(*Submission) *MatchCondition
}

// minPhoneDigits gates the phone checks: anything shorter is too weak a
// signal and would cause false-positive storms.
const minPhoneDigits = 7

func duplicateChecks() []duplicateCheck {
	return []duplicateCheck{
		{
			field: "nameCityCategory",
			applies: func(s *Submission) bool {
				return s.Name != "" && s.City != "" && s.Category != ""
			},
			condition: func(s *Submission) *MatchCondition {
				return &MatchCondition{
					Strategy: MatchExactCollated,
					Equals: []ColumnValue{
						{Column: "name", Value: s.Name},
						{Column: "city", Value: s.City},
						{Column: "category", Value: s.Category},
					},
				}
			},
		},
		{
			field: "phone",
			applies: func(s *Submission) bool {
				return len(NormalizePhone(s.Phone)) >= minPhoneDigits
			},
			condition: func(s *Submission) *MatchCondition {
				return &MatchCondition{
					Strategy:     MatchExactNormalizedOrRegex,
					NormColumn:   "phone_digits",
					NormValue:    NormalizePhone(s.Phone),
					RegexColumns: []string{"phone"},
					Pattern:      EscapeRegex(trimmed(s.Phone)),
				}
			},
		},
		{
			field: "whatsapp",
			applies: func(s *Submission) bool {
				return len(NormalizePhone(s.Whatsapp)) >= minPhoneDigits
			},
			condition: func(s *Submission) *MatchCondition {
				return &MatchCondition{
					Strategy:   MatchExactNormalizedOrRegex,
					NormColumn: "whatsapp_digits",
					NormValue:  NormalizePhone(s.Whatsapp),
				}
			},
		},
		{
			field: "email",
			applies: func(s *Submission) bool {
				return NormalizeEmail(s.Email) != ""
			},
			condition: func(s *Submission) *MatchCondition {
				norm := NormalizeEmail(s.Email)

				return &MatchCondition{
					Strategy:     MatchExactNormalizedOrRegex,
					NormColumn:   "email",
					NormValue:    norm,
					RegexColumns: []string{"email"},
					Pattern:      "^" + EscapeRegex(norm) + "$",
				}
			},
		},
		{
			field: "websiteUrl",
			applies: func(s *Submission) bool {
				return NormalizeURL(s.WebsiteURL) != ""
			},
			condition: func(s *Submission) *MatchCondition {
				norm := NormalizeURL(s.WebsiteURL)

				return &MatchCondition{
					Strategy:   MatchExactNormalizedOrRegex,
					NormColumn: "website_normalized",
					NormValue:  norm,
					// Historical rows populated website_normalized
					// inconsistently, so substring-match both columns.
					RegexColumns: []string{"website_url", "website_normalized"},
					Pattern:      EscapeRegex(norm),
				}
			},
		},
		{
			field: "facebookUrl",
			applies: func(s *Submission) bool {
				return NormalizeURL(s.FacebookURL) != ""
			},
			condition: func(s *Submission) *MatchCondition {
				return &MatchCondition{
					Strategy:     MatchSubstringOnRaw,
					RegexColumns: []string{"facebook_url"},
					Pattern:      EscapeRegex(NormalizeURL(s.FacebookURL)),
				}
			},
		},
		{
			field: "gmbUrl",
			applies: func(s *Submission) bool {
				return NormalizeURL(s.GmbURL) != ""
			},
			condition: func(s *Submission) *MatchCondition {
				return &MatchCondition{
					Strategy:     MatchSubstringOnRaw,
					RegexColumns: []string{"gmb_url"},
					Pattern:      EscapeRegex(NormalizeURL(s.GmbURL)),
				}
			},
		},
		{
			field: "youtubeUrl",
			applies: func(s *Submission) bool {
				return NormalizeURL(s.YoutubeURL) != ""
			},
			condition: func(s *Submission) *MatchCondition {
				return &MatchCondition{
					Strategy:     MatchSubstringOnRaw,
					RegexColumns: []string{"youtube_url"},
					Pattern:      EscapeRegex(NormalizeURL(s.YoutubeURL)),
				}
			},
		},
	}
}

// DuplicateDetector runs the matching table against the store.
type DuplicateDetector struct {
	repo   ListingRepository
	checks []duplicateCheck
}

// NewDuplicateDetector creates a detector bound to a repository.
func NewDuplicateDetector(repo ListingRepository) *DuplicateDetector {
	return &DuplicateDetector{
		repo:   repo,
		checks: duplicateChecks(),
	}
}

// Check runs every applicable lookup concurrently and merges the results.
// It never fails: a lookup error is logged and treated as "no conflict
// found", because a missed duplicate is operationally safer than blocking
// every submission while the store is degraded. ExcludeID, when non-nil, is
// applied to every lookup so a record never conflicts with itself.
func (d *DuplicateDetector) Check(sub *Submission, excludeID *int64) ConflictSet {
	conflicts := make(ConflictSet)

	var wg sync.WaitGroup

	var mu sync.Mutex

	for _, check := range d.checks {
		if !check.applies(sub) {
			continue
		}

		wg.Add(1)

		go func(check duplicateCheck) {
			defer wg.Done()

			found, err := d.repo.MatchExists(check.condition(sub), excludeID)
			if err != nil {
				log.Printf("Duplicate check %s failed - %s", check.field, err)

				return
			}

			if found {
				mu.Lock()
				conflicts[check.field] = true
				mu.Unlock()
			}
		}(check)
	}

	wg.Wait()

	return conflicts
}
