// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"fmt"
	"log"
	"time"

	"github.com/karobarpk/karobar/spatial"
)

// Submission is a caller-supplied listing candidate. It has no identity
// until persisted.
type Submission struct {
	Name     string `json:"name"`
	City     string `json:"city"`
	Category string `json:"category"`
	Phone    string `json:"phone"`
	Whatsapp string `json:"whatsapp,omitempty"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Area     string `json:"area,omitempty"`

	WebsiteURL  string `json:"website_url,omitempty"`
	FacebookURL string `json:"facebook_url,omitempty"`
	GmbURL      string `json:"gmb_url,omitempty"`
	YoutubeURL  string `json:"youtube_url,omitempty"`

	// Client-supplied coordinates, trusted when within valid ranges.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// ExcludeID makes the duplicate check skip one record (edit flow).
	ExcludeID *int64 `json:"exclude_id,omitempty"`
}

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Accepted         bool        `json:"accepted"`
	ID               int64       `json:"id,omitempty"`
	Slug             string      `json:"slug,omitempty"`
	LocationVerified bool        `json:"location_verified"`
	Conflicts        ConflictSet `json:"conflicts,omitempty"`
}

// LocationResolver resolves an address to coordinates, nil on failure.
type LocationResolver interface {
	Resolve(addr Address) *GeocodingResult
}

// ApprovalNotifier receives post-commit notifications. Implementations must
// tolerate being called from a detached goroutine and never rely on the
// submission request still being alive.
type ApprovalNotifier interface {
	ListingApproved(l *Listing)
}

// Service drives one submission from validated input to a persisted,
// auto-approved record:
//
//	duplicate check → geocode or trust client coordinates → slug
//	assignment → persist → category counter → notification fan-out
//
// Within one submission, the duplicate check completes before any write,
// and the write completes before notification. Across submissions nothing
// is ordered: two racing submissions of the same content can both pass the
// duplicate check, which is accepted — the slug uniqueness constraint is
// the only hard guarantee.
type Service struct {
	repo     ListingRepository
	detector *DuplicateDetector
	geocoder LocationResolver
	notifier ApprovalNotifier
	country  string
	now      func() time.Time
}

// NewService wires the submission pipeline. Geocoder and notifier may be
// nil: submissions then persist without resolved locations or notifications.
func NewService(repo ListingRepository, geocoder LocationResolver, notifier ApprovalNotifier, country string) *Service {
	if country == "" {
		country = "Pakistan"
	}

	return &Service{
		repo:     repo,
		detector: NewDuplicateDetector(repo),
		geocoder: geocoder,
		notifier: notifier,
		country:  country,
		now:      time.Now,
	}
}

// CheckDuplicates runs only the duplicate check, committing nothing. Used
// for pre-submission client-side hinting.
func (s *Service) CheckDuplicates(sub *Submission) ConflictSet {
	return s.detector.Check(sub, sub.ExcludeID)
}

// Submit runs the full pipeline. A duplicate is reported structurally in
// the result, not as an error; the returned error is reserved for
// unexpected internal failures (e.g. the store is unreachable).
func (s *Service) Submit(sub *Submission) (*SubmitResult, error) {
	conflicts := s.detector.Check(sub, sub.ExcludeID)
	if conflicts.HasConflicts() {
		return &SubmitResult{Accepted: false, Conflicts: conflicts}, nil
	}

	point, verified := s.resolveLocation(sub)

	now := s.now()

	slug, err := AssignSlug(s.repo, sub.Name, now)
	if err != nil {
		return nil, fmt.Errorf("assigning slug: %w", err)
	}

	l := &Listing{
		Name:              trimmed(sub.Name),
		City:              trimmed(sub.City),
		Category:          trimmed(sub.Category),
		Phone:             trimmed(sub.Phone),
		PhoneDigits:       NormalizePhone(sub.Phone),
		Whatsapp:          trimmed(sub.Whatsapp),
		WhatsappDigits:    NormalizePhone(sub.Whatsapp),
		Email:             NormalizeEmail(sub.Email),
		Address:           trimmed(sub.Address),
		Area:              trimmed(sub.Area),
		WebsiteURL:        trimmed(sub.WebsiteURL),
		WebsiteNormalized: NormalizeURL(sub.WebsiteURL),
		FacebookURL:       trimmed(sub.FacebookURL),
		GmbURL:            trimmed(sub.GmbURL),
		YoutubeURL:        trimmed(sub.YoutubeURL),
		Slug:              slug,
		Point:             point,
		LocationVerified:  verified,
		Status:            "approved",
		ApprovedBy:        "auto",
		ApprovedAt:        now,
		CreatedAt:         now,
	}

	id, err := s.repo.Insert(l)
	if err != nil {
		return nil, fmt.Errorf("persisting listing: %w", err)
	}

	// Best-effort counter; the insert is already committed and an
	// eventually-consistent count is acceptable.
	if err := s.repo.IncrementCategoryCount(l.Category); err != nil {
		log.Printf("Incrementing category counter for %q failed - %s", l.Category, err)
	}

	s.dispatchNotifications(l)

	return &SubmitResult{
		Accepted:         true,
		ID:               id,
		Slug:             slug,
		LocationVerified: verified,
	}, nil
}

// resolveLocation trusts client coordinates within valid ranges, otherwise
// asks the geocoder. A nil result is not a failure: the listing persists
// without a verified location and simply won't appear in proximity search.
func (s *Service) resolveLocation(sub *Submission) (*spatial.Point, bool) {
	if sub.Latitude != nil && sub.Longitude != nil {
		if err := validateCoordinates(*sub.Latitude, *sub.Longitude); err == nil {
			return &spatial.Point{Lat: *sub.Latitude, Lng: *sub.Longitude}, true
		}
	}

	if s.geocoder == nil {
		return nil, false
	}

	result := s.geocoder.Resolve(Address{
		Street:  sub.Address,
		Area:    sub.Area,
		City:    sub.City,
		Country: s.country,
	})
	if result == nil {
		return nil, false
	}

	return &spatial.Point{Lat: result.Latitude, Lng: result.Longitude}, true
}

// dispatchNotifications fans out post-commit side effects on a detached
// goroutine. The caller is never blocked on them and never sees their
// failures; they are logged and not retried.
func (s *Service) dispatchNotifications(l *Listing) {
	if s.notifier == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Notification fan-out panicked for listing %d - %v", l.ID, r)
			}
		}()

		s.notifier.ListingApproved(l)
	}()
}
