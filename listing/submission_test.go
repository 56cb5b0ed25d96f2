// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResolver returns a canned result and records whether it was consulted.
type stubResolver struct {
	result *GeocodingResult
	calls  int
}

func (r *stubResolver) Resolve(_ Address) *GeocodingResult {
	r.calls++

	return r.result
}

// recordingNotifier delivers approved listings on a channel so tests can
// synchronize with the detached fan-out goroutine.
type recordingNotifier struct {
	approved chan *Listing
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{approved: make(chan *Listing, 1)}
}

func (n *recordingNotifier) ListingApproved(l *Listing) {
	n.approved <- l
}

func (n *recordingNotifier) wait(t *testing.T) *Listing {
	t.Helper()

	select {
	case l := <-n.approved:
		return l
	case <-time.After(5 * time.Second):
		t.Fatal("no notification arrived")

		return nil
	}
}

func newSubmission() *Submission {
	return &Submission{
		Name:     "Bundu Khan Restaurant",
		City:     "Lahore",
		Category: "restaurant",
		Phone:    "+92 300 1234567",
		Email:    "Info@BunduKhan.PK",
		Address:  "MM Alam Road, Gulberg III",
		Area:     "Gulberg",
	}
}

func TestSubmitHappyPath(t *testing.T) {
	repo := newTestRepo(t)
	resolver := &stubResolver{
		result: &GeocodingResult{Latitude: 31.5204, Longitude: 74.3587, Provider: "stub"},
	}
	notifier := newRecordingNotifier()
	service := NewService(repo, resolver, notifier, "Pakistan")

	result, err := service.Submit(newSubmission())
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.NotZero(t, result.ID)
	assert.Equal(t, "bundu-khan-restaurant", result.Slug)
	assert.True(t, result.LocationVerified)
	assert.Empty(t, result.Conflicts)

	approved := notifier.wait(t)
	assert.Equal(t, result.ID, approved.ID)
	assert.Equal(t, "auto", approved.ApprovedBy)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "info@bundukhan.pk", approved.Email, "email is stored normalized")
	assert.Equal(t, "923001234567", approved.PhoneDigits)

	count, err := repo.CountApproved()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitDuplicateIsRejectedBeforeAnyWrite(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Insert(testListing("bundu-khan"))
	require.NoError(t, err)

	resolver := &stubResolver{}
	service := NewService(repo, resolver, nil, "")

	result, err := service.Submit(newSubmission())
	require.NoError(t, err, "a duplicate is a structural outcome, not an error")

	assert.False(t, result.Accepted)
	assert.True(t, result.Conflicts.HasConflicts())
	assert.Zero(t, result.ID)
	assert.Zero(t, resolver.calls, "rejected submissions must not be geocoded")

	count, err := repo.CountApproved()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "the store must be untouched")
}

func TestSubmitGeocodeFailureStillPersists(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, &stubResolver{result: nil}, nil, "")

	result, err := service.Submit(newSubmission())
	require.NoError(t, err)

	assert.True(t, result.Accepted, "an unresolved location must not block the submission")
	assert.False(t, result.LocationVerified)
}

func TestSubmitTrustsClientCoordinates(t *testing.T) {
	repo := newTestRepo(t)
	resolver := &stubResolver{
		result: &GeocodingResult{Latitude: 0, Longitude: 0, Provider: "stub"},
	}
	service := NewService(repo, resolver, nil, "")

	lat, lng := 31.5204, 74.3587
	sub := newSubmission()
	sub.Latitude = &lat
	sub.Longitude = &lng

	result, err := service.Submit(sub)
	require.NoError(t, err)

	assert.True(t, result.LocationVerified)
	assert.Zero(t, resolver.calls, "valid client coordinates must skip the geocoder")
}

func TestSubmitOutOfRangeClientCoordinatesFallBackToGeocoder(t *testing.T) {
	repo := newTestRepo(t)
	resolver := &stubResolver{
		result: &GeocodingResult{Latitude: 31.5204, Longitude: 74.3587, Provider: "stub"},
	}
	service := NewService(repo, resolver, nil, "")

	lat, lng := 123.0, 74.3587
	sub := newSubmission()
	sub.Latitude = &lat
	sub.Longitude = &lng

	result, err := service.Submit(sub)
	require.NoError(t, err)

	assert.True(t, result.LocationVerified)
	assert.Equal(t, 1, resolver.calls)
}

func TestSubmitSlugCollisionGetsSuffix(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, nil, nil, "")

	first, err := service.Submit(newSubmission())
	require.NoError(t, err)
	assert.Equal(t, "bundu-khan-restaurant", first.Slug)

	// Same name in another city is not a duplicate but collides on slug.
	sub := newSubmission()
	sub.City = "Karachi"
	sub.Phone = "0300 9999999"
	sub.Email = "karachi@bundukhan.pk"

	second, err := service.Submit(sub)
	require.NoError(t, err)
	assert.True(t, second.Accepted)
	assert.Equal(t, "bundu-khan-restaurant-1", second.Slug)
}

func TestSubmitNilGeocoderAndNotifier(t *testing.T) {
	service := NewService(newTestRepo(t), nil, nil, "")

	result, err := service.Submit(newSubmission())
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.False(t, result.LocationVerified)
}

func TestSubmitSurvivesPanickingNotifier(t *testing.T) {
	repo := newTestRepo(t)

	done := make(chan struct{})
	service := NewService(repo, nil, panickyNotifier{done: done}, "")

	result, err := service.Submit(newSubmission())
	require.NoError(t, err)
	assert.True(t, result.Accepted)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notifier was never invoked")
	}
}

type panickyNotifier struct {
	done chan struct{}
}

func (n panickyNotifier) ListingApproved(_ *Listing) {
	close(n.done)
	panic("notification transport exploded")
}

func TestCheckDuplicatesCommitsNothing(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, nil, nil, "")

	conflicts := service.CheckDuplicates(newSubmission())
	assert.False(t, conflicts.HasConflicts())

	count, err := repo.CountApproved()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
