// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestGoogle(serverURL string) *GoogleMapsGeocoder {
	g := NewGoogleMapsGeocoder("test-key")
	g.baseURL = serverURL

	return g
}

func TestGoogleMapsGeocode(t *testing.T) {
	var gotAddress, gotKey, gotRegion string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		gotKey = r.URL.Query().Get("key")
		gotRegion = r.URL.Query().Get("region")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"geometry": {"location": {"lat": 24.8607, "lng": 67.0011}},
				"formatted_address": "Karachi, Pakistan"
			}]
		}`))
	}))
	defer server.Close()

	result, err := newTestGoogle(server.URL).Geocode("Saddar, Karachi, Pakistan")
	if err != nil {
		t.Fatalf("Geocode() error: %v", err)
	}

	if result.Latitude != 24.8607 || result.Longitude != 67.0011 {
		t.Errorf("coordinates = (%f, %f), want (24.8607, 67.0011)", result.Latitude, result.Longitude)
	}

	if result.Provider != "google_maps" {
		t.Errorf("Provider = %q, want google_maps", result.Provider)
	}

	if result.DisplayName != "Karachi, Pakistan" {
		t.Errorf("DisplayName = %q", result.DisplayName)
	}

	if gotAddress != "Saddar, Karachi, Pakistan" || gotKey != "test-key" || gotRegion != "pk" {
		t.Errorf("request params = address %q, key %q, region %q", gotAddress, gotKey, gotRegion)
	}
}

func TestGoogleMapsGeocodeZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer server.Close()

	if _, err := newTestGoogle(server.URL).Geocode("Nowhere"); err == nil {
		t.Fatal("Geocode() should fail on ZERO_RESULTS")
	}
}

func TestGoogleMapsGeocodeQuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestGoogle(server.URL).Geocode("Lahore")
	if err == nil {
		t.Fatal("Geocode() should fail on HTTP 403")
	}

	geoErr, ok := err.(*GeocodingError)
	if !ok || geoErr.Type != ErrorTypeQuotaExceeded {
		t.Errorf("error = %v, want a quota-exceeded geocoding error", err)
	}
}

func TestGoogleMapsGeocodeMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	if _, err := newTestGoogle(server.URL).Geocode("Lahore"); err == nil {
		t.Fatal("Geocode() should fail on a malformed body")
	}
}
