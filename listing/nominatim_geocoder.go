// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/karobarpk/karobar/utils/httputils"
)

// DefaultNominatimInterval is the minimum spacing between outbound calls.
// Nominatim's usage policy allows at most one request per second; violating
// it gets the whole service blocked, so we keep a little slack.
const DefaultNominatimInterval = 1100 * time.Millisecond

// NominatimGeocoder is the free fallback provider. A single instance owns
// the process-wide throttle state: calls are spaced at least minInterval
// apart, sleeping the calling goroutine when needed. Exact spacing under
// heavy concurrency is not required, only approximate.
type NominatimGeocoder struct {
	baseURL     string
	httpClient  *http.Client
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NominatimOptions configures the fallback provider.
type NominatimOptions struct {
	// UserAgent identifies this deployment to Nominatim, per their policy.
	UserAgent string

	// MinInterval overrides the default inter-call spacing.
	MinInterval time.Duration

	// HTTPTraceWriter enables light tracing of requests when non-nil.
	HTTPTraceWriter io.Writer
}

// NewNominatimGeocoder creates the fallback provider.
func NewNominatimGeocoder(opts *NominatimOptions) *NominatimGeocoder {
	if opts == nil {
		opts = &NominatimOptions{}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "karobar/unknown (business directory intake)"
	}

	interval := opts.MinInterval
	if interval == 0 {
		interval = DefaultNominatimInterval
	}

	transport := &http.Transport{
		MaxIdleConns:          2,
		MaxConnsPerHost:       1,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    opts.HTTPTraceWriter,
		Transport: transport,
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	return &NominatimGeocoder{
		baseURL:     "https://nominatim.openstreetmap.org/search",
		minInterval: interval,
		httpClient: &http.Client{
			Timeout:   5 * time.Second,
			Transport: headerTransport,
		},
		now:   time.Now,
		sleep: time.Sleep,
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Name implements GeocodingProvider.
func (g *NominatimGeocoder) Name() string {
	return "nominatim"
}

// throttle blocks until minInterval has elapsed since the previous call.
func (g *NominatimGeocoder) throttle() {
	g.mu.Lock()

	wait := g.minInterval - g.now().Sub(g.lastCall)
	if wait > 0 {
		g.sleep(wait)
	}

	g.lastCall = g.now()
	g.mu.Unlock()
}

// Geocode implements GeocodingProvider.
func (g *NominatimGeocoder) Geocode(query string) (*GeocodingResult, error) {
	g.throttle()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "pk")

	resp, err := g.httpClient.Get(g.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return nil, &GeocodingError{Type: ErrorTypeNotFound, Message: "no results for query"}
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}

	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}

	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return nil, fmt.Errorf("non-finite coordinates in response")
	}

	return &GeocodingResult{
		Latitude:    lat,
		Longitude:   lng,
		Provider:    g.Name(),
		DisplayName: results[0].DisplayName,
	}, nil
}
