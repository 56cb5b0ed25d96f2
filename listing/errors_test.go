// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusBadGateway, ErrorTypeNetworkError},
		{http.StatusGatewayTimeout, ErrorTypeNetworkError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyHTTPError(tt.status); got.Type != tt.want {
			t.Errorf("ClassifyHTTPError(%d).Type = %d, want %d", tt.status, got.Type, tt.want)
		}
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "typed",
			err:  &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit reached"},
			want: true,
		},
		{
			name: "typed wrapped",
			err:  fmt.Errorf("provider: %w", &GeocodingError{Type: ErrorTypeRateLimit}),
			want: true,
		},
		{
			name: "typed but different kind",
			err:  &GeocodingError{Type: ErrorTypeNotFound, Message: "nope"},
			want: false,
		},
		{
			name: "untyped message heuristic",
			err:  errors.New("got 429 from upstream"),
			want: true,
		},
		{
			name: "unrelated",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTimeoutError(t *testing.T) {
	if !IsTimeoutError(&GeocodingError{Type: ErrorTypeTimeout}) {
		t.Error("typed timeout not recognized")
	}

	if !IsTimeoutError(errors.New("context deadline exceeded")) {
		t.Error("deadline message not recognized")
	}

	if IsTimeoutError(errors.New("no such host")) {
		t.Error("unrelated error classified as timeout")
	}
}

func TestGeocodingErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &GeocodingError{Type: ErrorTypeNetworkError, Message: "request failed", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}

	if err.Error() != "request failed: dial tcp: refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}
