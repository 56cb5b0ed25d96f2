// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "country prefixed with separators",
			input: "+92 300-1234567",
			want:  "923001234567",
		},
		{
			name:  "plain digits pass through",
			input: "03001234567",
			want:  "03001234567",
		},
		{
			name:  "parentheses and spaces",
			input: "(042) 111 222 333",
			want:  "042111222333",
		},
		{
			name:  "no digits at all",
			input: "call me",
			want:  "",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Info@Example.COM ", "info@example.com"},
		{"already@lower.pk", "already@lower.pk"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.input); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "scheme case and trailing slash insensitive",
			input: "HTTP://Example.com/Path/",
			want:  "example.com/path",
		},
		{
			name:  "no scheme",
			input: "example.com/Path",
			want:  "example.com/path",
		},
		{
			name:  "query preserved",
			input: "https://example.com/search?q=biryani",
			want:  "example.com/search?q=biryani",
		},
		{
			name:  "bare host",
			input: "https://example.com/",
			want:  "example.com",
		},
		{
			name:  "unparsable falls back to trimmed lowercase",
			input: "not a url at all",
			want:  "not a url at all",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.input); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLEquivalence(t *testing.T) {
	if NormalizeURL("HTTP://Example.com/Path/") != NormalizeURL("example.com/Path") {
		t.Error("scheme/case/trailing-slash variants should normalize to the same key")
	}
}

func TestNormalizationIdempotence(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalizePhone is idempotent", prop.ForAll(
		func(s string) bool {
			once := NormalizePhone(s)

			return NormalizePhone(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("normalizeEmail is idempotent", prop.ForAll(
		func(s string) bool {
			once := NormalizeEmail(s)

			return NormalizeEmail(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("normalizeURL is idempotent", prop.ForAll(
		func(s string) bool {
			once := NormalizeURL(s)

			return NormalizeURL(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestEscapeRegex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"a.b*c", `a\.b\*c`},
		{"(042) 111", `\(042\) 111`},
		{"x|y", `x\|y`},
	}

	for _, tt := range tests {
		if got := EscapeRegex(tt.input); got != tt.want {
			t.Errorf("EscapeRegex(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
