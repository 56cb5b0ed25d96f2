// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/stretchr/testify/require"
)

// newTestRepo returns a repository backed by an in-memory DuckDB with the
// schema created.
func newTestRepo(t *testing.T) ListingRepository {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	repo := NewListingRepository(db)
	require.NoError(t, repo.CreateSchema())

	return repo
}

// testListing returns a persistable listing with distinct identity fields so
// tests can insert several without tripping the slug constraint.
func testListing(slug string) *Listing {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	return &Listing{
		Name:        "Bundu Khan Restaurant",
		City:        "Lahore",
		Category:    "restaurant",
		Phone:       "+92 300 1234567",
		PhoneDigits: "923001234567",
		Email:       "info@bundukhan.pk",
		Address:     "MM Alam Road, Gulberg III",
		Slug:        slug,
		Status:      "approved",
		ApprovedBy:  "auto",
		ApprovedAt:  now,
		CreatedAt:   now,
	}
}

// fakeRepo lets a test stub out individual repository operations without a
// database. Unset operations return zero values.
type fakeRepo struct {
	matchExists   func(cond *MatchCondition, excludeID *int64) (bool, error)
	slugExists    func(slug string) (bool, error)
	countApproved func() (int, error)
	insert        func(l *Listing) (int64, error)
}

func (f *fakeRepo) CreateSchema() error { return nil }

func (f *fakeRepo) Insert(l *Listing) (int64, error) {
	if f.insert == nil {
		return 0, nil
	}

	return f.insert(l)
}

func (f *fakeRepo) BulkInsert(_ []*Listing) error { return nil }

func (f *fakeRepo) MatchExists(cond *MatchCondition, excludeID *int64) (bool, error) {
	if f.matchExists == nil {
		return false, nil
	}

	return f.matchExists(cond, excludeID)
}

func (f *fakeRepo) SlugExists(slug string) (bool, error) {
	if f.slugExists == nil {
		return false, nil
	}

	return f.slugExists(slug)
}

func (f *fakeRepo) CountApproved() (int, error) {
	if f.countApproved == nil {
		return 0, nil
	}

	return f.countApproved()
}

func (f *fakeRepo) IncrementCategoryCount(_ string) error { return nil }

func (f *fakeRepo) ListRecent(_ int) ([]*Listing, error) { return nil, nil }

func (f *fakeRepo) Progress() (*ProgressStats, error) {
	return &ProgressStats{ByCity: map[string]int{}}, nil
}

func (f *fakeRepo) DB() *sql.DB { return nil }
