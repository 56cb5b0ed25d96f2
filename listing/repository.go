// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/karobarpk/karobar/spatial"
	"github.com/uber/h3-go/v4"
)

// Listing is a persisted, auto-approved directory entry. It is created once
// by the submission service and never mutated by this package afterwards;
// moderation transitions happen in the admin surface.
type Listing struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	City              string         `json:"city"`
	Category          string         `json:"category"`
	Phone             string         `json:"phone"`
	PhoneDigits       string         `json:"-"`
	Whatsapp          string         `json:"whatsapp,omitempty"`
	WhatsappDigits    string         `json:"-"`
	Email             string         `json:"email"`
	Address           string         `json:"address"`
	Area              string         `json:"area,omitempty"`
	WebsiteURL        string         `json:"website_url,omitempty"`
	WebsiteNormalized string         `json:"-"`
	FacebookURL       string         `json:"facebook_url,omitempty"`
	GmbURL            string         `json:"gmb_url,omitempty"`
	YoutubeURL        string         `json:"youtube_url,omitempty"`
	Slug              string         `json:"slug"`
	Point             *spatial.Point `json:"-"`
	LocationVerified  bool           `json:"location_verified"`
	Status            string         `json:"status"`
	ApprovedBy        string         `json:"approved_by,omitempty"`
	ApprovedAt        time.Time      `json:"approved_at"`
	CreatedAt         time.Time      `json:"created_at"`
	H3Res1            int64          `json:"-"`
	H3Res2            int64          `json:"-"`
	H3Res3            int64          `json:"-"`
	H3Res4            int64          `json:"-"`
	H3Res5            int64          `json:"-"`
	H3Res6            int64          `json:"-"`
	H3Res7            int64          `json:"-"`
	H3Res8            int64          `json:"-"`
}

// Location returns the listing's point as GeoJSON, or nil when unresolved.
func (l *Listing) Location() *spatial.GeoJSON {
	if l.Point == nil {
		return nil
	}

	g := l.Point.GeoJSON()

	return &g
}

// MarshalJSON serializes the location as a GeoJSON Point when coordinates
// exist; the field is omitted entirely otherwise.
func (l *Listing) MarshalJSON() ([]byte, error) {
	type alias Listing

	return json.Marshal(&struct {
		*alias
		Location *spatial.GeoJSON `json:"location,omitempty"`
	}{
		alias:    (*alias)(l),
		Location: l.Location(),
	})
}

func (l *Listing) computeH3() error {
	if l.Point == nil {
		l.H3Res1, l.H3Res2, l.H3Res3, l.H3Res4 = 0, 0, 0, 0
		l.H3Res5, l.H3Res6, l.H3Res7, l.H3Res8 = 0, 0, 0, 0

		return nil
	}

	latLng := h3.NewLatLng(l.Point.Lat, l.Point.Lng)
	for res := 1; res <= 8; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		switch res {
		case 1:
			l.H3Res1 = int64(cell)
		case 2:
			l.H3Res2 = int64(cell)
		case 3:
			l.H3Res3 = int64(cell)
		case 4:
			l.H3Res4 = int64(cell)
		case 5:
			l.H3Res5 = int64(cell)
		case 6:
			l.H3Res6 = int64(cell)
		case 7:
			l.H3Res7 = int64(cell)
		case 8:
			l.H3Res8 = int64(cell)
		}
	}

	return nil
}

// ProgressStats summarizes the intake pipeline for the operator dashboard.
type ProgressStats struct {
	TotalListings    int            `json:"total_listings"`
	VerifiedLocation int            `json:"verified_location"`
	ByCity           map[string]int `json:"by_city"`
}

// ListingRepository handles persistence of directory listings. It is the
// store contract the intake pipeline talks to; everything else about the
// database is out of this package's hands.
type ListingRepository interface {
	// CreateSchema creates the listings tables
	CreateSchema() error

	// Insert persists a listing and returns its assigned id
	Insert(l *Listing) (int64, error)

	// BulkInsert inserts a slice of listings in one transaction
	BulkInsert(listings []*Listing) error

	// MatchExists reports whether any listing satisfies the match
	// condition, excluding excludeID when non-nil
	MatchExists(cond *MatchCondition, excludeID *int64) (bool, error)

	// SlugExists reports whether a slug is already taken
	SlugExists(slug string) (bool, error)

	// CountApproved returns the number of approved listings
	CountApproved() (int, error)

	// IncrementCategoryCount bumps the per-category listing counter
	IncrementCategoryCount(category string) error

	// ListRecent returns the most recently created listings, newest first
	ListRecent(limit int) ([]*Listing, error)

	// Progress returns intake statistics
	Progress() (*ProgressStats, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlListingRepository struct {
	db *sql.DB
}

// NewListingRepository creates a DuckDB-backed listing repository.
func NewListingRepository(db *sql.DB) ListingRepository {
	return &sqlListingRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlListingRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlListingRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS listings_seq START 1;

		CREATE TABLE IF NOT EXISTS listings (
			id INTEGER PRIMARY KEY DEFAULT nextval('listings_seq'),
			name VARCHAR NOT NULL,
			city VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			phone VARCHAR NOT NULL,
			phone_digits VARCHAR NOT NULL,
			whatsapp VARCHAR,
			whatsapp_digits VARCHAR,
			email VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			area VARCHAR,
			website_url VARCHAR,
			website_normalized VARCHAR,
			facebook_url VARCHAR,
			gmb_url VARCHAR,
			youtube_url VARCHAR,
			slug VARCHAR NOT NULL UNIQUE,
			point POINT_2D,
			location_verified BOOLEAN DEFAULT FALSE,
			status VARCHAR NOT NULL,
			approved_by VARCHAR,
			approved_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT
		);

		CREATE INDEX IF NOT EXISTS idx_listings_phone_digits ON listings(phone_digits);
		CREATE INDEX IF NOT EXISTS idx_listings_whatsapp_digits ON listings(whatsapp_digits);
		CREATE INDEX IF NOT EXISTS idx_listings_email ON listings(email);
		CREATE INDEX IF NOT EXISTS idx_listings_website ON listings(website_normalized);

		CREATE TABLE IF NOT EXISTS category_stats (
			category VARCHAR PRIMARY KEY,
			listing_count INTEGER NOT NULL DEFAULT 0
		);
	`)

	return err
}

// nullable maps "" to NULL for optional columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (r *sqlListingRepository) insert(q queryRower, l *Listing) (int64, error) {
	if err := l.computeH3(); err != nil {
		return 0, err
	}

	pointExpr := "NULL"

	args := []any{
		l.Name, l.City, l.Category,
		l.Phone, l.PhoneDigits,
		nullable(l.Whatsapp), nullable(l.WhatsappDigits),
		l.Email, l.Address, nullable(l.Area),
		nullable(l.WebsiteURL), nullable(l.WebsiteNormalized),
		nullable(l.FacebookURL), nullable(l.GmbURL), nullable(l.YoutubeURL),
		l.Slug,
	}

	if l.Point != nil {
		pointExpr = "ST_Point(?, ?)"

		args = append(args, l.Point.Lng, l.Point.Lat)
	}

	args = append(args,
		l.LocationVerified, l.Status, nullable(l.ApprovedBy),
		l.ApprovedAt, l.CreatedAt,
		l.H3Res1, l.H3Res2, l.H3Res3, l.H3Res4,
		l.H3Res5, l.H3Res6, l.H3Res7, l.H3Res8,
	)

	query := `
		INSERT INTO listings(
			name, city, category,
			phone, phone_digits,
			whatsapp, whatsapp_digits,
			email, address, area,
			website_url, website_normalized,
			facebook_url, gmb_url, youtube_url,
			slug, point,
			location_verified, status, approved_by,
			approved_at, created_at,
			h3_res1, h3_res2, h3_res3, h3_res4,
			h3_res5, h3_res6, h3_res7, h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ` + pointExpr + `,
		        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	if err := q.QueryRow(query, args...).Scan(&id); err != nil {
		return 0, err
	}

	l.ID = id

	return id, nil
}

func (r *sqlListingRepository) Insert(l *Listing) (int64, error) {
	return r.insert(r.db, l)
}

func (r *sqlListingRepository) BulkInsert(listings []*Listing) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	for _, l := range listings {
		if _, err := r.insert(tx, l); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}
	}

	return tx.Commit()
}

// buildMatchClause translates a MatchCondition into a WHERE fragment. All
// regex patterns inside cond were built from EscapeRegex'd input by the
// detector; nothing else may reach this point.
func buildMatchClause(cond *MatchCondition) (string, []any, error) {
	var clauses []string

	var args []any

	switch cond.Strategy {
	case MatchExactCollated:
		if len(cond.Equals) == 0 {
			return "", nil, errors.New("exact collated match without columns")
		}

		parts := make([]string, 0, len(cond.Equals))

		for _, eq := range cond.Equals {
			parts = append(parts, "lower("+eq.Column+") = lower(?)")
			args = append(args, eq.Value)
		}

		clauses = append(clauses, strings.Join(parts, " AND "))

	case MatchExactNormalizedOrRegex:
		var ors []string

		if cond.NormColumn != "" {
			ors = append(ors, cond.NormColumn+" = ?")
			args = append(args, cond.NormValue)
		}

		for _, col := range cond.RegexColumns {
			ors = append(ors, "regexp_matches("+col+", ?, 'i')")
			args = append(args, cond.Pattern)
		}

		if len(ors) == 0 {
			return "", nil, errors.New("normalized match without columns")
		}

		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")

	case MatchSubstringOnRaw:
		if len(cond.RegexColumns) == 0 || cond.Pattern == "" {
			return "", nil, errors.New("substring match without columns or pattern")
		}

		ors := make([]string, 0, len(cond.RegexColumns))

		for _, col := range cond.RegexColumns {
			ors = append(ors, "regexp_matches("+col+", ?, 'i')")
			args = append(args, cond.Pattern)
		}

		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")

	default:
		return "", nil, fmt.Errorf("unknown match strategy %d", cond.Strategy)
	}

	return strings.Join(clauses, " AND "), args, nil
}

func (r *sqlListingRepository) MatchExists(cond *MatchCondition, excludeID *int64) (bool, error) {
	clause, args, err := buildMatchClause(cond)
	if err != nil {
		return false, err
	}

	query := "SELECT EXISTS(SELECT 1 FROM listings WHERE " + clause

	if excludeID != nil {
		query += " AND id != ?"

		args = append(args, *excludeID)
	}

	query += ")"

	var exists bool
	if err := r.db.QueryRow(query, args...).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *sqlListingRepository) SlugExists(slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM listings WHERE slug = ?)", slug,
	).Scan(&exists)

	return exists, err
}

func (r *sqlListingRepository) CountApproved() (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM listings WHERE status = 'approved'",
	).Scan(&count)

	return count, err
}

func (r *sqlListingRepository) IncrementCategoryCount(category string) error {
	_, err := r.db.Exec(`
		INSERT INTO category_stats(category, listing_count) VALUES (?, 1)
		ON CONFLICT (category) DO UPDATE SET listing_count = listing_count + 1
	`, category)

	return err
}

// nullablePoint scans a nullable POINT_2D column.
type nullablePoint struct {
	point *spatial.Point
}

func (np *nullablePoint) Scan(value any) error {
	if value == nil {
		np.point = nil

		return nil
	}

	p := &spatial.Point{}
	if err := p.Scan(value); err != nil {
		return err
	}

	np.point = p

	return nil
}

func (r *sqlListingRepository) ListRecent(limit int) ([]*Listing, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, name, city, category,
		       phone, phone_digits,
		       whatsapp, whatsapp_digits,
		       email, address, area,
		       website_url, website_normalized,
		       facebook_url, gmb_url, youtube_url,
		       slug, point,
		       location_verified, status, approved_by,
		       approved_at, created_at
		FROM listings
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*Listing

	for rows.Next() {
		var l Listing

		var whatsapp, whatsappDigits, area sql.NullString

		var websiteURL, websiteNormalized sql.NullString

		var facebookURL, gmbURL, youtubeURL, approvedBy sql.NullString

		var approvedAt sql.NullTime

		var point nullablePoint

		err := rows.Scan(
			&l.ID, &l.Name, &l.City, &l.Category,
			&l.Phone, &l.PhoneDigits,
			&whatsapp, &whatsappDigits,
			&l.Email, &l.Address, &area,
			&websiteURL, &websiteNormalized,
			&facebookURL, &gmbURL, &youtubeURL,
			&l.Slug, &point,
			&l.LocationVerified, &l.Status, &approvedBy,
			&approvedAt, &l.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		l.Whatsapp = whatsapp.String
		l.WhatsappDigits = whatsappDigits.String
		l.Area = area.String
		l.WebsiteURL = websiteURL.String
		l.WebsiteNormalized = websiteNormalized.String
		l.FacebookURL = facebookURL.String
		l.GmbURL = gmbURL.String
		l.YoutubeURL = youtubeURL.String
		l.ApprovedBy = approvedBy.String
		l.ApprovedAt = approvedAt.Time
		l.Point = point.point

		listings = append(listings, &l)
	}

	return listings, rows.Err()
}

func (r *sqlListingRepository) Progress() (*ProgressStats, error) {
	stats := &ProgressStats{ByCity: make(map[string]int)}

	err := r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN location_verified THEN 1 ELSE 0 END), 0)
		FROM listings
	`).Scan(&stats.TotalListings, &stats.VerifiedLocation)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		SELECT city, COUNT(*)
		FROM listings
		GROUP BY city
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var city string

		var count int
		if err := rows.Scan(&city, &count); err != nil {
			return nil, err
		}

		stats.ByCity[city] = count
	}

	return stats, rows.Err()
}
