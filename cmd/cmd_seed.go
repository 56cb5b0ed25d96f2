// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/karobarpk/karobar/listing"
	"github.com/karobarpk/karobar/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var seedOptions = struct {
	dbPath string
	dryRun bool
}{}

// seedRecord is one entry of the import file: a submission plus optional
// pre-resolved coordinates.
type seedRecord struct {
	listing.Submission
}

var seedCmd = &cobra.Command{
	Use:   "seed <listings.json>",
	Short: "Bulk import listings from a JSON file",
	Long: `Imports listings from a JSON array of submissions. Records are
normalized and slugged the same way the intake pipeline does, but skip
duplicate detection, geocoding and notifications. Valid records are
inserted in a single transaction; invalid ones are logged and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading seed file: %w", err)
		}

		var records []seedRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parsing seed file: %w", err)
		}

		db, err := sql.Open("duckdb", seedOptions.dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo := listing.NewListingRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(records),
				progressbar.OptionSetDescription("Importing listings"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		imported, failed, err := runImport(repo, records, time.Now(), seedOptions.dryRun, func() {
			if bar != nil {
				if err := bar.Add(1); err != nil {
					log.Printf("Updating progress bar: %s", err)
				}
			}
		})
		if err != nil {
			return err
		}

		log.Printf("Import complete - %d imported, %d failed", imported, failed)

		return nil
	},
}

// runImport builds listings from the records and persists the valid ones in
// one transaction. Invalid records are logged and skipped; they never abort
// the batch. Dry runs validate and slug but write nothing.
func runImport(repo listing.ListingRepository, records []seedRecord, now time.Time, dryRun bool, progress func()) (int, int, error) {
	seen := make(map[string]bool)

	var batch []*listing.Listing

	failed := 0

	for i, rec := range records {
		l, err := buildImportListing(repo, &rec, now, seen)
		if err != nil {
			failed++

			log.Printf("[%d/%d] Import failed - %s", i+1, len(records), err)
		} else {
			seen[l.Slug] = true

			batch = append(batch, l)
		}

		if progress != nil {
			progress()
		}
	}

	if dryRun || len(batch) == 0 {
		return len(batch), failed, nil
	}

	if err := repo.BulkInsert(batch); err != nil {
		return 0, failed, fmt.Errorf("inserting batch: %w", err)
	}

	for _, l := range batch {
		if err := repo.IncrementCategoryCount(l.Category); err != nil {
			log.Printf("Incrementing category counter for %q failed - %s", l.Category, err)
		}
	}

	return len(batch), failed, nil
}

func buildImportListing(repo listing.ListingRepository, rec *seedRecord, now time.Time, seen map[string]bool) (*listing.Listing, error) {
	if err := listing.ValidateSubmission(&rec.Submission); err != nil {
		return nil, fmt.Errorf("%q: %w", rec.Name, err)
	}

	slug, err := assignImportSlug(repo, rec.Name, now, seen)
	if err != nil {
		return nil, err
	}

	var point *spatial.Point
	if rec.Latitude != nil && rec.Longitude != nil {
		point = &spatial.Point{Lat: *rec.Latitude, Lng: *rec.Longitude}
	}

	return &listing.Listing{
		Name:              rec.Name,
		City:              rec.City,
		Category:          rec.Category,
		Phone:             rec.Phone,
		PhoneDigits:       listing.NormalizePhone(rec.Phone),
		Whatsapp:          rec.Whatsapp,
		WhatsappDigits:    listing.NormalizePhone(rec.Whatsapp),
		Email:             listing.NormalizeEmail(rec.Email),
		Address:           rec.Address,
		Area:              rec.Area,
		WebsiteURL:        rec.WebsiteURL,
		WebsiteNormalized: listing.NormalizeURL(rec.WebsiteURL),
		FacebookURL:       rec.FacebookURL,
		GmbURL:            rec.GmbURL,
		YoutubeURL:        rec.YoutubeURL,
		Slug:              slug,
		Point:             point,
		LocationVerified:  point != nil,
		Status:            "approved",
		ApprovedBy:        "import",
		ApprovedAt:        now,
		CreatedAt:         now,
	}, nil
}

// assignImportSlug extends the store-backed collision loop with the slugs
// already claimed by earlier records of the same batch, which the store
// cannot see before the transaction commits.
func assignImportSlug(repo listing.ListingRepository, name string, now time.Time, seen map[string]bool) (string, error) {
	base, err := listing.AssignSlug(repo, name, now)
	if err != nil {
		return "", err
	}

	if !seen[base] {
		return base, nil
	}

	for suffix := 1; ; suffix++ {
		candidate := fmt.Sprintf("%s-%d", base, suffix)

		taken, err := repo.SlugExists(candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}

		if !taken && !seen[candidate] {
			return candidate, nil
		}
	}
}

func init() {
	seedCmd.Flags().StringVar(&seedOptions.dbPath, "db", "karobar.duckdb", "path to the DuckDB database file")
	seedCmd.Flags().BoolVar(&seedOptions.dryRun, "dry-run", false, "validate without persisting")

	rootCmd.AddCommand(seedCmd)
}
