// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/karobarpk/karobar/listing"
	"github.com/spf13/cobra"
)

var serveOptions = struct {
	dbPath       string
	listen       string
	baseURL      string
	pingEndpoint string
	country      string
	httpTrace    bool
}{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the listing intake HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := sql.Open("duckdb", serveOptions.dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo := listing.NewListingRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		geocoder := buildGeocoder()
		notifier := listing.NewNotifier(repo, buildMailer(), listing.NotifierOptions{
			BaseURL:      serveOptions.baseURL,
			PingEndpoint: serveOptions.pingEndpoint,
			MailFrom:     os.Getenv("MAIL_FROM"),
		})

		service := listing.NewService(repo, geocoder, notifier, serveOptions.country)
		server := listing.NewServer(service, repo)

		log.Printf("Listing intake server starting on %s", serveOptions.listen)

		return server.Run(serveOptions.listen)
	},
}

// buildGeocoder assembles the ordered provider list: Google Maps when a key
// is available (environment first, ADC second), Nominatim always as the
// throttled free fallback.
func buildGeocoder() *listing.Geocoder {
	var providers []listing.GeocodingProvider

	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

		var err error

		apiKey, err = listing.GoogleAPIKeyFromADC(context.Background())
		if err != nil {
			log.Printf("No Google Maps key available (%v), relying on Nominatim only", err)
		}
	}

	if apiKey != "" {
		log.Println("Geocoding: Google Maps (primary), Nominatim (fallback)")

		providers = append(providers, listing.NewGoogleMapsGeocoder(apiKey))
	} else {
		log.Println("Geocoding: Nominatim only")
	}

	nominatimOpts := &listing.NominatimOptions{
		UserAgent: "karobar/" + Version + " (business directory; admin@karobar.pk)",
	}
	if serveOptions.httpTrace {
		nominatimOpts.HTTPTraceWriter = os.Stderr
	}

	providers = append(providers, listing.NewNominatimGeocoder(nominatimOpts))

	return listing.NewGeocoder(providers...)
}

// buildMailer returns nil when SMTP is not configured; confirmation emails
// are then skipped, which is a normal operating state.
func buildMailer() listing.Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}

	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			port = parsed
		}
	}

	return listing.NewSMTPMailer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"))
}

func init() {
	serveCmd.Flags().StringVar(&serveOptions.dbPath, "db", "karobar.duckdb", "path to the DuckDB database file")
	serveCmd.Flags().StringVar(&serveOptions.listen, "listen", "localhost:8080", "address to listen on")
	serveCmd.Flags().StringVar(&serveOptions.baseURL, "base-url", "https://karobar.pk", "public site root used in sitemaps and emails")
	serveCmd.Flags().StringVar(&serveOptions.pingEndpoint, "ping-endpoint", "https://www.google.com/ping", "search engine sitemap ping endpoint")
	serveCmd.Flags().StringVar(&serveOptions.country, "country", "Pakistan", "country appended to geocoding queries")
	serveCmd.Flags().BoolVar(&serveOptions.httpTrace, "http-trace", false, "trace outbound geocoding HTTP requests")

	rootCmd.AddCommand(serveCmd)
}
