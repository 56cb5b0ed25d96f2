// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// URLsPerSitemap is the per-file URL cap used when computing how many
// paginated business sitemaps exist.
const URLsPerSitemap = 5000

// NotifierOptions configures the post-commit fan-out.
type NotifierOptions struct {
	// BaseURL is the public site root, e.g. https://karobar.pk
	BaseURL string

	// PingEndpoint is the search engine's sitemap ping URL.
	PingEndpoint string

	// MailFrom is the sender for confirmation emails.
	MailFrom string

	// URLsPerSitemap overrides the default per-sitemap cap.
	URLsPerSitemap int
}

// Notifier dispatches the best-effort side effects after a listing commit:
// a sitemap refresh ping and a confirmation email. Every failure is logged
// and dropped; nothing is retried and nothing reaches the submitter's
// response.
type Notifier struct {
	repo       ListingRepository
	mailer     Mailer
	opts       NotifierOptions
	httpClient *http.Client
}

// NewNotifier creates the fan-out. Mailer may be nil, in which case emails
// are skipped; that is a normal operating state, not an error.
func NewNotifier(repo ListingRepository, mailer Mailer, opts NotifierOptions) *Notifier {
	if opts.URLsPerSitemap <= 0 {
		opts.URLsPerSitemap = URLsPerSitemap
	}

	if opts.PingEndpoint == "" {
		opts.PingEndpoint = "https://www.google.com/ping"
	}

	return &Notifier{
		repo:   repo,
		mailer: mailer,
		opts:   opts,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ListingApproved implements ApprovalNotifier. Both notifications are
// independent; one failing does not stop the other.
func (n *Notifier) ListingApproved(l *Listing) {
	n.pingSitemaps()
	n.sendConfirmation(l)
}

// sitemapURLs computes the set of sitemap URLs that could have changed:
// the index, the static-pages sitemap, and however many paginated business
// sitemaps the current approved count requires.
func (n *Notifier) sitemapURLs() ([]string, error) {
	count, err := n.repo.CountApproved()
	if err != nil {
		return nil, fmt.Errorf("counting approved listings: %w", err)
	}

	pages := (count + n.opts.URLsPerSitemap - 1) / n.opts.URLsPerSitemap
	if pages < 1 {
		pages = 1
	}

	urls := []string{
		n.opts.BaseURL + "/sitemap.xml",
		n.opts.BaseURL + "/sitemap-static.xml",
	}

	for i := 1; i <= pages; i++ {
		urls = append(urls, fmt.Sprintf("%s/sitemap-businesses-%d.xml", n.opts.BaseURL, i))
	}

	return urls, nil
}

func (n *Notifier) pingSitemaps() {
	if n.opts.BaseURL == "" {
		return
	}

	urls, err := n.sitemapURLs()
	if err != nil {
		log.Printf("Sitemap ping skipped - %s", err)

		return
	}

	var wg sync.WaitGroup

	for _, sitemapURL := range urls {
		wg.Add(1)

		go func(sitemapURL string) {
			defer wg.Done()

			pingURL := n.opts.PingEndpoint + "?sitemap=" + url.QueryEscape(sitemapURL)

			resp, err := n.httpClient.Get(pingURL)
			if err != nil {
				log.Printf("Sitemap ping failed for %s - %s", sitemapURL, err)

				return
			}

			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				log.Printf("Sitemap ping for %s returned status %d", sitemapURL, resp.StatusCode)
			}
		}(sitemapURL)
	}

	wg.Wait()
}

func (n *Notifier) sendConfirmation(l *Listing) {
	// Missing recipient or transport are normal states, silently skip.
	if l.Email == "" || n.mailer == nil {
		return
	}

	listingURL := n.opts.BaseURL + "/business/" + l.Slug

	msg := &Message{
		From:    n.opts.MailFrom,
		To:      l.Email,
		Subject: fmt.Sprintf("Your listing %q is now live", l.Name),
		Text: fmt.Sprintf(
			"Assalam-o-Alaikum,\n\n"+
				"Your business %q has been approved and published in the directory.\n\n"+
				"View it here: %s\n\n"+
				"Karobar Directory",
			l.Name, listingURL,
		),
		HTML: fmt.Sprintf(
			"<p>Assalam-o-Alaikum,</p>"+
				"<p>Your business <strong>%s</strong> has been approved and published in the directory.</p>"+
				"<p><a href=%q>View your listing</a></p>"+
				"<p>Karobar Directory</p>",
			html.EscapeString(l.Name), listingURL,
		),
	}

	if err := n.mailer.Send(msg); err != nil {
		log.Printf("Confirmation email to %s failed - %s", l.Email, err)
	}
}
