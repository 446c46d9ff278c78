// Package fetch issues outbound requests to the source site and classifies
// the outcome: a usable document, a block page, a missing page, or a
// transient failure. No retry loop lives here — batch callers decide what to
// do with each class.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/httpclient"
)

const (
	// blockMarker appears in the <title> of the anti-automation interstitial
	// the source site serves instead of real content.
	blockMarker = "Just a moment..."

	// headingSelector must match on every real content page. Its absence
	// means the page shape is unusable even without an interstitial.
	headingSelector = "h1.entry-title"

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	acceptLanguage = "en-US,en;q=0.9,id;q=0.8"
)

// BrowserHeaders returns the fixed browser-mimicking header set sent with
// every request to the source site. referer should be the site base URL.
func BrowserHeaders(referer string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          acceptHeader,
		"Accept-Language": acceptLanguage,
		"Referer":         referer + "/",
	}
}

// BlockedError reports that the remote responded but the content does not
// match the expected page shape (interstitial or missing heading).
type BlockedError struct {
	URL    string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("fetch %s: blocked (%s)", e.URL, e.Reason)
}

// NotFoundError reports a 403 or 404 from the source: the slug does not exist
// remotely or access to it was refused outright.
type NotFoundError struct {
	URL    string
	Status int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// Client fetches pages from the source site.
type Client struct {
	http    *http.Client
	headers map[string]string
}

// New returns a Client sending browser-mimicking headers with referer set to
// sourceURL. client may be nil to use the shared default.
func New(sourceURL string, client *http.Client) *Client {
	if client == nil {
		client = httpclient.Default()
	}
	return &Client{http: client, headers: BrowserHeaders(sourceURL)}
}

// Page fetches url and parses it. Errors are classified: *NotFoundError for
// 403/404, *BlockedError when the document carries the interstitial marker or
// lacks the content heading, and plain errors for everything transient
// (network failure, 5xx, unparseable body).
func (c *Client) Page(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: build request: %w", url, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		log.Warn().Str("url", url).Int("status", resp.StatusCode).Msg("fetch: page inaccessible")
		return nil, &NotFoundError{URL: url, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: parse: %w", url, err)
	}

	if reason, blocked := blockReason(doc); blocked {
		log.Warn().Str("url", url).Str("reason", reason).Msg("fetch: block page detected")
		return nil, &BlockedError{URL: url, Reason: reason}
	}
	return doc, nil
}

// blockReason inspects a parsed document for the known block signatures.
func blockReason(doc *goquery.Document) (string, bool) {
	if strings.Contains(doc.Find("title").Text(), blockMarker) {
		return "interstitial challenge title", true
	}
	if doc.Find(headingSelector).Length() == 0 {
		return "missing content heading", true
	}
	return "", false
}

// IsBlocked reports whether err is a block-page classification.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

// IsNotFound reports whether err is a 403/404 classification.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
