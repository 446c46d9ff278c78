// Package scrape coordinates fetching, extraction and persistence. It decides
// when a fresh extraction replaces cached state and when the cache wins.
package scrape

import (
	"context"
	"net/http"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/animirror/animirror/internal/config"
	"github.com/animirror/animirror/internal/extract"
	"github.com/animirror/animirror/internal/fetch"
	"github.com/animirror/animirror/internal/httpclient"
	"github.com/animirror/animirror/internal/images"
	"github.com/animirror/animirror/internal/store"
)

// Notifier receives change notifications for public page URLs. Implemented by
// indexnotify.Notifier; always best-effort.
type Notifier interface {
	Notify(ctx context.Context, pageURL, notificationType string)
}

// notifyUpdated matches indexnotify.TypeUpdated; declared here so the engine
// does not depend on the notifier implementation.
const notifyUpdated = "URL_UPDATED"

// Scraper owns the scrape lifecycle for series and episode pages. Concurrent
// requests for the same slug are collapsed to a single upstream fetch.
type Scraper struct {
	cfg     *config.Config
	fetcher *fetch.Client
	store   *store.Store
	images  extract.ImageResolver
	notify  Notifier

	group   singleflight.Group
	limiter *rate.Limiter
}

// New wires a Scraper. notify may be nil when change notification is not
// wanted (tests, one-shot CLI runs); client may be nil to use the shared
// client bounded by the configured request timeout.
func New(cfg *config.Config, st *store.Store, notify Notifier, client *http.Client) *Scraper {
	if client == nil {
		client = httpclient.WithTimeout(cfg.RequestTimeout)
	}
	delay := cfg.ScrapeDelay
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Scraper{
		cfg:     cfg,
		fetcher: fetch.New(cfg.SourceURL, client),
		store:   st,
		images:  images.New(cfg.ImageDir, client, fetch.BrowserHeaders(cfg.SourceURL)),
		notify:  notify,
		limiter: limiter,
	}
}

// notifyUpdate fires a change notification without tying it to the request
// lifetime. No-op when no notifier is configured.
func (s *Scraper) notifyUpdate(ctx context.Context, slug string) {
	if s.notify == nil {
		return
	}
	go s.notify.Notify(context.WithoutCancel(ctx), s.cfg.SeriesCanonicalURL(slug), notifyUpdated)
}
