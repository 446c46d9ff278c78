package scrape

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/extract"
	"github.com/animirror/animirror/internal/images"
	"github.com/animirror/animirror/internal/metrics"
	"github.com/animirror/animirror/internal/store"
)

// Episode result statuses.
const (
	StatusSuccess = "success" // freshly scraped and persisted
	StatusSkipped = "skipped" // complete cache record served, no fetch
	StatusFailed  = "failed"  // nothing usable; cache left untouched
)

// EpisodeResult is the envelope returned for every episode lookup. Status is
// always set; Data is present for success and skipped.
type EpisodeResult struct {
	Status string         `json:"status"`
	Data   *store.Episode `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// GetOrScrapeEpisode serves the episode cache record for slug, scraping the
// source page only when the cached record is absent or incomplete. A record is
// complete when both its streaming and download lists are non-empty; anything
// less triggers a re-scrape. A scrape that yields neither streams nor
// downloads is a failure and persists nothing, so a later attempt starts
// clean.
func (s *Scraper) GetOrScrapeEpisode(ctx context.Context, slug string) *EpisodeResult {
	v, _, _ := s.group.Do("episode:"+slug, func() (any, error) {
		return s.getOrScrapeEpisode(ctx, slug), nil
	})
	res, _ := v.(*EpisodeResult)
	return res
}

func (s *Scraper) getOrScrapeEpisode(ctx context.Context, slug string) *EpisodeResult {
	cached, err := s.store.GetEpisode(ctx, slug)
	if err != nil {
		metrics.EpisodeScrapes.WithLabelValues("failed").Inc()
		return &EpisodeResult{Status: StatusFailed, Error: err.Error()}
	}
	if cached != nil && len(cached.Streaming) > 0 && len(cached.Downloads) > 0 {
		metrics.EpisodeScrapes.WithLabelValues("skipped").Inc()
		return &EpisodeResult{Status: StatusSkipped, Data: cached}
	}

	doc, err := s.fetcher.Page(ctx, s.cfg.EpisodePageURL(slug))
	if err != nil {
		metrics.EpisodeScrapes.WithLabelValues("failed").Inc()
		log.Warn().Str("slug", slug).Err(err).Msg("scrape: episode page unavailable")
		return &EpisodeResult{Status: StatusFailed, Error: err.Error()}
	}

	draft := extract.Episode(doc, s.cfg.SourceURL)
	if len(draft.Streaming) == 0 && len(draft.Downloads) == 0 {
		metrics.EpisodeScrapes.WithLabelValues("failed").Inc()
		log.Warn().Str("slug", slug).Msg("scrape: episode page yielded no links")
		return &EpisodeResult{Status: StatusFailed, Error: "no streaming or download links found"}
	}

	parentImage := images.DefaultImagePath
	if draft.ParentSlug != "" {
		if img, err := s.store.SeriesImageURL(ctx, draft.ParentSlug); err == nil && img != "" {
			parentImage = img
		}
	}

	rec := &store.Episode{
		EpisodeSlug:   slug,
		Title:         draft.Title,
		ThumbnailURL:  draft.ThumbnailURL,
		AnimeTitle:    draft.ParentTitle,
		AnimeSlug:     draft.ParentSlug,
		AnimeImageURL: parentImage,
		Streaming:     draft.Streaming,
		Downloads:     draft.Downloads,
	}
	if err := s.store.UpsertEpisode(ctx, rec); err != nil {
		metrics.EpisodeScrapes.WithLabelValues("failed").Inc()
		return &EpisodeResult{Status: StatusFailed, Error: err.Error()}
	}

	// Re-read so manually curated fields (episode date) ride along.
	stored, err := s.store.GetEpisode(ctx, slug)
	if err != nil || stored == nil {
		stored = rec
	}
	metrics.EpisodeScrapes.WithLabelValues("success").Inc()
	log.Info().Str("slug", slug).
		Int("streams", len(rec.Streaming)).
		Int("download_groups", len(rec.Downloads)).
		Msg("scrape: episode cached")
	return &EpisodeResult{Status: StatusSuccess, Data: stored}
}
