package scrape

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/extract"
	"github.com/animirror/animirror/internal/fetch"
	"github.com/animirror/animirror/internal/metrics"
	"github.com/animirror/animirror/internal/store"
)

// ReconcileSeries fetches the source page for slug and replaces the stored
// record only when the extraction is new or carries more episodes than what
// is cached. A blocked or missing source page yields nil without touching
// persisted state, so callers can tell "scrape produced nothing" apart from
// a served record; only transient infrastructure failures surface as errors.
func (s *Scraper) ReconcileSeries(ctx context.Context, slug string) (*store.Series, error) {
	v, err, _ := s.group.Do("series:"+slug, func() (any, error) {
		return s.reconcileSeries(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	rec, _ := v.(*store.Series)
	return rec, nil
}

func (s *Scraper) reconcileSeries(ctx context.Context, slug string) (*store.Series, error) {
	existing, err := s.store.GetSeries(ctx, slug)
	if err != nil {
		metrics.SeriesScrapes.WithLabelValues("failed").Inc()
		return nil, err
	}

	doc, err := s.fetcher.Page(ctx, s.cfg.SeriesPageURL(slug))
	if err != nil {
		switch {
		case fetch.IsBlocked(err):
			metrics.SeriesScrapes.WithLabelValues("blocked").Inc()
			log.Warn().Str("slug", slug).Err(err).Msg("scrape: series blocked")
			return nil, nil
		case fetch.IsNotFound(err):
			metrics.SeriesScrapes.WithLabelValues("notfound").Inc()
			return nil, nil
		default:
			metrics.SeriesScrapes.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("scrape series %s: %w", slug, err)
		}
	}

	draft := extract.Series(ctx, doc, extract.SeriesInput{
		Slug:            slug,
		SourceURL:       s.cfg.SourceURL,
		Images:          s.images,
		CharConcurrency: s.cfg.CharImageConcurrency,
	})

	if existing != nil && len(draft.Episodes) <= len(existing.Episodes) {
		metrics.SeriesScrapes.WithLabelValues("unchanged").Inc()
		log.Debug().Str("slug", slug).
			Int("cached_episodes", len(existing.Episodes)).
			Int("fresh_episodes", len(draft.Episodes)).
			Msg("scrape: series cache still current")
		return existing, nil
	}

	if err := s.store.UpsertSeriesDraft(ctx, draft); err != nil {
		metrics.SeriesScrapes.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("scrape series %s: %w", slug, err)
	}
	metrics.SeriesScrapes.WithLabelValues("updated").Inc()
	log.Info().Str("slug", slug).Int("episodes", len(draft.Episodes)).Msg("scrape: series updated")

	s.notifyUpdate(ctx, slug)
	return s.store.GetSeries(ctx, slug)
}
