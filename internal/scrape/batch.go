package scrape

import (
	"context"

	"github.com/rs/zerolog/log"
)

// BatchOutcome summarizes one batch run. The three slices partition the
// processed slugs; slugs left unprocessed by cancellation appear in none.
type BatchOutcome struct {
	Total   int      `json:"total"`
	Scraped []string `json:"scraped"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// BatchScrape reconciles a list of series slugs sequentially, pacing upstream
// fetches with the configured delay. Slugs already present in the store are
// skipped without touching the source site. One bad slug never aborts the
// batch; cancellation of ctx does.
func (s *Scraper) BatchScrape(ctx context.Context, slugs []string) *BatchOutcome {
	out := &BatchOutcome{
		Total:   len(slugs),
		Scraped: []string{},
		Skipped: []string{},
		Failed:  []string{},
	}

	for _, slug := range slugs {
		existing, err := s.store.GetSeries(ctx, slug)
		if err != nil {
			out.Failed = append(out.Failed, slug)
			continue
		}
		if existing != nil {
			out.Skipped = append(out.Skipped, slug)
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Int("remaining", out.Total-len(out.Scraped)-len(out.Skipped)-len(out.Failed)).
				Msg("scrape: batch cancelled")
			break
		}

		rec, err := s.ReconcileSeries(ctx, slug)
		switch {
		case err != nil:
			log.Error().Err(err).Str("slug", slug).Msg("scrape: batch slug failed")
			out.Failed = append(out.Failed, slug)
		case rec == nil:
			// Blocked or absent upstream.
			out.Failed = append(out.Failed, slug)
		default:
			out.Scraped = append(out.Scraped, slug)
		}
	}

	log.Info().Int("total", out.Total).
		Int("scraped", len(out.Scraped)).
		Int("skipped", len(out.Skipped)).
		Int("failed", len(out.Failed)).
		Msg("scrape: batch complete")
	return out
}
