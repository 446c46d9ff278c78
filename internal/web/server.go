// Package web exposes the store and scrape engine over HTTP. Handlers are
// thin: classification and policy live in the scrape package.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/config"
	"github.com/animirror/animirror/internal/extract"
	"github.com/animirror/animirror/internal/scrape"
	"github.com/animirror/animirror/internal/store"
)

// Server routes API requests to the store and scraper.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	scraper *scrape.Scraper
	mux     *http.ServeMux
}

// New builds the server and its routes.
func New(cfg *config.Config, st *store.Store, scraper *scrape.Scraper) *Server {
	s := &Server{cfg: cfg, store: st, scraper: scraper, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /api/anime", s.handleListAnime)
	s.mux.HandleFunc("GET /api/anime/{slug}", s.handleAnime)
	s.mux.HandleFunc("GET /api/watch/{slug}", s.handleWatch)
	s.mux.HandleFunc("POST /api/scrape/{slug}", s.handleScrape)
	s.mux.HandleFunc("GET /api/batch-scrape", s.handleBatchScrape)
	s.mux.Handle("GET /images/", http.StripPrefix("/images/",
		http.FileServer(http.Dir(cfg.ImageDir))))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleListAnime(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSeries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleAnime serves the persisted record only; scraping is an explicit POST.
// The view counter increment is detached so a slow disk never delays the
// response.
func (s *Server) handleAnime(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	rec, err := s.store.GetSeries(r.Context(), slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "anime not found")
		return
	}

	go func(ctx context.Context) {
		if err := s.store.IncrementViewCount(ctx, slug); err != nil {
			log.Error().Err(err).Str("slug", slug).Msg("web: view count increment")
		}
	}(context.WithoutCancel(r.Context()))

	writeJSON(w, http.StatusOK, rec)
}

// navigation points at the neighboring entries of the parent series' episode
// list. The list is ascending, so prev is the lower index.
type navigation struct {
	Prev *extract.EpisodeRef `json:"prev,omitempty"`
	Next *extract.EpisodeRef `json:"next,omitempty"`
}

type watchResponse struct {
	*scrape.EpisodeResult
	Navigation *navigation `json:"navigation,omitempty"`
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	res := s.scraper.GetOrScrapeEpisode(r.Context(), slug)

	resp := watchResponse{EpisodeResult: res}
	if res.Status != scrape.StatusFailed {
		resp.Navigation = s.episodeNavigation(r.Context(), slug)
	}

	status := http.StatusOK
	if res.Status == scrape.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// episodeNavigation finds slug in the parent series' ascending episode array.
// Missing parent or unlisted episode just means no navigation.
func (s *Server) episodeNavigation(ctx context.Context, slug string) *navigation {
	parent, err := s.store.FindSeriesByEpisodeSlug(ctx, slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("web: navigation lookup")
		return nil
	}
	if parent == nil {
		return nil
	}
	for i := range parent.Episodes {
		if parent.Episodes[i].URL != slug {
			continue
		}
		nav := &navigation{}
		if i > 0 {
			nav.Prev = &parent.Episodes[i-1]
		}
		if i < len(parent.Episodes)-1 {
			nav.Next = &parent.Episodes[i+1]
		}
		return nav
	}
	return nil
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	rec, err := s.scraper.ReconcileSeries(r.Context(), slug)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "source page blocked or not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleBatchScrape(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("slugs")
	var slugs []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			slugs = append(slugs, p)
		}
	}
	if len(slugs) == 0 {
		writeError(w, http.StatusBadRequest, "slugs query parameter required")
		return
	}
	writeJSON(w, http.StatusOK, s.scraper.BatchScrape(r.Context(), slugs))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("web: encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
