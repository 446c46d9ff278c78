// Command animirror: scrape-and-cache mirror for a remote anime catalog.
//
//	run      Serve the HTTP API: cached records, on-demand scrapes, images, metrics
//	scrape   One-shot series reconcile for the given slugs
//	episode  One-shot episode cache fill for the given slugs
//	batch    Sequential paced batch scrape of a slug list
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/config"
	"github.com/animirror/animirror/internal/indexnotify"
	"github.com/animirror/animirror/internal/scrape"
	"github.com/animirror/animirror/internal/store"
	"github.com/animirror/animirror/internal/web"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <run|scrape|episode|batch> [args]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  run               Serve HTTP API on ANIMIRROR_LISTEN_ADDR\n")
	fmt.Fprintf(os.Stderr, "  scrape <slug>...  Reconcile series pages once and exit\n")
	fmt.Fprintf(os.Stderr, "  episode <slug>... Fill episode cache records once and exit\n")
	fmt.Fprintf(os.Stderr, "  batch <a,b,c>     Batch scrape, skipping already-cached slugs\n")
	os.Exit(1)
}

func main() {
	_ = config.LoadEnvFile(".env")
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	if lvl, err := zerolog.ParseLevel(os.Getenv("ANIMIRROR_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	if len(os.Args) < 2 {
		usage()
	}

	cfg := config.Load()
	if cfg.SourceURL == "" {
		log.Fatal().Msg("ANIMIRROR_SOURCE_URL must be set")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer st.Close()

	notifier, err := indexnotify.New([]byte(cfg.GoogleCredentialsJSON))
	if err != nil {
		log.Fatal().Err(err).Msg("indexing credentials rejected")
	}

	scraper := scrape.New(cfg, st, notifier, nil)

	switch os.Args[1] {
	case "run":
		runServer(cfg, st, scraper)

	case "scrape":
		if len(os.Args) < 3 {
			usage()
		}
		ctx := context.Background()
		for _, slug := range os.Args[2:] {
			rec, err := scraper.ReconcileSeries(ctx, slug)
			switch {
			case err != nil:
				log.Error().Err(err).Str("slug", slug).Msg("scrape failed")
			case rec == nil:
				log.Warn().Str("slug", slug).Msg("source page blocked or missing, nothing scraped")
			default:
				log.Info().Str("slug", slug).Int("episodes", len(rec.Episodes)).Msg("scraped")
			}
		}

	case "episode":
		if len(os.Args) < 3 {
			usage()
		}
		ctx := context.Background()
		for _, slug := range os.Args[2:] {
			res := scraper.GetOrScrapeEpisode(ctx, slug)
			log.Info().Str("slug", slug).Str("status", res.Status).Str("error", res.Error).Msg("episode")
		}

	case "batch":
		if len(os.Args) < 3 {
			usage()
		}
		var slugs []string
		for _, part := range strings.Split(strings.Join(os.Args[2:], ","), ",") {
			if p := strings.TrimSpace(part); p != "" {
				slugs = append(slugs, p)
			}
		}
		out := scraper.BatchScrape(context.Background(), slugs)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)

	default:
		usage()
	}
}

func runServer(cfg *config.Config, st *store.Store, scraper *scrape.Scraper) {
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           web.New(cfg, st, scraper).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("source", cfg.SourceURL).Msg("serving")
		errc <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		log.Fatal().Err(err).Msg("server exited")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}
