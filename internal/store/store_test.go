package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/animirror/animirror/internal/extract"
	"github.com/animirror/animirror/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func draft(slug string, episodes int) *extract.SeriesDraft {
	d := &extract.SeriesDraft{
		PageSlug:         slug,
		Title:            "Title " + slug,
		AlternativeTitle: "Alt " + slug,
		ImageURL:         "/images/" + slug + ".jpg",
		Info:             map[string]string{"Type": "TV", "Released": "Jan 01, 2024"},
		Genres:           []string{"Action"},
		Synopsis:         "A show.",
		Characters:       []extract.Character{{Name: "Alice", Role: "Main", ImageURL: "/images/characters/a.jpg"}},
	}
	for i := 1; i <= episodes; i++ {
		d.Episodes = append(d.Episodes, extract.EpisodeRef{
			Title: "Episode", URL: slug + "-episode-" + string(rune('0'+i)),
		})
	}
	return d
}

func TestSeriesRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if rec, err := s.GetSeries(ctx, "missing"); err != nil || rec != nil {
		t.Fatalf("absent series = %v, %v; want nil, nil", rec, err)
	}

	if err := s.UpsertSeriesDraft(ctx, draft("my-show", 2)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec, err := s.GetSeries(ctx, "my-show")
	if err != nil || rec == nil {
		t.Fatalf("get: %v, %v", rec, err)
	}
	if rec.Title != "Title my-show" || rec.Info["Type"] != "TV" {
		t.Fatalf("record = %+v", rec)
	}
	if len(rec.Episodes) != 2 || len(rec.Characters) != 1 {
		t.Fatalf("nested fields = %d eps, %d chars", len(rec.Episodes), len(rec.Characters))
	}
	if rec.ViewCount != 0 {
		t.Fatalf("fresh view count = %d", rec.ViewCount)
	}
}

func TestSeriesUpsertPreservesViewCount(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.UpsertSeriesDraft(ctx, draft("my-show", 1)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.IncrementViewCount(ctx, "my-show"); err != nil {
			t.Fatal(err)
		}
	}

	d2 := draft("my-show", 3)
	d2.Title = "Renamed"
	if err := s.UpsertSeriesDraft(ctx, d2); err != nil {
		t.Fatal(err)
	}

	rec, err := s.GetSeries(ctx, "my-show")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "Renamed" || len(rec.Episodes) != 3 {
		t.Fatalf("scraped fields not replaced: %+v", rec)
	}
	if rec.ViewCount != 3 {
		t.Fatalf("view count = %d, want 3 after re-scrape", rec.ViewCount)
	}
}

func TestFindSeriesByEpisodeSlug(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.UpsertSeriesDraft(ctx, draft("show-a", 3)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertSeriesDraft(ctx, draft("show-b", 2)); err != nil {
		t.Fatal(err)
	}

	rec, err := s.FindSeriesByEpisodeSlug(ctx, "show-b-episode-2")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.PageSlug != "show-b" {
		t.Fatalf("found = %+v, want show-b", rec)
	}

	rec, err = s.FindSeriesByEpisodeSlug(ctx, "nowhere-episode-9")
	if err != nil || rec != nil {
		t.Fatalf("unknown episode = %v, %v; want nil, nil", rec, err)
	}
}

func TestSeriesImageURL(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if img, err := s.SeriesImageURL(ctx, "missing"); err != nil || img != "" {
		t.Fatalf("missing image = %q, %v", img, err)
	}
	if err := s.UpsertSeriesDraft(ctx, draft("my-show", 0)); err != nil {
		t.Fatal(err)
	}
	img, err := s.SeriesImageURL(ctx, "my-show")
	if err != nil || img != "/images/my-show.jpg" {
		t.Fatalf("image = %q, %v", img, err)
	}
}

func TestEpisodeUpsertPreservesDate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	ep := &store.Episode{
		EpisodeSlug:   "my-show-episode-1",
		Title:         "My Show Episode 1",
		ThumbnailURL:  "https://cdn/thumb.jpg",
		AnimeTitle:    "My Show",
		AnimeSlug:     "my-show",
		AnimeImageURL: "/images/my-show.jpg",
		Streaming:     []extract.StreamLink{{Name: "Server A", URL: "https://a/embed"}},
		Downloads: []extract.DownloadGroup{{
			Quality: "720p",
			Links:   []extract.DownloadLink{{Host: "HostA", URL: "https://dl/a"}},
		}},
	}
	if err := s.UpsertEpisode(ctx, ep); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEpisodeDate(ctx, ep.EpisodeSlug, "2024-01-01"); err != nil {
		t.Fatal(err)
	}

	// Re-scrape replaces links but keeps the curated date.
	ep.Streaming = append(ep.Streaming, extract.StreamLink{Name: "Server B", URL: "https://b/embed"})
	if err := s.UpsertEpisode(ctx, ep); err != nil {
		t.Fatal(err)
	}

	rec, err := s.GetEpisode(ctx, ep.EpisodeSlug)
	if err != nil || rec == nil {
		t.Fatalf("get: %v, %v", rec, err)
	}
	if len(rec.Streaming) != 2 {
		t.Fatalf("streaming = %+v", rec.Streaming)
	}
	if rec.EpisodeDate != "2024-01-01" {
		t.Fatalf("episode date = %q, want preserved", rec.EpisodeDate)
	}
	if rec.Downloads[0].Links[0].Host != "HostA" {
		t.Fatalf("downloads = %+v", rec.Downloads)
	}
}

func TestGetEpisodeAbsent(t *testing.T) {
	s := openStore(t)
	rec, err := s.GetEpisode(context.Background(), "missing")
	if err != nil || rec != nil {
		t.Fatalf("absent episode = %v, %v; want nil, nil", rec, err)
	}
}

func TestListSeriesOrdered(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, slug := range []string{"zeta", "alpha"} {
		d := draft(slug, 0)
		d.Title = slug
		if err := s.UpsertSeriesDraft(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListSeries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].PageSlug != "alpha" || list[1].PageSlug != "zeta" {
		t.Fatalf("list = %+v", list)
	}
}
