package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANIMIRROR_SOURCE_URL", "https://src.example")
	t.Setenv("ANIMIRROR_SITE_URL", "")
	t.Setenv("ANIMIRROR_LISTEN_ADDR", "")
	t.Setenv("ANIMIRROR_REQUEST_TIMEOUT", "")

	c := Load()
	if c.SourceURL != "https://src.example" {
		t.Fatalf("SourceURL = %q", c.SourceURL)
	}
	if c.SiteURL != "https://src.example" {
		t.Fatalf("SiteURL should fall back to SourceURL, got %q", c.SiteURL)
	}
	if c.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q", c.ListenAddr)
	}
	if c.RequestTimeout != 20*time.Second {
		t.Fatalf("RequestTimeout = %v", c.RequestTimeout)
	}
	if c.CharImageConcurrency != 8 {
		t.Fatalf("CharImageConcurrency = %d", c.CharImageConcurrency)
	}
}

func TestLoadTrimsTrailingSlash(t *testing.T) {
	t.Setenv("ANIMIRROR_SOURCE_URL", "https://src.example/")
	c := Load()
	if c.SourceURL != "https://src.example" {
		t.Fatalf("SourceURL = %q, want trailing slash stripped", c.SourceURL)
	}
}

func TestPageURLs(t *testing.T) {
	c := &Config{SourceURL: "https://src.example", SiteURL: "https://mirror.example"}

	if got := c.SeriesPageURL("my-show"); got != "https://src.example/anime/my-show/" {
		t.Fatalf("SeriesPageURL = %q", got)
	}
	if got := c.EpisodePageURL("my-show-episode-1"); got != "https://src.example/my-show-episode-1/" {
		t.Fatalf("EpisodePageURL = %q", got)
	}
	// Slugs with reserved characters must be escaped in the path.
	if got := c.SeriesPageURL("show with space"); got != "https://src.example/anime/show%20with%20space/" {
		t.Fatalf("SeriesPageURL escaped = %q", got)
	}
	if got := c.SeriesCanonicalURL("my-show"); got != "https://mirror.example/anime/my-show" {
		t.Fatalf("SeriesCanonicalURL = %q", got)
	}
}

func TestLoadDurationAndIntParsing(t *testing.T) {
	t.Setenv("ANIMIRROR_SOURCE_URL", "https://src.example")
	t.Setenv("ANIMIRROR_REQUEST_TIMEOUT", "45s")
	t.Setenv("ANIMIRROR_SCRAPE_DELAY", "bogus")
	t.Setenv("ANIMIRROR_CHAR_IMAGE_CONCURRENCY", "-3")

	c := Load()
	if c.RequestTimeout != 45*time.Second {
		t.Fatalf("RequestTimeout = %v", c.RequestTimeout)
	}
	if c.ScrapeDelay != 2*time.Second {
		t.Fatalf("ScrapeDelay = %v, want default on parse failure", c.ScrapeDelay)
	}
	if c.CharImageConcurrency != 8 {
		t.Fatalf("CharImageConcurrency = %d, want default for non-positive", c.CharImageConcurrency)
	}
}
