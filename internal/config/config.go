// Package config holds the immutable process configuration. Load reads it
// from the environment once at startup; everything downstream receives the
// value explicitly instead of consulting ambient globals.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds scraper, storage and server settings.
type Config struct {
	// SourceURL is the base URL of the remote site being mirrored, without a
	// trailing slash (e.g. https://example.tld). Required for any scraping;
	// there is deliberately no default host.
	SourceURL string

	// SiteURL is the canonical public base URL of this mirror, used when
	// submitting changed pages to the indexing API. Falls back to SourceURL
	// when empty.
	SiteURL string

	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string

	// DBPath is the SQLite database file.
	DBPath string

	// ImageDir is the on-disk root for materialized images. Category
	// subdirectories (e.g. "characters") are created beneath it on demand.
	ImageDir string

	// RequestTimeout bounds every outbound fetch. Expiry is classified as a
	// transient error, not a block.
	RequestTimeout time.Duration

	// ScrapeDelay is the minimum spacing between consecutive slugs in a batch
	// scrape. Batches are sequential on purpose; this only paces them.
	ScrapeDelay time.Duration

	// CharImageConcurrency caps concurrent character image downloads during a
	// single series extraction.
	CharImageConcurrency int

	// GoogleCredentialsJSON is the raw service-account JSON for the indexing
	// API. Empty disables change notification.
	GoogleCredentialsJSON string
}

// LoadEnvFile loads KEY=value pairs from path into the environment. A missing
// file is not an error so a plain environment-only deployment works.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads config from environment. Call LoadEnvFile(".env") first to use a
// .env file.
func Load() *Config {
	c := &Config{
		SourceURL:             strings.TrimSuffix(os.Getenv("ANIMIRROR_SOURCE_URL"), "/"),
		SiteURL:               strings.TrimSuffix(os.Getenv("ANIMIRROR_SITE_URL"), "/"),
		ListenAddr:            getEnv("ANIMIRROR_LISTEN_ADDR", ":8080"),
		DBPath:                getEnv("ANIMIRROR_DB", "./animirror.db"),
		ImageDir:              getEnv("ANIMIRROR_IMAGE_DIR", "./public/images"),
		RequestTimeout:        getEnvDuration("ANIMIRROR_REQUEST_TIMEOUT", 20*time.Second),
		ScrapeDelay:           getEnvDuration("ANIMIRROR_SCRAPE_DELAY", 2*time.Second),
		CharImageConcurrency:  getEnvInt("ANIMIRROR_CHAR_IMAGE_CONCURRENCY", 8),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_CREDENTIALS"),
	}
	if c.SiteURL == "" {
		c.SiteURL = c.SourceURL
	}
	if c.CharImageConcurrency <= 0 {
		c.CharImageConcurrency = 8
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 20 * time.Second
	}
	return c
}

// SeriesPageURL returns the remote URL of a series page for slug.
func (c *Config) SeriesPageURL(slug string) string {
	return c.SourceURL + "/anime/" + url.PathEscape(slug) + "/"
}

// EpisodePageURL returns the remote URL of an episode page for slug.
func (c *Config) EpisodePageURL(slug string) string {
	return c.SourceURL + "/" + url.PathEscape(slug) + "/"
}

// SeriesCanonicalURL returns the public URL submitted to the indexing API.
func (c *Config) SeriesCanonicalURL(slug string) string {
	return c.SiteURL + "/anime/" + url.PathEscape(slug)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
