// Package images materializes remote images into durable local storage and
// hands back web paths. Every failure path resolves to a usable placeholder
// path; callers never have to handle an error to get something displayable.
package images

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/metrics"
	"github.com/animirror/animirror/internal/safeurl"
)

const (
	// DefaultImagePath is the placeholder web path for series and character
	// images that could not be materialized.
	DefaultImagePath = "/images/default.jpg"

	// DefaultThumbPath is the placeholder for the "episodes" category.
	DefaultThumbPath = "/images/default_thumb.jpg"

	webRoot     = "/images"
	maxBaseName = 100
)

// allowedExtensions is the fixed allow-list for stored files. Anything else
// from the source URL is stored as .jpg.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// SanitizeBaseName replaces every character outside [A-Za-z0-9-_] with "-"
// and truncates to 100 bytes. Two different names can sanitize to the same
// base name and will share a file; that collision is the documented cache-key
// behavior, not something to paper over with hashing.
func SanitizeBaseName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	s := b.String()
	if len(s) > maxBaseName {
		s = s[:maxBaseName]
	}
	return s
}

// DefaultFor returns the placeholder path for a category.
func DefaultFor(category string) string {
	if category == "episodes" {
		return DefaultThumbPath
	}
	return DefaultImagePath
}

// Materializer downloads images beneath a root directory, one subdirectory
// per category, and serves them back as /images/... web paths.
type Materializer struct {
	root    string // on-disk root, e.g. ./public/images
	client  *http.Client
	headers map[string]string
}

// New returns a Materializer writing under root. headers are sent with every
// download request (the scraper's browser header set).
func New(root string, client *http.Client, headers map[string]string) *Materializer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Materializer{root: root, client: client, headers: headers}
}

// Materialize downloads remoteURL into the category directory under a
// filename derived from baseName, and returns the local web path. It is
// idempotent: when the derived filename already exists the existing path is
// returned without a download. It never returns an error — any failure
// resolves to the category's placeholder path.
func (m *Materializer) Materialize(remoteURL, baseName, category string) string {
	if !safeurl.IsFetchable(remoteURL) {
		log.Warn().Str("url", remoteURL).Msg("images: refusing non-http remote URL")
		return DefaultFor(category)
	}
	u, _ := url.Parse(remoteURL)

	ext := strings.ToLower(path.Ext(u.Path))
	if !allowedExtensions[ext] {
		log.Warn().Str("url", remoteURL).Str("ext", ext).Msg("images: non-standard extension, storing as .jpg")
		ext = ".jpg"
	}

	filename := SanitizeBaseName(baseName) + ext
	diskDir := filepath.Join(m.root, category)
	diskPath := filepath.Join(diskDir, filename)
	webPath := webRoot + "/" + filename
	if category != "" {
		webPath = webRoot + "/" + category + "/" + filename
	}

	if _, err := os.Stat(diskPath); err == nil {
		metrics.ImageMaterializations.WithLabelValues("hit").Inc()
		return webPath
	}

	if err := os.MkdirAll(diskDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", diskDir).Msg("images: create directory")
		metrics.ImageMaterializations.WithLabelValues("failed").Inc()
		return DefaultFor(category)
	}

	if err := m.download(remoteURL, diskPath); err != nil {
		log.Error().Err(err).Str("url", remoteURL).Msg("images: download failed")
		metrics.ImageMaterializations.WithLabelValues("failed").Inc()
		return DefaultFor(category)
	}

	log.Info().Str("url", remoteURL).Str("file", filename).Str("category", category).Msg("images: materialized")
	metrics.ImageMaterializations.WithLabelValues("downloaded").Inc()
	return webPath
}

// download streams remoteURL to diskPath. A write failure removes the partial
// file so a later attempt starts clean.
func (m *Materializer) download(remoteURL, diskPath string) error {
	req, err := http.NewRequest(http.MethodGet, remoteURL, nil)
	if err != nil {
		return err
	}
	for k, v := range m.headers {
		req.Header.Set(k, v)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: %s", remoteURL, resp.Status)
	}

	f, err := os.Create(diskPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(diskPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(diskPath)
		return err
	}
	return nil
}
