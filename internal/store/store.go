// Package store persists series and episode cache records in SQLite. Records
// are keyed by slug; nested fields are stored as JSON text. Upserts touch
// scraped columns only, so counters and manually curated fields survive every
// re-scrape.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/animirror/animirror/internal/extract"
)

// Series is one persisted series record.
type Series struct {
	PageSlug         string               `json:"pageSlug"`
	Title            string               `json:"title"`
	AlternativeTitle string               `json:"alternativeTitle"`
	ImageURL         string               `json:"imageUrl"`
	Info             map[string]string    `json:"info"`
	Genres           []string             `json:"genres"`
	Synopsis         string               `json:"synopsis"`
	Characters       []extract.Character  `json:"characters"`
	Episodes         []extract.EpisodeRef `json:"episodes"`
	ViewCount        int64                `json:"viewCount"`
}

// Episode is one persisted episode cache record — a richer, independently
// keyed cache next to the series' embedded episode stubs. The parent
// reference fields are denormalized; nothing enforces them.
type Episode struct {
	EpisodeSlug   string                  `json:"episodeSlug"`
	Title         string                  `json:"title"`
	ThumbnailURL  string                  `json:"thumbnailUrl"`
	AnimeTitle    string                  `json:"animeTitle"`
	AnimeSlug     string                  `json:"animeSlug"`
	AnimeImageURL string                  `json:"animeImageUrl"`
	Streaming     []extract.StreamLink    `json:"streaming"`
	Downloads     []extract.DownloadGroup `json:"downloads"`
	EpisodeDate   string                  `json:"episodeDate,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS series (
	page_slug         TEXT PRIMARY KEY,
	title             TEXT NOT NULL DEFAULT '',
	alternative_title TEXT NOT NULL DEFAULT '',
	image_url         TEXT NOT NULL DEFAULT '',
	info              TEXT NOT NULL DEFAULT '{}',
	genres            TEXT NOT NULL DEFAULT '[]',
	synopsis          TEXT NOT NULL DEFAULT '',
	characters        TEXT NOT NULL DEFAULT '[]',
	episodes          TEXT NOT NULL DEFAULT '[]',
	view_count        INTEGER NOT NULL DEFAULT 0,
	updated_at        TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE TABLE IF NOT EXISTS episodes (
	episode_slug    TEXT PRIMARY KEY,
	title           TEXT NOT NULL DEFAULT '',
	thumbnail_url   TEXT NOT NULL DEFAULT '',
	anime_title     TEXT NOT NULL DEFAULT '',
	anime_slug      TEXT NOT NULL DEFAULT '',
	anime_image_url TEXT NOT NULL DEFAULT '',
	streaming       TEXT NOT NULL DEFAULT '[]',
	downloads       TEXT NOT NULL DEFAULT '[]',
	episode_date    TEXT NOT NULL DEFAULT '',
	updated_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite allows one writer; a single pooled connection avoids SQLITE_BUSY
	// under concurrent upserts.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// GetSeries returns the record for slug, or nil when absent.
func (s *Store) GetSeries(ctx context.Context, slug string) (*Series, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT page_slug, title, alternative_title, image_url, info, genres,
		       synopsis, characters, episodes, view_count
		FROM series WHERE page_slug = ?`, slug)
	return scanSeries(row)
}

// UpsertSeriesDraft writes a fresh extraction draft. Scraped fields are
// replaced wholesale; view_count (and any future non-scraped column) is left
// untouched on conflict.
func (s *Store) UpsertSeriesDraft(ctx context.Context, d *extract.SeriesDraft) error {
	info, err := json.Marshal(orEmptyMap(d.Info))
	if err != nil {
		return fmt.Errorf("store: marshal info for %s: %w", d.PageSlug, err)
	}
	genres := mustJSONArray(d.Genres)
	characters := mustJSONArray(d.Characters)
	episodes := mustJSONArray(d.Episodes)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO series (page_slug, title, alternative_title, image_url, info,
		                    genres, synopsis, characters, episodes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(page_slug) DO UPDATE SET
			title             = excluded.title,
			alternative_title = excluded.alternative_title,
			image_url         = excluded.image_url,
			info              = excluded.info,
			genres            = excluded.genres,
			synopsis          = excluded.synopsis,
			characters        = excluded.characters,
			episodes          = excluded.episodes,
			updated_at        = excluded.updated_at`,
		d.PageSlug, d.Title, d.AlternativeTitle, d.ImageURL, string(info),
		genres, d.Synopsis, characters, episodes)
	if err != nil {
		return fmt.Errorf("store: upsert series %s: %w", d.PageSlug, err)
	}
	return nil
}

// IncrementViewCount bumps the presentation-layer view counter.
func (s *Store) IncrementViewCount(ctx context.Context, slug string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE series SET view_count = view_count + 1 WHERE page_slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("store: increment views for %s: %w", slug, err)
	}
	return nil
}

// ListSeries returns all series ordered by title.
func (s *Store) ListSeries(ctx context.Context) ([]*Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_slug, title, alternative_title, image_url, info, genres,
		       synopsis, characters, episodes, view_count
		FROM series ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("store: list series: %w", err)
	}
	defer rows.Close()

	var out []*Series
	for rows.Next() {
		rec, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindSeriesByEpisodeSlug returns the series whose embedded episode list
// carries episodeSlug, or nil. The candidate filter is a JSON-text LIKE; the
// decoded episode list is the authority.
func (s *Store) FindSeriesByEpisodeSlug(ctx context.Context, episodeSlug string) (*Series, error) {
	needle, err := json.Marshal(episodeSlug)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_slug, title, alternative_title, image_url, info, genres,
		       synopsis, characters, episodes, view_count
		FROM series WHERE episodes LIKE ?`, "%"+string(needle)+"%")
	if err != nil {
		return nil, fmt.Errorf("store: find series by episode %s: %w", episodeSlug, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		for _, ep := range rec.Episodes {
			if ep.URL == episodeSlug {
				return rec, nil
			}
		}
	}
	return nil, rows.Err()
}

// SeriesImageURL returns the stored local image path for slug, or "" when the
// series is unknown.
func (s *Store) SeriesImageURL(ctx context.Context, slug string) (string, error) {
	var img string
	err := s.db.QueryRowContext(ctx,
		`SELECT image_url FROM series WHERE page_slug = ?`, slug).Scan(&img)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: series image for %s: %w", slug, err)
	}
	return img, nil
}

// GetEpisode returns the cache record for slug, or nil when absent.
func (s *Store) GetEpisode(ctx context.Context, slug string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT episode_slug, title, thumbnail_url, anime_title, anime_slug,
		       anime_image_url, streaming, downloads, episode_date
		FROM episodes WHERE episode_slug = ?`, slug)

	var rec Episode
	var streaming, downloads string
	err := row.Scan(&rec.EpisodeSlug, &rec.Title, &rec.ThumbnailURL,
		&rec.AnimeTitle, &rec.AnimeSlug, &rec.AnimeImageURL,
		&streaming, &downloads, &rec.EpisodeDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get episode %s: %w", slug, err)
	}
	if err := json.Unmarshal([]byte(streaming), &rec.Streaming); err != nil {
		return nil, fmt.Errorf("store: decode streaming for %s: %w", slug, err)
	}
	if err := json.Unmarshal([]byte(downloads), &rec.Downloads); err != nil {
		return nil, fmt.Errorf("store: decode downloads for %s: %w", slug, err)
	}
	return &rec, nil
}

// UpsertEpisode writes the scraped fields of an episode cache record. The
// episode_date column is deliberately absent from the update set: it is
// assigned manually (SetEpisodeDate) and survives re-scrapes.
func (s *Store) UpsertEpisode(ctx context.Context, e *Episode) error {
	streaming := mustJSONArray(e.Streaming)
	downloads := mustJSONArray(e.Downloads)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (episode_slug, title, thumbnail_url, anime_title,
		                      anime_slug, anime_image_url, streaming, downloads, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(episode_slug) DO UPDATE SET
			title           = excluded.title,
			thumbnail_url   = excluded.thumbnail_url,
			anime_title     = excluded.anime_title,
			anime_slug      = excluded.anime_slug,
			anime_image_url = excluded.anime_image_url,
			streaming       = excluded.streaming,
			downloads       = excluded.downloads,
			updated_at      = excluded.updated_at`,
		e.EpisodeSlug, e.Title, e.ThumbnailURL, e.AnimeTitle,
		e.AnimeSlug, e.AnimeImageURL, streaming, downloads)
	if err != nil {
		return fmt.Errorf("store: upsert episode %s: %w", e.EpisodeSlug, err)
	}
	return nil
}

// SetEpisodeDate records a manually assigned date for an episode.
func (s *Store) SetEpisodeDate(ctx context.Context, slug, date string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE episodes SET episode_date = ? WHERE episode_slug = ?`, date, slug)
	if err != nil {
		return fmt.Errorf("store: set episode date for %s: %w", slug, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*Series, error) {
	var rec Series
	var info, genres, characters, episodes string
	err := row.Scan(&rec.PageSlug, &rec.Title, &rec.AlternativeTitle, &rec.ImageURL,
		&info, &genres, &rec.Synopsis, &characters, &episodes, &rec.ViewCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan series: %w", err)
	}
	if err := json.Unmarshal([]byte(info), &rec.Info); err != nil {
		return nil, fmt.Errorf("store: decode info for %s: %w", rec.PageSlug, err)
	}
	if err := json.Unmarshal([]byte(genres), &rec.Genres); err != nil {
		return nil, fmt.Errorf("store: decode genres for %s: %w", rec.PageSlug, err)
	}
	if err := json.Unmarshal([]byte(characters), &rec.Characters); err != nil {
		return nil, fmt.Errorf("store: decode characters for %s: %w", rec.PageSlug, err)
	}
	if err := json.Unmarshal([]byte(episodes), &rec.Episodes); err != nil {
		return nil, fmt.Errorf("store: decode episodes for %s: %w", rec.PageSlug, err)
	}
	return &rec, nil
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// mustJSONArray marshals a slice, treating nil as the empty array. The input
// shapes here cannot fail to marshal.
func mustJSONArray[T any](v []T) string {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
