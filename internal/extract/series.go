// Package extract parses fetched source-site documents into tagged draft
// structures. Drafts are extraction results not yet reconciled with persisted
// state; the scrape engine decides what to do with them.
package extract

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/images"
)

// Character is one entry of a series' character list.
type Character struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	ImageURL string `json:"imageUrl"`
}

// EpisodeRef is a series-embedded episode stub. URL is the canonical episode
// slug, which doubles as the key of the richer episode cache record.
type EpisodeRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// SeriesDraft is the structured result of extracting one series page.
// Episodes are ordered ascending: index 0 is the earliest release.
type SeriesDraft struct {
	PageSlug         string
	Title            string
	AlternativeTitle string
	ImageURL         string
	Info             map[string]string
	Genres           []string
	Synopsis         string
	Characters       []Character
	Episodes         []EpisodeRef
}

// ImageResolver turns a remote image reference into a local web path. It must
// always return a usable path (images.Materializer satisfies this).
type ImageResolver interface {
	Materialize(remoteURL, baseName, category string) string
}

// SeriesInput carries everything Series needs besides the document.
type SeriesInput struct {
	Slug            string
	SourceURL       string // base URL stripped from episode hrefs
	Images          ImageResolver
	CharConcurrency int // max concurrent character image downloads; <=0 means 8
}

// labelSynonyms maps known source-language info labels to their canonical
// spelling. Unknown labels pass through unchanged.
var labelSynonyms = map[string]string{
	"dirilis": "Released",
	"tipe":    "Type",
}

// Series extracts a series page into a draft. The document must already have
// passed block-page classification (see the fetch package). Character images
// are resolved concurrently; an individual failure only costs that character
// its image, never the draft.
func Series(ctx context.Context, doc *goquery.Document, in SeriesInput) *SeriesDraft {
	d := &SeriesDraft{
		PageSlug: in.Slug,
		Info:     map[string]string{},
		Genres:   []string{},
		Episodes: []EpisodeRef{},
	}

	d.Title = strings.TrimSpace(doc.Find("h1.entry-title").Text())
	d.AlternativeTitle = strings.TrimSpace(doc.Find("span.alter").Text())

	if in.Images != nil {
		cover := imageAttr(doc.Find("div.thumb img"))
		d.ImageURL = in.Images.Materialize(cover, in.Slug, "")
	}

	extractInfo(doc, d)
	doc.Find("div.genxed a").Each(func(_ int, a *goquery.Selection) {
		d.Genres = append(d.Genres, strings.TrimSpace(a.Text()))
	})
	d.Synopsis = strings.Join(doc.Find(`div.entry-content[itemprop="description"] p`).Map(func(_ int, p *goquery.Selection) string {
		return strings.TrimSpace(p.Text())
	}), "\n")

	d.Characters = extractCharacters(ctx, doc, in)
	d.Episodes = extractEpisodes(doc, in.SourceURL)

	log.Debug().Str("slug", in.Slug).
		Int("episodes", len(d.Episodes)).
		Int("characters", len(d.Characters)).
		Msg("extract: series draft built")
	return d
}

// extractInfo walks the div.spe rows: each carries a bold label and a value area
// that may hold link elements. Link texts are joined with ", "; otherwise the
// trailing text is used. Only non-empty pairs are kept.
func extractInfo(doc *goquery.Document, d *SeriesDraft) {
	doc.Find("div.spe span").Each(func(_ int, row *goquery.Selection) {
		labelEl := row.Find("b")
		if labelEl.Length() == 0 {
			return
		}
		label := strings.TrimSpace(strings.Replace(labelEl.Text(), ":", "", 1))
		labelEl.Remove()

		value := strings.TrimSpace(row.Text())
		if links := row.Find("a"); links.Length() > 0 {
			value = strings.Join(links.Map(func(_ int, a *goquery.Selection) string {
				return strings.TrimSpace(a.Text())
			}), ", ")
		}

		if canonical, ok := labelSynonyms[strings.ToLower(label)]; ok {
			label = canonical
		}
		if label != "" && value != "" {
			d.Info[label] = value
		}
	})
}

// extractCharacters fans out all character image downloads concurrently and
// joins before returning. Entries missing a name or an image URL are dropped.
func extractCharacters(ctx context.Context, doc *goquery.Document, in SeriesInput) []Character {
	type card struct {
		name, role, imgURL string
	}
	var cards []card
	doc.Find("div.cvlist div.cvitem").Each(func(_ int, item *goquery.Selection) {
		c := card{
			name:   strings.TrimSpace(item.Find(".charname").Text()),
			role:   strings.TrimSpace(item.Find(".charrole").Text()),
			imgURL: imageAttr(item.Find(".cvcover img")),
		}
		if c.name != "" && c.imgURL != "" {
			cards = append(cards, c)
		}
	})
	if len(cards) == 0 {
		return nil
	}

	limit := in.CharConcurrency
	if limit <= 0 {
		limit = 8
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	out := make([]Character, len(cards))

	for i, c := range cards {
		wg.Add(1)
		go func(i int, c card) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				out[i] = Character{Name: c.name, Role: c.role, ImageURL: images.DefaultImagePath}
				return
			}
			base := in.Slug + "-char-" + strings.ToLower(images.SanitizeBaseName(c.name))
			out[i] = Character{
				Name:     c.name,
				Role:     c.role,
				ImageURL: in.Images.Materialize(c.imgURL, base, "characters"),
			}
		}(i, c)
	}
	wg.Wait()
	return out
}

// extractEpisodes gathers the episode list entries in document order (newest
// first on the source site) and reverses once complete, so index 0 is the
// earliest episode.
func extractEpisodes(doc *goquery.Document, sourceURL string) []EpisodeRef {
	eps := []EpisodeRef{}
	doc.Find("div.eplister ul li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a")
		href, _ := a.Attr("href")
		title := strings.TrimSpace(a.Find(".epl-title").Text())
		date := strings.TrimSpace(a.Find(".epl-date").Text())

		slug := EpisodeSlug(href, sourceURL)
		if href == "" || title == "" || slug == "" {
			return
		}
		eps = append(eps, EpisodeRef{Title: title, URL: slug, Date: date})
	})

	for i, j := 0, len(eps)-1; i < j; i, j = i+1, j-1 {
		eps[i], eps[j] = eps[j], eps[i]
	}
	return eps
}

// EpisodeSlug normalizes an episode href to its canonical slug: the site base
// prefix and any trailing slash are stripped.
func EpisodeSlug(href, sourceURL string) string {
	s := strings.TrimPrefix(href, sourceURL+"/")
	s = strings.TrimPrefix(s, "/")
	return strings.TrimSuffix(s, "/")
}

// imageAttr prefers the lazy-load attribute over src, matching how the source
// site marks up images.
func imageAttr(img *goquery.Selection) string {
	if v, ok := img.Attr("data-src"); ok && v != "" {
		return v
	}
	v, _ := img.Attr("src")
	return v
}
