package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/animirror/animirror/internal/images"
)

// StreamLink is one playable mirror.
type StreamLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DownloadLink is one host/url pair inside a quality group.
type DownloadLink struct {
	Host string `json:"host"`
	URL  string `json:"url"`
}

// DownloadGroup is a quality-labelled block of download links.
type DownloadGroup struct {
	Quality string         `json:"quality"`
	Links   []DownloadLink `json:"links"`
}

// EpisodeDraft is the structured result of extracting one episode page.
type EpisodeDraft struct {
	Title        string
	ThumbnailURL string
	ParentTitle  string
	ParentSlug   string
	Streaming    []StreamLink
	Downloads    []DownloadGroup
}

// Episode extracts an episode page. Mirror descriptors are decoded via
// DecodeMirror; a descriptor that fails to decode is skipped, not fatal. When
// no mirror options exist at all, the default embedded player frame is
// synthesized into a single streaming entry.
func Episode(doc *goquery.Document, sourceURL string) *EpisodeDraft {
	d := &EpisodeDraft{
		Title:        strings.TrimSpace(doc.Find("h1.entry-title").Text()),
		ThumbnailURL: images.DefaultThumbPath,
		Streaming:    []StreamLink{},
		Downloads:    []DownloadGroup{},
	}

	if thumb, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && thumb != "" {
		d.ThumbnailURL = thumb
	}

	// Parent series reference from the breadcrumb's second-to-last link.
	crumbs := doc.Find("div.ts-breadcrumb a")
	if crumbs.Length() >= 2 {
		parent := crumbs.Eq(crumbs.Length() - 2)
		d.ParentTitle = strings.TrimSpace(parent.Find(`span[itemprop="name"]`).Text())
		if href, ok := parent.Attr("href"); ok {
			d.ParentSlug = seriesSlug(href, sourceURL)
		}
	}

	doc.Find("select.mirror option").Each(func(_ int, opt *goquery.Selection) {
		name := strings.TrimSpace(opt.Text())
		encoded, _ := opt.Attr("value")
		if encoded == "" {
			return
		}
		if embed := DecodeMirror(encoded); embed != "" {
			d.Streaming = append(d.Streaming, StreamLink{Name: name, URL: embed})
		}
	})
	if len(d.Streaming) == 0 {
		if embed, ok := doc.Find("#pembed iframe").Attr("src"); ok && embed != "" {
			d.Streaming = append(d.Streaming, StreamLink{Name: mirrorDisplayName(embed), URL: embed})
		}
	}

	doc.Find("div.soraddlx div.soraurlx").Each(func(_ int, block *goquery.Selection) {
		quality := strings.TrimSpace(block.Find("strong").Text())
		var links []DownloadLink
		block.Find("a").Each(func(_ int, a *goquery.Selection) {
			host := strings.TrimSpace(a.Text())
			href, _ := a.Attr("href")
			if host != "" && href != "" {
				links = append(links, DownloadLink{Host: host, URL: href})
			}
		})
		if quality != "" && len(links) > 0 {
			d.Downloads = append(d.Downloads, DownloadGroup{Quality: quality, Links: links})
		}
	})

	return d
}

// seriesSlug strips the series base path and trailing slash from a series
// page URL.
func seriesSlug(href, sourceURL string) string {
	s := strings.TrimPrefix(href, sourceURL+"/anime/")
	s = strings.TrimPrefix(s, "/anime/")
	return strings.TrimSuffix(s, "/")
}
