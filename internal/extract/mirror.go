package extract

import (
	"encoding/base64"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/animirror/animirror/internal/safeurl"
)

// DecodeMirror decodes an obfuscated mirror descriptor: a base64-encoded HTML
// fragment carrying an iframe whose src is the direct embed URL. Returns ""
// when the value is malformed or carries no frame — one broken mirror must
// not abort extraction of the rest.
func DecodeMirror(encoded string) string {
	if encoded == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some descriptors arrive without padding.
		raw, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		log.Debug().Str("value", encoded).Msg("extract: mirror descriptor is not base64")
		return ""
	}

	frag, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return ""
	}
	src, _ := frag.Find("iframe").Attr("src")
	return src
}

// mirrorDisplayName names the fallback streaming entry after the embed URL's
// hostname, or "Default" when the URL does not parse.
func mirrorDisplayName(embedURL string) string {
	if host := safeurl.Hostname(embedURL); host != "" {
		return host
	}
	return "Default"
}
