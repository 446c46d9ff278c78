// Package safeurl validates URLs lifted out of scraped documents before they
// are fetched or displayed. Scraped attribute values are attacker-adjacent
// input: a crafted page could otherwise point the image downloader at
// file:// or other local schemes.
package safeurl

import "net/url"

// IsFetchable reports whether u is a well-formed absolute URL with scheme
// http or https. Everything else is refused.
func IsFetchable(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// Hostname returns the hostname of u for display, or "" when u does not parse
// or carries no host.
func Hostname(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
