// Package indexnotify pushes URL change notifications to the Google Indexing
// API. Notification is strictly best-effort: a scrape must never fail because
// the index push did.
package indexnotify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"

	"github.com/animirror/animirror/internal/metrics"
)

const (
	defaultEndpoint = "https://indexing.googleapis.com/v3/urlNotifications:publish"
	indexingScope   = "https://www.googleapis.com/auth/indexing"
)

// Notification types accepted by the API.
const (
	TypeUpdated = "URL_UPDATED"
	TypeDeleted = "URL_DELETED"
)

// Notifier publishes URL notifications using service-account credentials.
// The zero value and a Notifier built from empty credentials are disabled
// no-ops, so callers never need to branch on configuration.
type Notifier struct {
	client   *http.Client
	endpoint string
}

// New builds a Notifier from service-account JSON. Empty credentials yield a
// disabled notifier and no error.
func New(credentialsJSON []byte) (*Notifier, error) {
	if len(credentialsJSON) == 0 {
		log.Info().Msg("indexnotify: no credentials configured, notifications disabled")
		return &Notifier{}, nil
	}
	conf, err := google.JWTConfigFromJSON(credentialsJSON, indexingScope)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		client:   conf.Client(context.Background()),
		endpoint: defaultEndpoint,
	}, nil
}

// Notify publishes one notification. Failures are logged and counted, never
// returned.
func (n *Notifier) Notify(ctx context.Context, pageURL, notificationType string) {
	if n == nil || n.client == nil {
		metrics.IndexNotifications.WithLabelValues("disabled").Inc()
		return
	}

	body, err := json.Marshal(map[string]string{
		"url":  pageURL,
		"type": notificationType,
	})
	if err != nil {
		metrics.IndexNotifications.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("url", pageURL).Msg("indexnotify: encode request")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.IndexNotifications.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("url", pageURL).Msg("indexnotify: build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.IndexNotifications.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("url", pageURL).Msg("indexnotify: publish")
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		metrics.IndexNotifications.WithLabelValues("ok").Inc()
		log.Debug().Str("url", pageURL).Str("type", notificationType).Msg("indexnotify: published")
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.IndexNotifications.WithLabelValues("quota").Inc()
		log.Warn().Str("url", pageURL).Msg("indexnotify: daily quota exhausted")
	case resp.StatusCode == http.StatusForbidden:
		metrics.IndexNotifications.WithLabelValues("denied").Inc()
		log.Warn().Str("url", pageURL).
			Msg("indexnotify: permission denied, check service account site ownership")
	default:
		metrics.IndexNotifications.WithLabelValues("error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().Int("status", resp.StatusCode).Str("url", pageURL).
			Str("body", string(detail)).Msg("indexnotify: unexpected response")
	}
}
