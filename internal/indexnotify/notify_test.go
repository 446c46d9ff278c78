package indexnotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func notifierFor(srv *httptest.Server) *Notifier {
	return &Notifier{client: srv.Client(), endpoint: srv.URL}
}

func TestNotifyPublishes(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifierFor(srv).Notify(context.Background(), "https://site.example/anime/my-show", TypeUpdated)

	if got["url"] != "https://site.example/anime/my-show" || got["type"] != "URL_UPDATED" {
		t.Fatalf("payload = %v", got)
	}
}

func TestNotifySwallowsFailures(t *testing.T) {
	// Quota, permission and server errors must all be absorbed.
	for _, status := range []int{http.StatusTooManyRequests, http.StatusForbidden, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		notifierFor(srv).Notify(context.Background(), "https://site.example/x", TypeUpdated)
		srv.Close()
	}

	// Unreachable endpoint too.
	dead := &Notifier{client: http.DefaultClient, endpoint: "http://127.0.0.1:1/nope"}
	dead.Notify(context.Background(), "https://site.example/x", TypeDeleted)
}

func TestDisabledNotifier(t *testing.T) {
	n, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error: %v", err)
	}
	n.Notify(context.Background(), "https://site.example/x", TypeUpdated)

	var nilNotifier *Notifier
	nilNotifier.Notify(context.Background(), "https://site.example/x", TypeUpdated)
}

func TestNewRejectsGarbageCredentials(t *testing.T) {
	if _, err := New([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}
