package images_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/animirror/animirror/internal/images"
)

func TestSanitizeBaseName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain-name_01", "plain-name_01"},
		{"name with spaces", "name-with-spaces"},
		{"weird/chars:here?", "weird-chars-here-"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := images.SanitizeBaseName(tc.in); got != tc.want {
			t.Errorf("SanitizeBaseName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := strings.Repeat("a", 150)
	if got := images.SanitizeBaseName(long); len(got) != 100 {
		t.Errorf("long name truncated to %d, want 100", len(got))
	}
}

func TestMaterializeInvalidURLReturnsDefault(t *testing.T) {
	m := images.New(t.TempDir(), nil, nil)

	if got := m.Materialize("", "x", ""); got != images.DefaultImagePath {
		t.Fatalf("empty URL = %q", got)
	}
	if got := m.Materialize("ftp://host/a.jpg", "x", ""); got != images.DefaultImagePath {
		t.Fatalf("non-http scheme = %q", got)
	}
	if got := m.Materialize("not a url", "x", "episodes"); got != images.DefaultThumbPath {
		t.Fatalf("episodes category must default to thumb placeholder, got %q", got)
	}
}

func TestMaterializeDownloadsOnce(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("imagebytes"))
	}))
	defer srv.Close()

	root := t.TempDir()
	m := images.New(root, srv.Client(), nil)

	first := m.Materialize(srv.URL+"/cover.png", "my-show", "characters")
	if first != "/images/characters/my-show.png" {
		t.Fatalf("web path = %q", first)
	}
	second := m.Materialize(srv.URL+"/cover.png", "my-show", "characters")
	if second != first {
		t.Fatalf("second call = %q, want identical path", second)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("downloads = %d, want exactly 1", n)
	}

	data, err := os.ReadFile(filepath.Join(root, "characters", "my-show.png"))
	if err != nil || string(data) != "imagebytes" {
		t.Fatalf("stored file = %q, err %v", data, err)
	}
}

func TestMaterializeNonStandardExtensionStoredAsJPG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	m := images.New(t.TempDir(), srv.Client(), nil)
	if got := m.Materialize(srv.URL+"/pic.svg", "name", ""); got != "/images/name.jpg" {
		t.Fatalf("svg source = %q, want .jpg fallback", got)
	}
	if got := m.Materialize(srv.URL+"/noext", "bare", ""); got != "/images/bare.jpg" {
		t.Fatalf("extensionless source = %q, want .jpg fallback", got)
	}
}

func TestMaterializeRemoteFailureReturnsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := t.TempDir()
	m := images.New(root, srv.Client(), nil)
	if got := m.Materialize(srv.URL+"/gone.jpg", "gone", ""); got != images.DefaultImagePath {
		t.Fatalf("failed download = %q, want placeholder", got)
	}
	if _, err := os.Stat(filepath.Join(root, "gone.jpg")); !os.IsNotExist(err) {
		t.Fatal("no file should be left behind after a failed download")
	}
}

func TestMaterializeSendsHeaders(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	m := images.New(t.TempDir(), srv.Client(), map[string]string{"User-Agent": "testscraper"})
	m.Materialize(srv.URL+"/a.jpg", "a", "")
	if gotUA != "testscraper" {
		t.Fatalf("User-Agent = %q", gotUA)
	}
}
