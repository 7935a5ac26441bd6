package enrichment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFanartAlbumCoverPreview(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		if r.URL.Path != "/albums/rg-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"name":"Artist","albums":{"rg-1":{"albumcover":[
			{"id":"1","url":"https://assets.fanart.tv/fanart/music/a/albumcover/one.jpg","likes":"2"},
			{"id":"2","url":"https://assets.fanart.tv/fanart/music/a/albumcover/two.jpg","likes":"7"}
		]}}}`))
	}))
	defer server.Close()

	c := NewFanartClient("key123", WithFanartBaseURL(server.URL))
	c.limiter = newLimiter(0)

	got, err := c.AlbumCoverPreview(context.Background(), "rg-1")
	if err != nil {
		t.Fatalf("AlbumCoverPreview() error = %v", err)
	}
	want := "https://assets.fanart.tv/preview/music/a/albumcover/two.jpg"
	if got != want {
		t.Errorf("AlbumCoverPreview() = %q, want %q", got, want)
	}
	if gotKey != "key123" {
		t.Errorf("api_key = %q", gotKey)
	}
}

func TestFanartNotConfigured(t *testing.T) {
	c := NewFanartClient("")
	if c.IsConfigured() {
		t.Fatal("client without key should not be configured")
	}
	if _, err := c.AlbumCoverPreview(context.Background(), "rg"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("AlbumCoverPreview() error = %v, want ErrNotConfigured", err)
	}
}

func TestFanartNoCovers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Artist","albums":{}}`))
	}))
	defer server.Close()

	c := NewFanartClient("key", WithFanartBaseURL(server.URL))
	c.limiter = newLimiter(0)
	if _, err := c.AlbumCoverPreview(context.Background(), "rg"); !errors.Is(err, ErrArtworkNotFound) {
		t.Errorf("AlbumCoverPreview() error = %v, want ErrArtworkNotFound", err)
	}
}
