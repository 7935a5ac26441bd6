package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscogsSearchAlbumThumb(t *testing.T) {
	var gotAuth string
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		q := r.URL.Query()
		gotQuery = map[string]string{
			"type":          q.Get("type"),
			"artist":        q.Get("artist"),
			"release_title": q.Get("release_title"),
		}
		w.Write([]byte(`{"results":[
			{"id":1,"title":"No image"},
			{"id":2,"title":"Cover only","cover_image":"cover2.jpg"},
			{"id":3,"title":"Thumb","thumb":"thumb3.jpg"}
		]}`))
	}))
	defer server.Close()

	c := NewDiscogsClient(WithDiscogsBaseURL(server.URL), WithDiscogsToken("tok"), WithDiscogsRateLimit(0))
	match, err := c.SearchAlbumThumb(context.Background(), "Artist", "Album")
	if err != nil {
		t.Fatalf("SearchAlbumThumb() error = %v", err)
	}
	if match == nil || match.ReleaseID != "2" || match.ThumbURL != "cover2.jpg" {
		t.Errorf("SearchAlbumThumb() = %+v, want release 2 cover", match)
	}
	if gotAuth != "Discogs token=tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotQuery["type"] != "release" || gotQuery["artist"] != "Artist" || gotQuery["release_title"] != "Album" {
		t.Errorf("query = %v", gotQuery)
	}
}

func TestDiscogsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("no Authorization header expected without token")
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	c := NewDiscogsClient(WithDiscogsBaseURL(server.URL), WithDiscogsRateLimit(0))
	match, err := c.SearchAlbumThumb(context.Background(), "Artist", "Album")
	if err != nil || match != nil {
		t.Errorf("SearchAlbumThumb() = %+v, %v; want nil, nil", match, err)
	}
}
