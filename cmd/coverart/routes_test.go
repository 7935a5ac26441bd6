package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
	"github.com/edumarques81/stellar-coverart/internal/infra/cache"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

type fakeArtFiles struct {
	dir     string
	entries map[string]*artwork.Entry
	err     error
}

func (f *fakeArtFiles) Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[key.ID()], nil
}

func (f *fakeArtFiles) Stats(ctx context.Context) (*cache.Stats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cache.Stats{Entries: len(f.entries)}, nil
}

func (f *fakeArtFiles) FilePath(e *artwork.Entry) string {
	return filepath.Join(f.dir, e.FilePath)
}

func (f *fakeArtFiles) ThumbnailPath(e *artwork.Entry, size artwork.ThumbnailSize) (string, error) {
	return "", errors.New("no thumbnails in tests")
}

type recordingRequester struct {
	keys      []artwork.AlbumKey
	locations []string
}

func (r *recordingRequester) Request(ctx context.Context, key artwork.AlbumKey, location string, cb func(artwork.Resolution)) {
	r.keys = append(r.keys, key)
	r.locations = append(r.locations, location)
}

func newTestRoutes(t *testing.T) (*routes, *recordingRequester) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cover.png"), pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}

	local := artwork.NewAlbumKey("Local", "Artist")
	linked := artwork.NewAlbumKey("Linked", "Artist")
	dead := artwork.NewAlbumKey("Dead", "Artist")

	store := &fakeArtFiles{
		dir: dir,
		entries: map[string]*artwork.Entry{
			local.ID():  {Provenance: artwork.ProvenanceFolder, FilePath: "cover.png", MimeType: "image/png"},
			linked.ID(): {Provenance: artwork.ProvenanceSearch, URI: "https://img.example.com/cover.jpg"},
			dead.ID():   {Provenance: artwork.ProvenanceNone, Tombstone: true},
		},
	}
	req := &recordingRequester{}
	return &routes{store: store, requester: req}, req
}

func TestCoverArtRoute(t *testing.T) {
	rt, _ := newTestRoutes(t)
	h := rt.handler()

	tests := []struct {
		name         string
		url          string
		wantStatus   int
		wantType     string
		wantLocation string
	}{
		{"local file", "/coverart?album=Local&artist=Artist", http.StatusOK, "image/png", ""},
		{"case insensitive key", "/coverart?album=local&artist=ARTIST", http.StatusOK, "image/png", ""},
		{"thumbnail falls back to original", "/coverart?album=Local&artist=Artist&size=small", http.StatusOK, "image/png", ""},
		{"invalid size", "/coverart?album=Local&artist=Artist&size=huge", http.StatusBadRequest, "", ""},
		{"hot link", "/coverart?album=Linked&artist=Artist", http.StatusFound, "", "https://img.example.com/cover.jpg"},
		{"tombstone", "/coverart?album=Dead&artist=Artist", http.StatusNotFound, "", ""},
		{"unknown", "/coverart?album=Nope&artist=Artist", http.StatusNotFound, "", ""},
		{"missing album", "/coverart?artist=Artist", http.StatusBadRequest, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantType != "" {
				if got := rec.Header().Get("Content-Type"); got != tt.wantType {
					t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
				}
			}
			if tt.wantLocation != "" {
				if got := rec.Header().Get("Location"); got != tt.wantLocation {
					t.Errorf("Location = %q, want %q", got, tt.wantLocation)
				}
			}
		})
	}
}

func TestCoverArtMissRequestsSearch(t *testing.T) {
	rt, req := newTestRoutes(t)
	h := rt.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/coverart?album=New&artist=Band&location=%2Fmusic%2Fnew%2F01.flac", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(req.keys) != 1 || !req.keys[0].Equal(artwork.NewAlbumKey("New", "Band")) {
		t.Fatalf("requests = %v", req.keys)
	}
	if req.locations[0] != "/music/new/01.flac" {
		t.Errorf("location = %q", req.locations[0])
	}

	// a tombstone is not re-requested from HTTP
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/coverart?album=Dead&artist=Artist&location=%2Fmusic%2Fd%2F01.flac", nil))
	if len(req.keys) != 1 {
		t.Errorf("tombstone triggered a request")
	}
}

func TestCoverArtLookupError(t *testing.T) {
	rt, _ := newTestRoutes(t)
	rt.store.(*fakeArtFiles).err = errors.New("database is locked")

	rec := httptest.NewRecorder()
	rt.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/coverart?album=Local&artist=Artist", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthRoute(t *testing.T) {
	tests := []struct {
		name       string
		health     func() error
		wantStatus int
		wantMPD    string
	}{
		{"mpd disabled", nil, http.StatusOK, "disabled"},
		{"mpd connected", func() error { return nil }, http.StatusOK, "connected"},
		{"mpd down", func() error { return errors.New("connection refused") }, http.StatusServiceUnavailable, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, _ := newTestRoutes(t)
			rt.health = tt.health

			rec := httptest.NewRecorder()
			rt.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["mpd"] != tt.wantMPD {
				t.Errorf("mpd = %q, want %q", body["mpd"], tt.wantMPD)
			}
		})
	}
}

func TestStatsAndVersionRoutes(t *testing.T) {
	rt, _ := newTestRoutes(t)
	h := rt.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/coverart/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats cache.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("version: status %d, type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestParseThumbnailSize(t *testing.T) {
	tests := []struct {
		in   string
		want artwork.ThumbnailSize
		ok   bool
	}{
		{"small", artwork.ThumbSmall, true},
		{"MEDIUM", artwork.ThumbMedium, true},
		{"500", artwork.ThumbLarge, true},
		{"400", 0, false},
		{"big", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseThumbnailSize(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseThumbnailSize(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
