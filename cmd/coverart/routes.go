package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
	"github.com/edumarques81/stellar-coverart/internal/infra/cache"
	"github.com/edumarques81/stellar-coverart/internal/version"
)

// artFiles is the part of the art store the HTTP routes read.
type artFiles interface {
	Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error)
	Stats(ctx context.Context) (*cache.Stats, error)
	FilePath(e *artwork.Entry) string
	ThumbnailPath(e *artwork.Entry, size artwork.ThumbnailSize) (string, error)
}

// artRequester starts a background search on a miss.
type artRequester interface {
	Request(ctx context.Context, key artwork.AlbumKey, location string, cb func(artwork.Resolution))
}

type routes struct {
	store     artFiles
	requester artRequester
	socket    http.Handler
	health    func() error // nil when MPD is disabled
}

func (rt *routes) handler() http.Handler {
	mux := http.NewServeMux()

	if rt.socket != nil {
		mux.Handle("/socket.io/", rt.socket)
	}
	mux.HandleFunc("/health", rt.handleHealth)
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.GetInfo())
	})
	mux.HandleFunc("/api/v1/coverart/stats", rt.handleStats)
	mux.HandleFunc("/coverart", rt.handleCoverArt)

	return corsMiddleware(mux)
}

func (rt *routes) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "mpd": "disabled"}
	code := http.StatusOK
	if rt.health != nil {
		if err := rt.health(); err != nil {
			status["status"] = "degraded"
			status["mpd"] = "disconnected"
			code = http.StatusServiceUnavailable
		} else {
			status["mpd"] = "connected"
		}
	}
	writeJSON(w, code, status)
}

func (rt *routes) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.store.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect art store stats")
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCoverArt serves the stored art of ?album=&artist=. Local files are
// served directly, hot links are redirected. A miss starts a search when a
// location is given so that a later request can succeed.
func (rt *routes) handleCoverArt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	album := q.Get("album")
	if album == "" {
		http.Error(w, "album parameter required", http.StatusBadRequest)
		return
	}
	key := artwork.NewAlbumKey(album, q.Get("artist"))

	entry, err := rt.store.Lookup(r.Context(), key)
	if err != nil {
		log.Error().Err(err).Str("album", album).Msg("Art lookup failed")
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	if entry == nil {
		if loc := q.Get("location"); loc != "" && rt.requester != nil {
			rt.requester.Request(context.Background(), key, loc, nil)
		}
		http.Error(w, "album art not found", http.StatusNotFound)
		return
	}
	if !entry.HasArt() {
		http.Error(w, "album art not found", http.StatusNotFound)
		return
	}

	if entry.FilePath == "" {
		http.Redirect(w, r, entry.URI, http.StatusFound)
		return
	}

	path := rt.store.FilePath(entry)
	contentType := entry.MimeType
	if s := q.Get("size"); s != "" {
		size, ok := parseThumbnailSize(s)
		if !ok {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		thumb, err := rt.store.ThumbnailPath(entry, size)
		if err != nil {
			log.Warn().Err(err).Str("album", album).Msg("Thumbnail unavailable, serving original")
		} else if thumb != path {
			path = thumb
			contentType = "image/jpeg"
		}
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

func parseThumbnailSize(s string) (artwork.ThumbnailSize, bool) {
	switch strings.ToLower(s) {
	case "small":
		return artwork.ThumbSmall, true
	case "medium":
		return artwork.ThumbMedium, true
	case "large":
		return artwork.ThumbLarge, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	for _, size := range artwork.ThumbnailSizes {
		if int(size) == n {
			return size, true
		}
	}
	return 0, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write JSON response")
	}
}
