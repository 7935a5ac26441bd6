package socketio

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// CoverArtHandlers contains Socket.IO handlers for album art.
type CoverArtHandlers struct {
	server *Server
}

// NewCoverArtHandlers creates a new CoverArtHandlers instance.
func NewCoverArtHandlers(server *Server) *CoverArtHandlers {
	return &CoverArtHandlers{server: server}
}

// RegisterHandlers registers all cover art Socket.IO handlers.
func (h *CoverArtHandlers) RegisterHandlers(client *socket.Socket) {
	client.On("coverart:request", func(args ...any) {
		h.handleRequest(args)
	})

	client.On("coverart:lookup", func(args ...any) {
		client.Emit("pushCoverArt", h.handleLookup(args))
	})

	client.On("coverart:status", func(args ...any) {
		client.Emit("pushCoverArtStatus", h.server.statusPayload(context.Background()))
	})
}

// CoverArtRequest is the payload of coverart:request and coverart:lookup.
type CoverArtRequest struct {
	Album    string   `json:"album"`
	Artist   string   `json:"artist"`
	Artists  []string `json:"artists,omitempty"`
	Location string   `json:"location,omitempty"`
}

// Key returns the album key of the request.
func (r CoverArtRequest) Key() artwork.AlbumKey {
	return artwork.NewAlbumKey(r.Album, r.Artist, r.Artists...)
}

// CoverArtPayload is the payload of pushCoverArt.
type CoverArtPayload struct {
	Album      string `json:"album"`
	Artist     string `json:"artist"`
	Found      bool   `json:"found"`
	Source     string `json:"source,omitempty"`
	URL        string `json:"url,omitempty"`
	Cached     bool   `json:"cached"`
	Tombstoned bool   `json:"tombstoned"`
	ChainID    string `json:"chainId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StatusPayload is the payload of pushCoverArtStatus.
type StatusPayload struct {
	InFlight   int            `json:"inFlight"`
	Entries    int            `json:"entries"`
	WithArt    int            `json:"withArt"`
	Tombstones int            `json:"tombstones"`
	HotLinks   int            `json:"hotLinks"`
	Sources    map[string]int `json:"sources,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ArtURL is the HTTP path serving an album's art.
func ArtURL(key artwork.AlbumKey) string {
	q := url.Values{}
	q.Set("album", key.Title())
	q.Set("artist", key.Artist())
	return "/coverart?" + q.Encode()
}

func (h *CoverArtHandlers) handleRequest(args []any) {
	req, ok := parseRequest(args)
	if !ok {
		log.Warn().Interface("args", args).Msg("Invalid coverart:request payload")
		return
	}

	log.Debug().
		Str("album", req.Album).
		Str("artist", req.Artist).
		Str("location", req.Location).
		Msg("Received coverart:request")

	// the outcome is broadcast through OnResolved
	h.server.resolver.Request(context.Background(), req.Key(), req.Location, nil)
}

func (h *CoverArtHandlers) handleLookup(args []any) CoverArtPayload {
	req, ok := parseRequest(args)
	if !ok {
		return CoverArtPayload{Error: "album is required"}
	}

	key := req.Key()
	payload := CoverArtPayload{Album: key.Title(), Artist: key.Artist()}

	entry, err := h.server.store.Lookup(context.Background(), key)
	if err != nil {
		log.Warn().Err(err).Str("album", req.Album).Msg("coverart:lookup failed")
		payload.Error = err.Error()
		return payload
	}
	if entry == nil {
		return payload
	}

	payload.Tombstoned = entry.Tombstone
	if entry.HasArt() {
		payload.Found = true
		payload.Cached = true
		payload.Source = string(entry.Provenance)
		payload.URL = ArtURL(key)
	}
	return payload
}

func (s *Server) statusPayload(ctx context.Context) StatusPayload {
	payload := StatusPayload{InFlight: s.resolver.InFlight()}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get art store stats")
		payload.Error = err.Error()
		return payload
	}
	payload.Entries = stats.Entries
	payload.WithArt = stats.WithArt
	payload.Tombstones = stats.Tombstones
	payload.HotLinks = stats.HotLinks
	payload.Sources = stats.ByProvenance
	return payload
}

func resolutionPayload(res artwork.Resolution) CoverArtPayload {
	p := CoverArtPayload{
		Album:      res.Key.Title(),
		Artist:     res.Key.Artist(),
		Found:      res.Succeeded,
		Source:     res.Source,
		Cached:     res.Cached,
		Tombstoned: res.Tombstoned,
		ChainID:    res.ChainID,
	}
	if res.Succeeded {
		p.URL = ArtURL(res.Key)
	}
	return p
}

// parseRequest reads the first event argument.
func parseRequest(args []any) (CoverArtRequest, bool) {
	if len(args) == 0 {
		return CoverArtRequest{}, false
	}
	m, ok := args[0].(map[string]interface{})
	if !ok {
		return CoverArtRequest{}, false
	}

	req := CoverArtRequest{}
	req.Album, _ = m["album"].(string)
	req.Artist, _ = m["artist"].(string)
	req.Location, _ = m["location"].(string)
	if list, ok := m["artists"].([]interface{}); ok {
		for _, v := range list {
			if a, ok := v.(string); ok {
				req.Artists = append(req.Artists, a)
			}
		}
	}

	if req.Album == "" {
		return CoverArtRequest{}, false
	}
	return req, true
}
