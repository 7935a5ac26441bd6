// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
	"github.com/edumarques81/stellar-coverart/internal/infra/cache"
)

// Resolver is the art resolver as seen by the transport.
type Resolver interface {
	Request(ctx context.Context, key artwork.AlbumKey, location string, cb func(artwork.Resolution))
	InFlight() int
	OnResolved(fn func(artwork.Resolution))
}

// Store is the art store as seen by the transport.
type Store interface {
	Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error)
	Stats(ctx context.Context) (*cache.Stats, error)
}

// Server handles Socket.io connections and events.
type Server struct {
	io       *socket.Server
	resolver Resolver
	store    Store
	status   *StatusDebouncer
	mu       sync.RWMutex
	clients  map[string]*socket.Socket
}

// NewServer creates a new Socket.io server and subscribes it to resolutions.
func NewServer(resolver Resolver, store Store) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:       socket.NewServer(nil, opts),
		resolver: resolver,
		store:    store,
		clients:  make(map[string]*socket.Socket),
	}
	s.status = NewStatusDebouncer(500*time.Millisecond, s.BroadcastStatus)

	s.setupHandlers()

	// resolutions arrive on the loop goroutine; emitting does not block it
	resolver.OnResolved(func(res artwork.Resolution) {
		s.BroadcastCoverArt(res)
		s.status.Trigger()
	})

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		log.Info().Str("id", clientID).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		NewCoverArtHandlers(s).RegisterHandlers(client)
	})
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastCoverArt sends a resolution to all connected clients.
func (s *Server) BroadcastCoverArt(res artwork.Resolution) {
	payload := resolutionPayload(res)
	s.io.Emit("pushCoverArt", payload)

	log.Debug().
		Str("album", payload.Album).
		Str("artist", payload.Artist).
		Bool("found", payload.Found).
		Int("clients", s.ClientCount()).
		Msg("Broadcast cover art")
}

// BroadcastStatus sends the store status to all connected clients.
func (s *Server) BroadcastStatus() {
	s.io.Emit("pushCoverArtStatus", s.statusPayload(context.Background()))
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.status.Stop()
	s.io.Close(nil)
	return nil
}
