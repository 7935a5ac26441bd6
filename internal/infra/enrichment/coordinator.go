package enrichment

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// Album represents minimal album info from the library.
type Album struct {
	Title    string
	Artist   string
	Artists  []string // secondary artists
	Location string   // representative track
}

// Key returns the album's art key.
func (a Album) Key() artwork.AlbumKey {
	return artwork.NewAlbumKey(a.Title, a.Artist, a.Artists...)
}

// AlbumLister lists the albums of the library.
type AlbumLister interface {
	ListAlbums(ctx context.Context) ([]Album, error)
}

// AlbumListerFunc adapts a function to AlbumLister.
type AlbumListerFunc func(ctx context.Context) ([]Album, error)

// ListAlbums implements AlbumLister.
func (f AlbumListerFunc) ListAlbums(ctx context.Context) ([]Album, error) { return f(ctx) }

// Lookuper reads the art store.
type Lookuper interface {
	Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error)
}

// Requester starts art searches; artwork.Resolver implements it.
type Requester interface {
	Request(ctx context.Context, key artwork.AlbumKey, location string, cb func(artwork.Resolution))
}

// Coordinator requests art for every library album the store has never
// seen. It is run after the library is (re)scanned.
type Coordinator struct {
	mu             sync.Mutex
	lister         AlbumLister
	store          Lookuper
	requester      Requester
	running        bool
	processingDone chan struct{}
}

// NewCoordinator creates a new enrichment coordinator.
func NewCoordinator(lister AlbumLister, store Lookuper, requester Requester) *Coordinator {
	return &Coordinator{
		lister:    lister,
		store:     store,
		requester: requester,
	}
}

// QueueMissingArtwork requests art for albums without a store entry and
// returns how many were requested. A second call while one is running
// returns immediately.
func (c *Coordinator) QueueMissingArtwork(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return 0, nil
	}
	c.running = true
	c.processingDone = make(chan struct{})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		close(c.processingDone)
		c.mu.Unlock()
	}()

	albums, err := c.lister.ListAlbums(ctx)
	if err != nil {
		return 0, fmt.Errorf("list albums: %w", err)
	}

	log.Info().Int("albums", len(albums)).Msg("Checking library for missing artwork")

	queued, known := 0, 0
	for _, album := range albums {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("Artwork queue processing cancelled")
			return queued, err
		}
		if artwork.IsUnknown(album.Title) {
			continue
		}

		key := album.Key()
		entry, err := c.store.Lookup(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("album", album.Title).Msg("Art store lookup failed")
			continue
		}
		if entry != nil {
			known++
			continue
		}

		c.requester.Request(ctx, key, album.Location, nil)
		queued++
	}

	log.Info().
		Int("queued", queued).
		Int("known", known).
		Msg("Artwork queue processing complete")

	return queued, nil
}

// IsRunning returns whether queue processing is running.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// WaitForDone waits for the current queue processing to complete.
func (c *Coordinator) WaitForDone() {
	c.mu.Lock()
	done := c.processingDone
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}
