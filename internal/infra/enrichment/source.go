package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// DefaultRepeatWindow is how long a catalog is left alone for an album that
// was already searched.
const DefaultRepeatWindow = 7 * 24 * time.Hour

// CatalogSource is an artwork.Source backed by a remote Catalog. It stores
// the match's thumbnail URL as a hot link.
type CatalogSource struct {
	catalog    Catalog
	window     time.Duration
	timeout    time.Duration
	provenance artwork.Provenance
	now        func() time.Time
}

// SourceOption configures a CatalogSource.
type SourceOption func(*CatalogSource)

// WithRepeatWindow sets the minimum time between two lookups of one album.
func WithRepeatWindow(d time.Duration) SourceOption {
	return func(s *CatalogSource) {
		s.window = d
	}
}

// WithLookupTimeout bounds one attempt across all candidate artists.
func WithLookupTimeout(d time.Duration) SourceOption {
	return func(s *CatalogSource) {
		s.timeout = d
	}
}

// WithSourceProvenance sets the provenance recorded for catalog art.
func WithSourceProvenance(p artwork.Provenance) SourceOption {
	return func(s *CatalogSource) {
		s.provenance = p
	}
}

// WithClock replaces time.Now (useful for testing).
func WithClock(now func() time.Time) SourceOption {
	return func(s *CatalogSource) {
		s.now = now
	}
}

// NewCatalogSource wraps catalog as an art source.
func NewCatalogSource(catalog Catalog, opts ...SourceOption) *CatalogSource {
	s := &CatalogSource{
		catalog:    catalog,
		window:     DefaultRepeatWindow,
		timeout:    2 * time.Minute,
		provenance: artwork.ProvenanceSearch,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements artwork.Source.
func (s *CatalogSource) Name() string { return s.catalog.Name() }

// Attempt implements artwork.Source. The lookup runs on its own goroutine;
// the rate-limit and input checks answer synchronously.
func (s *CatalogSource) Attempt(ctx context.Context, req artwork.Request, store artwork.Store, done artwork.DoneFunc) {
	if !req.LastAttempt.IsZero() && s.now().Sub(req.LastAttempt) < s.window {
		log.Debug().
			Str("catalog", s.Name()).
			Str("album", req.Key.Title()).
			Time("lastAttempt", req.LastAttempt).
			Msg("Album searched recently, skipping catalog")
		done(artwork.Failure(s.Name(), artwork.ErrRateLimited))
		return
	}

	title := artwork.NormalizeTitle(req.Key.Title())
	if artwork.IsUnknown(title) {
		done(artwork.Failure(s.Name(), fmt.Errorf("%w: no usable album title", artwork.ErrSourceUnavailable)))
		return
	}
	artists := artwork.SearchArtists(req.Key)
	if len(artists) == 0 {
		done(artwork.Failure(s.Name(), fmt.Errorf("%w: no usable artist", artwork.ErrSourceUnavailable)))
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("catalog", s.Name()).Msg("Catalog lookup panicked")
				done(artwork.Failure(s.Name(), fmt.Errorf("catalog panicked: %v", r)))
			}
		}()
		done(s.lookup(ctx, req.Key, title, artists, store))
	}()
}

func (s *CatalogSource) lookup(ctx context.Context, key artwork.AlbumKey, title string, artists []string, store artwork.Store) artwork.Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, artist := range artists {
		match, err := s.catalog.SearchAlbumThumb(ctx, artist, title)
		if err != nil {
			log.Debug().
				Err(err).
				Str("catalog", s.Name()).
				Str("artist", artist).
				Str("album", title).
				Msg("Catalog lookup failed")
			return artwork.Failure(s.Name(), err)
		}
		if match == nil || match.ThumbURL == "" {
			continue
		}

		if err := store.WriteURI(ctx, key, s.provenance, match.ThumbURL); err != nil {
			return artwork.Failure(s.Name(), fmt.Errorf("store catalog art: %w", err))
		}
		log.Debug().
			Str("catalog", s.Name()).
			Str("artist", artist).
			Str("release", match.ReleaseID).
			Str("thumb", match.ThumbURL).
			Msg("Catalog match stored")
		return artwork.Success(s.Name())
	}

	return artwork.Failure(s.Name(), ErrArtworkNotFound)
}
