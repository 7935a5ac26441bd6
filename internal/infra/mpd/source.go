package mpd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// ArtFetcher is the part of Client used by Source.
type ArtFetcher interface {
	AlbumArt(uri string) ([]byte, error)
	ReadPicture(uri string) ([]byte, error)
}

// Source asks MPD for a song's art: first the directory image
// (albumart), then the embedded picture (readpicture).
type Source struct {
	client     ArtFetcher
	musicDir   string
	ignored    []string
	provenance artwork.Provenance
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithMusicDir sets MPD's music directory, used to turn absolute track
// paths into MPD song URIs.
func WithMusicDir(dir string) SourceOption {
	return func(s *Source) {
		s.musicDir = dir
	}
}

// WithIgnoredSchemes sets location schemes the source never handles.
func WithIgnoredSchemes(schemes []string) SourceOption {
	return func(s *Source) {
		s.ignored = schemes
	}
}

// WithProvenance sets the provenance recorded for MPD art.
func WithProvenance(p artwork.Provenance) SourceOption {
	return func(s *Source) {
		s.provenance = p
	}
}

// NewSource creates an MPD art source.
func NewSource(client ArtFetcher, opts ...SourceOption) *Source {
	s := &Source{
		client:     client,
		ignored:    artwork.DefaultIgnoredSchemes,
		provenance: artwork.ProvenanceMPD,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements artwork.Source.
func (s *Source) Name() string { return "mpd" }

// Attempt implements artwork.Source.
func (s *Source) Attempt(ctx context.Context, req artwork.Request, store artwork.Store, done artwork.DoneFunc) {
	uri, err := s.SongURI(req.Location)
	if err != nil {
		done(artwork.Failure(s.Name(), err))
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("uri", uri).Msg("MPD art lookup panicked")
				done(artwork.Failure(s.Name(), fmt.Errorf("mpd panicked: %v", r)))
			}
		}()
		done(s.fetch(ctx, req.Key, uri, store))
	}()
}

func (s *Source) fetch(ctx context.Context, key artwork.AlbumKey, uri string, store artwork.Store) artwork.Result {
	data, err := s.client.AlbumArt(uri)
	if err != nil || !artwork.IsImage(data) {
		log.Debug().Err(err).Str("uri", uri).Msg("MPD albumart found nothing, trying readpicture")
		data, err = s.client.ReadPicture(uri)
	}
	if err != nil {
		return artwork.Failure(s.Name(), fmt.Errorf("%w: %v", artwork.ErrNoArtwork, err))
	}
	if !artwork.IsImage(data) {
		return artwork.Failure(s.Name(), artwork.ErrNoArtwork)
	}

	if err := store.WriteBytes(ctx, key, s.provenance, data); err != nil {
		return artwork.Failure(s.Name(), fmt.Errorf("store mpd art: %w", err))
	}
	return artwork.Success(s.Name())
}

// SongURI maps a track location to the URI MPD knows the song by. Relative
// paths are taken as MPD URIs already.
func (s *Source) SongURI(location string) (string, error) {
	path, err := artwork.LocalPath(location, s.ignored)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path), nil
	}
	if s.musicDir == "" {
		return "", fmt.Errorf("%w: no music directory for %s", artwork.ErrSourceUnavailable, path)
	}

	rel, err := filepath.Rel(s.musicDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the music directory", artwork.ErrSourceUnavailable, path)
	}
	return filepath.ToSlash(rel), nil
}
