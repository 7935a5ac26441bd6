// Package embedded finds album art stored inside audio file tags.
package embedded

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// Source extracts a cover from the tags of the album's representative
// track (MP4, FLAC, Ogg Vorbis or ID3).
type Source struct {
	ignored    []string
	chunk      int
	tempDir    string
	provenance artwork.Provenance
}

// Option configures a Source.
type Option func(*Source)

// WithIgnoredSchemes sets location schemes that are never searched.
func WithIgnoredSchemes(schemes []string) Option {
	return func(s *Source) {
		s.ignored = schemes
	}
}

// WithChunkSize sets how many directory entries are read per batch.
func WithChunkSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.chunk = n
		}
	}
}

// WithTempDir sets where extracted images are staged before the store
// ingests them.
func WithTempDir(dir string) Option {
	return func(s *Source) {
		s.tempDir = dir
	}
}

// WithProvenance sets the provenance recorded for extracted art.
func WithProvenance(p artwork.Provenance) Option {
	return func(s *Source) {
		s.provenance = p
	}
}

// New creates an embedded tag source.
func New(opts ...Option) *Source {
	s := &Source{
		ignored:    artwork.DefaultIgnoredSchemes,
		chunk:      DefaultChunkSize,
		provenance: artwork.ProvenanceUser,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements artwork.Source.
func (s *Source) Name() string { return "embedded" }

// Attempt implements artwork.Source. Enumeration and extraction run on their
// own goroutine.
func (s *Source) Attempt(ctx context.Context, req artwork.Request, store artwork.Store, done artwork.DoneFunc) {
	path, err := artwork.LocalPath(req.Location, s.ignored)
	if err != nil {
		done(artwork.Failure(s.Name(), err))
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", path).Msg("Tag extraction panicked")
				done(artwork.Failure(s.Name(), fmt.Errorf("%w: panic: %v", artwork.ErrExtractionFailed, r)))
			}
		}()
		done(s.search(ctx, req, path, store))
	}()
}

func (s *Source) search(ctx context.Context, req artwork.Request, path string, store artwork.Store) artwork.Result {
	matches := Siblings(ctx, filepath.Dir(path), Stem(path), s.chunk)
	if len(matches) == 0 {
		log.Debug().Str("path", path).Msg("No tag-bearing file beside track")
		return artwork.Failure(s.Name(), artwork.ErrNoArtwork)
	}

	var (
		pic     *Picture
		file    string
		lastErr error
	)
	for _, m := range matches {
		if ctx.Err() != nil {
			return artwork.Failure(s.Name(), ctx.Err())
		}
		p, err := ExtractPicture(m)
		if err != nil {
			log.Debug().Err(err).Str("file", m).Msg("No embedded picture")
			lastErr = err
			continue
		}
		pic, file = p, m
		break
	}
	if pic == nil {
		return artwork.Failure(s.Name(), lastErr)
	}

	if err := s.stage(ctx, req.Key, store, pic); err != nil {
		return artwork.Failure(s.Name(), err)
	}

	log.Debug().
		Str("file", file).
		Str("format", pic.Format).
		Str("mime", pic.MIMEType).
		Int("size", len(pic.Data)).
		Msg("Extracted embedded picture")
	return artwork.Success(s.Name())
}

// stage writes the picture in a temp file and hands its URI to the store,
// which copies it. The temp file is removed in every case.
func (s *Source) stage(ctx context.Context, key artwork.AlbumKey, store artwork.Store, pic *Picture) error {
	f, err := os.CreateTemp(s.tempDir, "coverart-*"+artwork.GetExtensionForMime(pic.MIMEType))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(pic.Data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := store.WriteURI(ctx, key, s.provenance, artwork.FileURI(tmp)); err != nil {
		return fmt.Errorf("store embedded art: %w", err)
	}
	return nil
}
