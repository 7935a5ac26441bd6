package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// ErrNotImage is returned when bytes written to the store are not a known
// image format.
var ErrNotImage = errors.New("data is not an image")

// ArtStore implements artwork.Store on SQLite and a FileStore.
//
// Write policy: every write stamps last_attempt; real art replaces a
// tombstone or older art; a tombstone never replaces real art. A file://
// URI is ingested into the file store, any other URI is kept as a hot link.
type ArtStore struct {
	db     *DB
	dao    *DAO
	files  *FileStore
	thumbs *artwork.ThumbnailGenerator
	now    func() time.Time

	// refs is held from placing a file until its entry is saved, and while
	// an unreferenced file is released.
	refs sync.Mutex
}

// StoreOption configures an ArtStore.
type StoreOption func(*ArtStore)

// WithStoreClock replaces time.Now (useful for testing).
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *ArtStore) {
		s.now = now
	}
}

// WithoutThumbnails disables thumbnail generation.
func WithoutThumbnails() StoreOption {
	return func(s *ArtStore) {
		s.thumbs = nil
	}
}

// NewArtStore creates a store over an open DB, keeping files below dir.
func NewArtStore(db *DB, dir string, opts ...StoreOption) *ArtStore {
	s := &ArtStore{
		db:     db,
		dao:    NewDAO(db),
		files:  NewFileStore(dir),
		thumbs: artwork.NewThumbnailGenerator(filepath.Join(dir, "thumbs")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup implements artwork.Store.
func (s *ArtStore) Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error) {
	return s.dao.GetEntry(ctx, key.ID())
}

// WriteBytes implements artwork.Store.
func (s *ArtStore) WriteBytes(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, data []byte) error {
	if !artwork.IsImage(data) {
		return ErrNotImage
	}

	s.refs.Lock()
	prev, err := s.dao.GetEntry(ctx, key.ID())
	if err != nil {
		s.refs.Unlock()
		return fmt.Errorf("lookup: %w", err)
	}

	stored, err := s.files.Put(data)
	if err != nil {
		s.refs.Unlock()
		return err
	}

	e := &artwork.Entry{
		ID:          key.ID(),
		Title:       key.Title(),
		Artist:      key.Artist(),
		Provenance:  prov,
		FilePath:    stored.RelPath,
		MimeType:    stored.MimeType,
		FileSize:    stored.Size,
		Checksum:    stored.Checksum,
		LastAttempt: s.now(),
	}
	err = s.dao.UpsertEntry(ctx, e)
	s.refs.Unlock()
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}

	if s.thumbs != nil {
		s.thumbs.GenerateAll(s.files.Path(stored.RelPath), stored.Checksum)
	}

	log.Debug().
		Str("album", key.Title()).
		Str("artist", key.Artist()).
		Str("provenance", string(prov)).
		Str("checksum", stored.Checksum).
		Int("size", stored.Size).
		Msg("Album art stored")

	s.release(ctx, prev, stored.Checksum)
	return nil
}

// WriteURI implements artwork.Store.
func (s *ArtStore) WriteURI(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, uri string) error {
	if uri == "" {
		return fmt.Errorf("empty art uri")
	}

	if artwork.IsFileURI(uri) || filepath.IsAbs(uri) {
		path, err := artwork.LocalPath(uri, nil)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read art file: %w", err)
		}
		return s.WriteBytes(ctx, key, prov, data)
	}

	prev, err := s.dao.GetEntry(ctx, key.ID())
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}

	e := &artwork.Entry{
		ID:          key.ID(),
		Title:       key.Title(),
		Artist:      key.Artist(),
		Provenance:  prov,
		URI:         uri,
		LastAttempt: s.now(),
	}
	if err := s.dao.UpsertEntry(ctx, e); err != nil {
		return fmt.Errorf("save entry: %w", err)
	}

	log.Debug().
		Str("album", key.Title()).
		Str("artist", key.Artist()).
		Str("provenance", string(prov)).
		Str("uri", uri).
		Msg("Album art hot link stored")

	s.release(ctx, prev, "")
	return nil
}

// WriteTombstone implements artwork.Store.
func (s *ArtStore) WriteTombstone(ctx context.Context, key artwork.AlbumKey, location string) error {
	prev, err := s.dao.GetEntry(ctx, key.ID())
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if prev.HasArt() {
		return s.dao.TouchEntry(ctx, key.ID(), s.now())
	}

	return s.dao.UpsertEntry(ctx, &artwork.Entry{
		ID:          key.ID(),
		Title:       key.Title(),
		Artist:      key.Artist(),
		Provenance:  artwork.ProvenanceNone,
		Location:    location,
		Tombstone:   true,
		LastAttempt: s.now(),
	})
}

// release removes the previous file of an entry once nothing references it.
func (s *ArtStore) release(ctx context.Context, prev *artwork.Entry, keep string) {
	if prev == nil || prev.Checksum == "" || prev.Checksum == keep {
		return
	}

	s.refs.Lock()
	defer s.refs.Unlock()

	n, err := s.dao.CountChecksum(ctx, prev.Checksum)
	if err != nil || n > 0 {
		return
	}
	if err := s.files.Remove(prev.FilePath); err != nil {
		log.Warn().Err(err).Str("path", prev.FilePath).Msg("Failed to remove replaced art file")
	}
	if s.thumbs != nil {
		s.thumbs.Remove(prev.Checksum)
	}
}

// ExpiredTombstones returns up to limit tombstones last attempted before olderThan.
func (s *ArtStore) ExpiredTombstones(ctx context.Context, olderThan time.Time, limit int) ([]artwork.Entry, error) {
	return s.dao.ExpiredTombstones(ctx, olderThan, limit)
}

// ForgetTombstonesUnder deletes the tombstones of albums located below dir
// and returns them, so that they can be requested again.
func (s *ArtStore) ForgetTombstonesUnder(ctx context.Context, dir string) ([]artwork.Entry, error) {
	entries, err := s.dao.TombstonesUnder(ctx, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := s.dao.DeleteEntry(ctx, e.ID); err != nil {
			return nil, fmt.Errorf("delete tombstone %s: %w", e.ID, err)
		}
	}
	if len(entries) > 0 {
		log.Debug().Str("dir", dir).Int("count", len(entries)).Msg("Forgot art tombstones")
	}
	return entries, nil
}

// Stats returns store statistics.
func (s *ArtStore) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.dao.CollectStats(ctx)
	if err != nil {
		return nil, err
	}
	if v, err := s.db.SchemaVersion(); err == nil {
		stats.SchemaVersion = v
	}
	return stats, nil
}

// FilePath returns the absolute path of an entry's local file, or "" for
// hot links and tombstones.
func (s *ArtStore) FilePath(e *artwork.Entry) string {
	if e == nil || e.FilePath == "" {
		return ""
	}
	return s.files.Path(e.FilePath)
}

// ThumbnailPath returns the thumbnail of an entry's local file, generating
// it when missing.
func (s *ArtStore) ThumbnailPath(e *artwork.Entry, size artwork.ThumbnailSize) (string, error) {
	if e == nil || e.FilePath == "" {
		return "", artwork.ErrNoArtwork
	}
	if s.thumbs == nil {
		return s.FilePath(e), nil
	}
	return s.thumbs.Generate(s.FilePath(e), e.Checksum, size)
}
