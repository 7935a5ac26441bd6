// Package enrichment looks album covers up in remote catalogs (Discogs,
// MusicBrainz with the Cover Art Archive, Deezer) and keeps the library's
// art store filled in the background.
package enrichment

import (
	"context"
	"errors"
	"time"

	"github.com/edumarques81/stellar-coverart/internal/version"
)

// Common errors
var (
	// ErrArtworkNotFound indicates artwork was not found (permanent failure)
	ErrArtworkNotFound = errors.New("artwork not found")

	// ErrTemporaryFailure indicates a temporary failure (should retry)
	ErrTemporaryFailure = errors.New("temporary failure")

	// ErrRateLimited indicates the remote service refused the request rate
	ErrRateLimited = errors.New("rate limited")

	// ErrNotConfigured indicates a catalog is missing credentials
	ErrNotConfigured = errors.New("catalog not configured")
)

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps how much of a catalog response is read (2MB)
	MaxResponseSize = 2 * 1024 * 1024
)

// DefaultUserAgent follows the MusicBrainz "app/version (contact)" guideline.
var DefaultUserAgent = version.GetInfo().UserAgent()

// CatalogMatch is a catalog hit for an album.
type CatalogMatch struct {
	Catalog   string
	ReleaseID string
	Title     string
	ThumbURL  string // small image, hot-linked by the store
}

// Catalog searches a remote database for an album cover.
type Catalog interface {
	Name() string
	// SearchAlbumThumb returns nil, nil when the catalog has no match.
	SearchAlbumThumb(ctx context.Context, artist, album string) (*CatalogMatch, error)
}

// IsPermanentError returns true if the error indicates a permanent failure
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrArtworkNotFound) || errors.Is(err, ErrNotConfigured)
}

// IsTemporaryError returns true if the error indicates a temporary failure
func IsTemporaryError(err error) bool {
	return errors.Is(err, ErrTemporaryFailure) || errors.Is(err, ErrRateLimited)
}
