// Package artwork resolves album art by running an ordered chain of art
// sources against a shared art store.
package artwork

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoArtwork is returned when no artwork is found.
	ErrNoArtwork = errors.New("no artwork found")

	// ErrSourceUnavailable means a source cannot search for this album at all
	// (excluded URI scheme, no local directory, missing credentials).
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrExtractionFailed means a tag container was read but held no usable picture.
	ErrExtractionFailed = errors.New("no embedded picture")

	// ErrRateLimited means a remote source skipped the album because it was
	// searched too recently.
	ErrRateLimited = errors.New("searched too recently")
)

// Provenance records which strategy produced a stored art item.
type Provenance string

const (
	ProvenanceNone     Provenance = "none" // tombstone
	ProvenanceEmbedded Provenance = "embedded"
	ProvenanceUser     Provenance = "user"
	ProvenanceFolder   Provenance = "folder"
	ProvenanceMPD      Provenance = "mpd"
	ProvenanceSearch   Provenance = "search"
)

// ParseProvenance maps a configured tag to a Provenance, falling back to def.
func ParseProvenance(s string, def Provenance) Provenance {
	switch p := Provenance(s); p {
	case ProvenanceEmbedded, ProvenanceUser, ProvenanceFolder, ProvenanceMPD, ProvenanceSearch:
		return p
	default:
		return def
	}
}

// Entry is the store's record for one album key.
type Entry struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Provenance  Provenance `json:"provenance"`
	URI         string     `json:"uri,omitempty"`      // hot-linked remote art
	FilePath    string     `json:"filePath,omitempty"` // content addressed local copy
	MimeType    string     `json:"mimeType,omitempty"`
	FileSize    int        `json:"fileSize,omitempty"`
	Checksum    string     `json:"checksum,omitempty"`
	Location    string     `json:"location,omitempty"`
	Tombstone   bool       `json:"tombstone"`
	LastAttempt time.Time  `json:"lastAttempt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// HasArt reports whether the entry holds usable art (not a miss or tombstone).
func (e *Entry) HasArt() bool {
	return e != nil && !e.Tombstone && (e.FilePath != "" || e.URI != "")
}

// Store is the art store the chain and its sources write into.
type Store interface {
	// Lookup returns the entry for key, or nil, nil when the store has none.
	Lookup(ctx context.Context, key AlbumKey) (*Entry, error)
	WriteBytes(ctx context.Context, key AlbumKey, prov Provenance, data []byte) error
	WriteURI(ctx context.Context, key AlbumKey, prov Provenance, uri string) error
	// WriteTombstone records that every source failed for key.
	WriteTombstone(ctx context.Context, key AlbumKey, location string) error
}

// Request is what a source is asked to search for.
type Request struct {
	Key         AlbumKey
	Location    string    // representative track, file:// URI or plain path
	LastAttempt time.Time // zero when the album was never searched
}

// Result is a source's single completion report.
type Result struct {
	Source    string
	Succeeded bool
	Err       error
}

// Success builds a successful result.
func Success(source string) Result {
	return Result{Source: source, Succeeded: true}
}

// Failure builds a failed result; err may be nil for a plain miss.
func Failure(source string, err error) Result {
	if err == nil {
		err = ErrNoArtwork
	}
	return Result{Source: source, Err: err}
}

// DoneFunc receives a source's completion report. It may be called from any
// goroutine.
type DoneFunc func(Result)

// Source is one strategy for locating art.
//
// Attempt must call done exactly once, synchronously or asynchronously,
// whatever the outcome. On success the source has already written to store
// before calling done. Errors never escape Attempt; they travel in Result.Err.
type Source interface {
	Name() string
	Attempt(ctx context.Context, req Request, store Store, done DoneFunc)
}

// Resolution describes how a request for album art ended.
type Resolution struct {
	ChainID    string   `json:"chainId,omitempty"`
	Key        AlbumKey `json:"-"`
	Succeeded  bool     `json:"succeeded"`
	Source     string   `json:"source,omitempty"` // source that produced the art
	Cached     bool     `json:"cached"`           // store already held art, no chain ran
	Tombstoned bool     `json:"tombstoned"`
	Attempts   int      `json:"attempts"`
}
