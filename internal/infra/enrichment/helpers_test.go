package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// uriStore records WriteURI calls.
type uriStore struct {
	mu      sync.Mutex
	entries map[string]*artwork.Entry
	uris    []string
}

func newURIStore() *uriStore {
	return &uriStore{entries: make(map[string]*artwork.Entry)}
}

func (s *uriStore) Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.ID()]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *uriStore) WriteBytes(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, data []byte) error {
	return nil
}

func (s *uriStore) WriteURI(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uris = append(s.uris, uri)
	s.entries[key.ID()] = &artwork.Entry{ID: key.ID(), Provenance: prov, URI: uri}
	return nil
}

func (s *uriStore) WriteTombstone(ctx context.Context, key artwork.AlbumKey, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.ID()] = &artwork.Entry{ID: key.ID(), Tombstone: true, Location: location}
	return nil
}

func (s *uriStore) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uris...)
}

// fakeCatalog answers from a map of artist to match.
type fakeCatalog struct {
	mu      sync.Mutex
	matches map[string]*CatalogMatch
	err     error
	asked   []string
}

func (f *fakeCatalog) Name() string { return "fake" }

func (f *fakeCatalog) SearchAlbumThumb(ctx context.Context, artist, album string) (*CatalogMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, artist)
	if f.err != nil {
		return nil, f.err
	}
	return f.matches[artist], nil
}

func (f *fakeCatalog) artistsAsked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.asked...)
}

// recordingRequester records Request calls.
type recordingRequester struct {
	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	key      artwork.AlbumKey
	location string
}

func (r *recordingRequester) Request(ctx context.Context, key artwork.AlbumKey, location string, cb func(artwork.Resolution)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{key: key, location: location})
}

func (r *recordingRequester) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

// waitResult waits for a DoneFunc result.
func waitResult(ch <-chan artwork.Result) (artwork.Result, bool) {
	select {
	case r := <-ch:
		return r, true
	case <-time.After(2 * time.Second):
		return artwork.Result{}, false
	}
}
