package artwork_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

// memStore is an in-memory artwork.Store honouring the tombstone policy.
type memStore struct {
	mu         sync.Mutex
	entries    map[string]*artwork.Entry
	tombstones int
	writes     int
	lookupErr  error
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*artwork.Entry)}
}

func (m *memStore) Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	e, ok := m.entries[key.ID()]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) WriteBytes(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, data []byte) error {
	return m.put(key, &artwork.Entry{Provenance: prov, FilePath: "mem/" + key.ID(), FileSize: len(data)})
}

func (m *memStore) WriteURI(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, uri string) error {
	return m.put(key, &artwork.Entry{Provenance: prov, URI: uri})
}

func (m *memStore) WriteTombstone(ctx context.Context, key artwork.AlbumKey, location string) error {
	m.mu.Lock()
	m.tombstones++
	m.mu.Unlock()
	return m.put(key, &artwork.Entry{Provenance: artwork.ProvenanceNone, Tombstone: true, Location: location})
}

func (m *memStore) put(key artwork.AlbumKey, e *artwork.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if cur, ok := m.entries[key.ID()]; ok && cur.HasArt() && e.Tombstone {
		cur.LastAttempt = time.Now()
		return nil
	}
	e.ID = key.ID()
	e.Title = key.Title()
	e.Artist = key.Artist()
	e.LastAttempt = time.Now()
	m.entries[key.ID()] = e
	return nil
}

func (m *memStore) tombstoneCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tombstones
}

func (m *memStore) entry(key artwork.AlbumKey) *artwork.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key.ID()]
}

// fakeSource succeeds or fails on demand and counts invocations.
type fakeSource struct {
	name    string
	succeed bool
	async   bool
	twice   bool          // report completion a second time
	release chan struct{} // when set, completion waits for it
	panics  bool

	calls   atomic.Int32
	lastReq atomic.Pointer[artwork.Request]
	order   *callOrder
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Attempt(ctx context.Context, req artwork.Request, store artwork.Store, done artwork.DoneFunc) {
	s.calls.Add(1)
	s.lastReq.Store(&req)
	if s.order != nil {
		s.order.add(s.name)
	}
	if s.panics {
		panic("boom")
	}

	finish := func() {
		if s.release != nil {
			<-s.release
		}
		r := artwork.Failure(s.name, nil)
		if s.succeed {
			if err := store.WriteBytes(ctx, req.Key, artwork.ProvenanceUser, jpegBytes); err != nil {
				r = artwork.Failure(s.name, err)
			} else {
				r = artwork.Success(s.name)
			}
		}
		done(r)
		if s.twice {
			done(r)
		}
	}

	if s.async || s.release != nil {
		go finish()
		return
	}
	finish()
}

type callOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *callOrder) add(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func (o *callOrder) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.names...)
}

// startLoop runs a loop for the duration of the test.
func startLoop(t *testing.T) *artwork.Loop {
	t.Helper()
	loop := artwork.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// drain waits until everything posted to loop so far has run.
func drain(t *testing.T, loop *artwork.Loop) {
	t.Helper()
	ch := make(chan struct{})
	loop.Post(func() { close(ch) })
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
}

func waitResolution(t *testing.T, ch <-chan artwork.Resolution) artwork.Resolution {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resolution")
		return artwork.Resolution{}
	}
}
