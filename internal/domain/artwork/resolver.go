package artwork

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Resolver is the entry point for album art requests. It answers from the
// store when it can and otherwise runs at most one SearchChain per album.
type Resolver struct {
	loop    *Loop
	store   Store
	sources func() []Source

	// touched only on the loop goroutine
	inflight map[string]*pendingChain

	count atomic.Int32

	mu        sync.RWMutex
	listeners []func(Resolution)
}

type pendingChain struct {
	chain   *SearchChain
	waiters []func(Resolution)
}

// NewResolver creates a resolver. sources is called once for every new
// chain and returns the sources in search order.
func NewResolver(loop *Loop, store Store, sources func() []Source) *Resolver {
	return &Resolver{
		loop:     loop,
		store:    store,
		sources:  sources,
		inflight: make(map[string]*pendingChain),
	}
}

// OnResolved registers fn to be called, on the loop goroutine, for every
// finished request. fn must not block.
func (r *Resolver) OnResolved(fn func(Resolution)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// InFlight returns the number of chains currently running.
func (r *Resolver) InFlight() int {
	return int(r.count.Load())
}

// Request asks for art for key. cb, if not nil, is called once on the loop
// goroutine with the outcome. A request for an album that already has a
// running chain joins that chain instead of starting another.
func (r *Resolver) Request(ctx context.Context, key AlbumKey, location string, cb func(Resolution)) {
	chainCtx := context.WithoutCancel(ctx)
	r.loop.Post(func() {
		r.handle(chainCtx, key, location, cb)
	})
}

// Resolve is the blocking form of Request.
func (r *Resolver) Resolve(ctx context.Context, key AlbumKey, location string) (Resolution, error) {
	ch := make(chan Resolution, 1)
	r.Request(ctx, key, location, func(res Resolution) {
		ch <- res
	})

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	}
}

func (r *Resolver) handle(ctx context.Context, key AlbumKey, location string, cb func(Resolution)) {
	if p, ok := r.inflight[key.ID()]; ok {
		log.Debug().
			Str("chain", p.chain.ID()).
			Str("album", key.Title()).
			Msg("Art search already running, joining")
		if cb != nil {
			p.waiters = append(p.waiters, cb)
		}
		return
	}

	entry, err := r.store.Lookup(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("album", key.Title()).Str("artist", key.Artist()).Msg("Art store lookup failed")
		entry = nil
	}

	if entry.HasArt() {
		res := Resolution{
			Key:       key,
			Succeeded: true,
			Source:    string(entry.Provenance),
			Cached:    true,
		}
		if cb != nil {
			cb(res)
		}
		r.notify(res)
		return
	}

	req := Request{Key: key, Location: location}
	if entry != nil {
		req.LastAttempt = entry.LastAttempt
		if req.Location == "" {
			req.Location = entry.Location
		}
	}

	p := &pendingChain{}
	if cb != nil {
		p.waiters = append(p.waiters, cb)
	}
	p.chain = NewSearchChain(ctx, r.loop, r.store, req, r.sources(), func(res Resolution) {
		r.complete(key, res)
	})
	r.inflight[key.ID()] = p
	r.count.Add(1)

	p.chain.Start()
}

func (r *Resolver) complete(key AlbumKey, res Resolution) {
	p, ok := r.inflight[key.ID()]
	if !ok {
		return
	}
	delete(r.inflight, key.ID())
	r.count.Add(-1)

	for _, w := range p.waiters {
		w(res)
	}
	r.notify(res)
}

func (r *Resolver) notify(res Resolution) {
	r.mu.RLock()
	listeners := r.listeners
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(res)
	}
}
