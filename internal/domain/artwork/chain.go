package artwork

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChainState is the lifecycle state of a SearchChain.
type ChainState int

const (
	ChainIdle ChainState = iota
	ChainRunning
	ChainDone
)

func (s ChainState) String() string {
	switch s {
	case ChainIdle:
		return "idle"
	case ChainRunning:
		return "running"
	case ChainDone:
		return "done"
	default:
		return fmt.Sprintf("ChainState(%d)", int(s))
	}
}

// AttemptState is the state of one source's participation in a chain.
type AttemptState int

const (
	AttemptPending AttemptState = iota
	AttemptSucceeded
	AttemptFailed
)

// SearchAttempt records one source invocation.
type SearchAttempt struct {
	Source   string
	State    AttemptState
	Err      error
	Started  time.Time
	Finished time.Time
}

// SearchChain tries an ordered list of sources for one album until one of
// them succeeds or the list is exhausted. All of its methods other than
// Start run on the loop goroutine.
type SearchChain struct {
	id         string
	ctx        context.Context
	loop       *Loop
	store      Store
	req        Request
	sources    []Source
	onComplete func(Resolution)

	state    ChainState
	cursor   int
	attempts []*SearchAttempt
}

// NewSearchChain creates a chain for req. onComplete is called exactly once,
// on the loop goroutine, when the chain terminates.
func NewSearchChain(ctx context.Context, loop *Loop, store Store, req Request, sources []Source, onComplete func(Resolution)) *SearchChain {
	return &SearchChain{
		id:         uuid.NewString(),
		ctx:        ctx,
		loop:       loop,
		store:      store,
		req:        req,
		sources:    append([]Source(nil), sources...),
		onComplete: onComplete,
	}
}

// ID returns the chain's log identifier.
func (c *SearchChain) ID() string { return c.id }

// Start schedules the first attempt on the loop.
func (c *SearchChain) Start() {
	c.loop.Post(c.start)
}

// State returns the current state. Only meaningful on the loop goroutine.
func (c *SearchChain) State() ChainState { return c.state }

// Attempts returns the attempts made so far. Only meaningful on the loop goroutine.
func (c *SearchChain) Attempts() []SearchAttempt {
	out := make([]SearchAttempt, len(c.attempts))
	for i, a := range c.attempts {
		out[i] = *a
	}
	return out
}

func (c *SearchChain) start() {
	if c.state != ChainIdle {
		log.Warn().Str("chain", c.id).Str("state", c.state.String()).Msg("Search chain started twice")
		return
	}
	c.state = ChainRunning

	log.Debug().
		Str("chain", c.id).
		Str("album", c.req.Key.Title()).
		Str("artist", c.req.Key.Artist()).
		Int("sources", len(c.sources)).
		Msg("Starting art search chain")

	c.advance()
}

// advance invokes the next source, or terminates the chain when none remain.
func (c *SearchChain) advance() {
	if c.cursor >= len(c.sources) {
		c.exhaust()
		return
	}

	src := c.sources[c.cursor]
	c.cursor++

	attempt := &SearchAttempt{
		Source:  src.Name(),
		State:   AttemptPending,
		Started: time.Now(),
	}
	c.attempts = append(c.attempts, attempt)

	var once sync.Once
	done := func(r Result) {
		first := false
		once.Do(func() { first = true })
		if !first {
			log.Warn().Str("chain", c.id).Str("source", attempt.Source).Msg("Art source reported completion twice")
			return
		}
		c.loop.Post(func() { c.onSourceDone(attempt, r) })
	}

	c.invoke(src, done)
}

func (c *SearchChain) invoke(src Source, done DoneFunc) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("chain", c.id).
				Str("source", src.Name()).
				Interface("panic", r).
				Msg("Art source panicked")
			done(Failure(src.Name(), fmt.Errorf("source panicked: %v", r)))
		}
	}()
	src.Attempt(c.ctx, c.req, c.store, done)
}

func (c *SearchChain) onSourceDone(attempt *SearchAttempt, r Result) {
	if attempt.State != AttemptPending || c.state != ChainRunning {
		return
	}

	attempt.Finished = time.Now()
	if r.Succeeded {
		attempt.State = AttemptSucceeded
		log.Info().
			Str("chain", c.id).
			Str("source", attempt.Source).
			Str("album", c.req.Key.Title()).
			Str("artist", c.req.Key.Artist()).
			Dur("took", attempt.Finished.Sub(attempt.Started)).
			Msg("Album art found")
		c.finish(Resolution{Succeeded: true, Source: attempt.Source})
		return
	}

	attempt.State = AttemptFailed
	attempt.Err = r.Err
	log.Debug().
		Err(r.Err).
		Str("chain", c.id).
		Str("source", attempt.Source).
		Msg("Art source found nothing, advancing")
	c.advance()
}

// exhaust records a tombstone so the album is not searched again every time
// it is displayed.
func (c *SearchChain) exhaust() {
	res := Resolution{}
	if err := c.store.WriteTombstone(c.ctx, c.req.Key, c.req.Location); err != nil {
		log.Warn().Err(err).Str("chain", c.id).Msg("Failed to write art tombstone")
	} else {
		res.Tombstoned = true
	}

	log.Debug().
		Str("chain", c.id).
		Str("album", c.req.Key.Title()).
		Str("artist", c.req.Key.Artist()).
		Int("attempts", len(c.attempts)).
		Msg("No album art found by any source")

	c.finish(res)
}

func (c *SearchChain) finish(res Resolution) {
	c.state = ChainDone
	res.ChainID = c.id
	res.Key = c.req.Key
	res.Attempts = len(c.attempts)
	if c.onComplete != nil {
		c.onComplete(res)
	}
}
