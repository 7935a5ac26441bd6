package artwork

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Loop is a single-consumer dispatch queue. Every chain state transition runs
// on the goroutine executing Run; other goroutines only Post to it.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates an idle loop. Call Run to start draining it.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn. It never blocks, so it is safe to call from inside a
// function already running on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued functions.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run drains the queue until ctx is cancelled. Functions still queued at
// cancellation are dropped.
func (l *Loop) Run(ctx context.Context) error {
	log.Debug().Msg("Art dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("dropped", l.Len()).Msg("Art dispatch loop stopped")
			return ctx.Err()
		case <-l.wake:
			for {
				fn := l.next()
				if fn == nil {
					break
				}
				l.exec(fn)
				if ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered panic in art dispatch loop")
		}
	}()
	fn()
}
