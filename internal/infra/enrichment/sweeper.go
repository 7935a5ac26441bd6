package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// TombstoneLister returns tombstones last attempted before olderThan.
type TombstoneLister interface {
	ExpiredTombstones(ctx context.Context, olderThan time.Time, limit int) ([]artwork.Entry, error)
}

// SweeperConfig contains configuration for the tombstone sweeper
type SweeperConfig struct {
	BatchSize int
	Interval  time.Duration
	Window    time.Duration // tombstones younger than this are left alone
}

// DefaultSweeperConfig returns the default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		BatchSize: 50,
		Interval:  6 * time.Hour,
		Window:    DefaultRepeatWindow,
	}
}

// Sweeper periodically re-requests albums whose tombstone is older than the
// repeat window, so that catalogs get another chance at them.
type Sweeper struct {
	tombstones TombstoneLister
	requester  Requester
	config     SweeperConfig
	now        func() time.Time
	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
}

// SweeperOption is a functional option for configuring the sweeper
type SweeperOption func(*Sweeper)

// WithBatchSize sets the number of tombstones re-requested per sweep
func WithBatchSize(size int) SweeperOption {
	return func(s *Sweeper) {
		if size > 0 {
			s.config.BatchSize = size
		}
	}
}

// WithSweepInterval sets the interval between sweeps
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.config.Interval = interval
		}
	}
}

// WithSweepWindow sets the minimum tombstone age
func WithSweepWindow(window time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.config.Window = window
	}
}

// WithSweepClock replaces time.Now (useful for testing)
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// NewSweeper creates a new tombstone sweeper
func NewSweeper(tombstones TombstoneLister, requester Requester, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		tombstones: tombstones,
		requester:  requester,
		config:     DefaultSweeperConfig(),
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start sweeps immediately and then on every tick until ctx is cancelled or
// Stop is called. It blocks.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Info().
		Int("batchSize", s.config.BatchSize).
		Dur("interval", s.config.Interval).
		Msg("Tombstone sweeper started")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Tombstone sweeper stopping (context cancelled)")
			return
		case <-stopCh:
			log.Info().Msg("Tombstone sweeper stopping (stop requested)")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		select {
		case <-s.stopCh:
		default:
			close(s.stopCh)
		}
	}
}

// IsRunning returns whether the sweeper is currently running
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Sweep re-requests one batch of expired tombstones and returns how many.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.config.Window)
	entries, err := s.tombstones.ExpiredTombstones(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expired tombstones")
		return 0
	}
	if len(entries) == 0 {
		return 0
	}

	log.Debug().Int("count", len(entries)).Msg("Re-requesting albums with expired tombstones")

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		s.requester.Request(ctx, artwork.NewAlbumKey(e.Title, e.Artist), e.Location, nil)
	}
	return len(entries)
}
