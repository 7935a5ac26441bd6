// Package watcher watches the music directory and gives albums another
// chance at art when image or audio files appear next to them.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
	"github.com/edumarques81/stellar-coverart/internal/infra/embedded"
)

// TombstoneForgetter drops the tombstones recorded below a directory and
// returns them.
type TombstoneForgetter interface {
	ForgetTombstonesUnder(ctx context.Context, dir string) ([]artwork.Entry, error)
}

// Requester starts an art search.
type Requester interface {
	Request(ctx context.Context, key artwork.AlbumKey, location string, cb func(artwork.Resolution))
}

// Option configures a Service.
type Option func(*Service)

// WithDebounce sets how long the tree must stay quiet before dirty
// directories are processed.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithMaxDepth limits how many directory levels below the root are watched.
func WithMaxDepth(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxDepth = n
		}
	}
}

// Service watches a music directory tree.
type Service struct {
	root      string
	store     TombstoneForgetter
	requester Requester
	debounce  time.Duration
	maxDepth  int

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching map[string]bool
	dirty    map[string]struct{}
}

// NewService creates a watcher for root.
func NewService(root string, store TombstoneForgetter, requester Requester, opts ...Option) *Service {
	s := &Service{
		root:      filepath.Clean(root),
		store:     store,
		requester: requester,
		debounce:  2 * time.Second,
		maxDepth:  4,
		watching:  make(map[string]bool),
		dirty:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start blocks until ctx is canceled.
func (s *Service) Start(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("music directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("music directory %s is not a directory", s.root)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer w.Close()

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	s.addTree(s.root)

	log.Info().
		Str("root", s.root).
		Int("dirs", s.WatchCount()).
		Int("maxDepth", s.maxDepth).
		Msg("Music directory watcher started")

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounceTimer.Stop()
			log.Info().Msg("Music directory watcher stopping")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !s.handleEvent(ev) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)
			pending = true

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("fsnotify error")

		case <-debounceTimer.C:
			if pending {
				pending = false
				s.Flush(ctx)
			}
		}
	}
}

// WatchCount returns the number of watched directories.
func (s *Service) WatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watching)
}

// handleEvent reports whether ev made a directory dirty.
func (s *Service) handleEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if ev.Has(fsnotify.Rename) {
		// the old name is gone; the new name arrives as a Create
		s.mu.Lock()
		delete(s.watching, ev.Name)
		s.mu.Unlock()
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// a moved-in album arrives with its files already in place
			s.addTree(ev.Name)
			s.markDirty(ev.Name)
			return true
		}
	}

	if !isRelevantFile(ev.Name) {
		return false
	}
	s.markDirty(filepath.Dir(ev.Name))
	return true
}

func (s *Service) markDirty(dir string) {
	s.mu.Lock()
	s.dirty[dir] = struct{}{}
	s.mu.Unlock()

	log.Debug().Str("dir", dir).Msg("Directory marked dirty")
}

// Flush forgets the tombstones below every dirty directory and re-requests
// those albums. It returns the number of requests made.
func (s *Service) Flush(ctx context.Context) int {
	s.mu.Lock()
	dirs := make([]string, 0, len(s.dirty))
	for d := range s.dirty {
		dirs = append(dirs, d)
	}
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	sort.Strings(dirs)

	requested := 0
	for _, dir := range dirs {
		entries, err := s.store.ForgetTombstonesUnder(ctx, dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to forget tombstones")
			continue
		}
		for _, e := range entries {
			key := artwork.NewAlbumKey(e.Title, e.Artist)
			s.requester.Request(ctx, key, e.Location, nil)
			requested++
		}
	}

	if requested > 0 {
		log.Info().
			Int("dirs", len(dirs)).
			Int("albums", requested).
			Msg("Re-requested art after directory changes")
	}
	return requested
}

// addTree watches dir and its subdirectories down to the depth limit.
func (s *Service) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.root {
			return filepath.SkipDir
		}
		depth := s.depth(path)
		if depth < 0 || depth > s.maxDepth {
			return filepath.SkipDir
		}
		s.add(path)
		return nil
	})
}

func (s *Service) add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watching[path] || s.watcher == nil {
		return
	}
	if err := s.watcher.Add(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
		return
	}
	s.watching[path] = true
}

// depth returns how many levels path is below the root, or -1 when it is
// outside the root.
func (s *Service) depth(path string) int {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return -1
	}
	if rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isRelevantFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range artwork.ArtworkExtensions {
		if ext == e {
			return true
		}
	}
	return strings.HasPrefix(embedded.ContentType(base), "audio/")
}
