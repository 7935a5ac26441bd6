// Package mpd provides a wrapper around the gompd MPD client.
package mpd

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"
)

// Client wraps the MPD client with reconnection logic.
type Client struct {
	mu       sync.RWMutex
	client   *mpd.Client
	watcher  *mpd.Watcher
	host     string
	port     int
	password string
}

// NewClient creates a new MPD client wrapper.
func NewClient(host string, port int, password string) *Client {
	return &Client{
		host:     host,
		port:     port,
		password: password,
	}
}

func (c *Client) addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// Connect establishes connection to MPD.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

// connectLocked establishes connection (must hold lock).
func (c *Client) connectLocked() error {
	log.Info().Str("addr", c.addr()).Msg("Connecting to MPD")

	client, err := mpd.Dial("tcp", c.addr())
	if err != nil {
		return fmt.Errorf("failed to connect to MPD: %w", err)
	}

	if c.password != "" {
		if err := client.Command("password %s", c.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication failed: %w", err)
		}
	}

	c.client = client
	log.Info().Msg("Connected to MPD")
	return nil
}

// ensureConnected checks connection and reconnects if needed.
func (c *Client) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return c.connectLocked()
	}

	if err := c.client.Ping(); err != nil {
		log.Warn().Err(err).Msg("MPD connection lost, reconnecting...")
		c.client.Close()
		c.client = nil
		return c.connectLocked()
	}

	return nil
}

// Close closes the MPD connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Ping checks if the connection is alive.
func (c *Client) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	return c.client.Ping()
}

// Watch starts watching for MPD subsystem changes.
// Returns a channel that receives subsystem names when they change.
func (c *Client) Watch(subsystems ...string) (<-chan string, error) {
	watcher, err := mpd.NewWatcher("tcp", c.addr(), c.password, subsystems...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	ch := make(chan string, 10)

	go func() {
		defer close(ch)
		for {
			select {
			case subsystem, ok := <-watcher.Event:
				if !ok {
					return
				}
				ch <- subsystem
			case err, ok := <-watcher.Error:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("MPD watcher error")
				time.Sleep(time.Second)
			}
		}
	}()

	return ch, nil
}

// ReadPicture retrieves embedded album art for a song.
func (c *Client) ReadPicture(uri string) ([]byte, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.ReadPicture(uri)
}

// AlbumArt retrieves album art from the song's directory (cover.jpg, etc).
func (c *Client) AlbumArt(uri string) ([]byte, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.AlbumArt(uri)
}

// AlbumInfo is an album of the MPD database with a representative track.
type AlbumInfo struct {
	Album       string
	AlbumArtist string
	Artists     []string // track artists other than AlbumArtist
	FirstTrack  string   // path relative to the music directory
	TrackCount  int
}

// ListAlbums groups every song of the database by album and album artist.
func (c *Client) ListAlbums() ([]AlbumInfo, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	songs, err := c.client.ListAllInfo("")
	c.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	return groupAlbums(songs), nil
}

// groupAlbums builds AlbumInfo entries from song attributes, in order of
// first appearance.
func groupAlbums(songs []mpd.Attrs) []AlbumInfo {
	index := make(map[string]int)
	seenArtist := make(map[string]map[string]bool)
	var albums []AlbumInfo

	for _, song := range songs {
		album := song["Album"]
		if album == "" {
			continue
		}
		trackArtist := song["Artist"]
		artist := song["AlbumArtist"]
		if artist == "" {
			artist = trackArtist
		}

		key := album + "\x00" + artist
		i, ok := index[key]
		if !ok {
			i = len(albums)
			index[key] = i
			seenArtist[key] = map[string]bool{artist: true}
			albums = append(albums, AlbumInfo{
				Album:       album,
				AlbumArtist: artist,
				FirstTrack:  song["file"],
			})
		}

		a := &albums[i]
		a.TrackCount++
		if trackArtist != "" && !seenArtist[key][trackArtist] {
			seenArtist[key][trackArtist] = true
			a.Artists = append(a.Artists, trackArtist)
		}
		if f := song["file"]; f != "" && (a.FirstTrack == "" || f < a.FirstTrack) {
			a.FirstTrack = f
		}
	}

	for i := range albums {
		sort.Strings(albums[i].Artists)
	}
	return albums
}
