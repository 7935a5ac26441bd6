// Package config loads the cover-art daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	MPD         MPDConfig         `yaml:"mpd"`
	Library     LibraryConfig     `yaml:"library"`
	Cache       CacheConfig       `yaml:"cache"`
	Search      SearchConfig      `yaml:"search"`
	Discogs     DiscogsConfig     `yaml:"discogs"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
	Fanart      FanartConfig      `yaml:"fanart"`
	Deezer      DeezerConfig      `yaml:"deezer"`
	Sweep       SweepConfig       `yaml:"sweep"`
	Watcher     WatcherConfig     `yaml:"watcher"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP / Socket.IO settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// MPDConfig holds MPD connection settings.
type MPDConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// LibraryConfig holds music library settings.
type LibraryConfig struct {
	MusicDir string `yaml:"music_dir"`
}

// CacheConfig holds art store settings.
type CacheConfig struct {
	Dir    string `yaml:"dir"`
	DBPath string `yaml:"db_path"`
}

// SearchConfig selects and tunes the art sources tried for every request.
type SearchConfig struct {
	Embedded    bool `yaml:"embedded"`
	Folder      bool `yaml:"folder"`
	MPD         bool `yaml:"mpd"`
	Discogs     bool `yaml:"discogs"`
	MusicBrainz bool `yaml:"musicbrainz"`
	Deezer      bool `yaml:"deezer"`

	// RepeatWindow is the minimum time between two remote lookups for the same album.
	RepeatWindow   time.Duration `yaml:"repeat_window"`
	IgnoredSchemes []string      `yaml:"ignored_schemes"`
	EnumerateChunk int           `yaml:"enumerate_chunk"`
	TempDir        string        `yaml:"temp_dir"`

	Provenance ProvenanceConfig `yaml:"provenance"`
}

// ProvenanceConfig names the provenance tag each source writes with.
type ProvenanceConfig struct {
	Embedded string `yaml:"embedded"`
	Folder   string `yaml:"folder"`
	MPD      string `yaml:"mpd"`
	Catalog  string `yaml:"catalog"`
}

// DiscogsConfig holds Discogs API settings.
type DiscogsConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// MusicBrainzConfig holds MusicBrainz and Cover Art Archive settings.
type MusicBrainzConfig struct {
	BaseURL    string `yaml:"base_url"`
	CAABaseURL string `yaml:"caa_base_url"`
}

// FanartConfig holds fanart.tv settings, used as a fallback behind the
// Cover Art Archive. Without an API key it is skipped.
type FanartConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// DeezerConfig holds Deezer API settings. Deezer covers are hot-linked only.
type DeezerConfig struct {
	BaseURL string `yaml:"base_url"`
}

// SweepConfig controls the periodic re-request of expired tombstones.
type SweepConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

// WatcherConfig controls the music directory watcher.
type WatcherConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
	MaxDepth int           `yaml:"max_depth"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// DefaultRepeatWindow is how long a remote catalog is left alone for an album
// that was already searched.
const DefaultRepeatWindow = 7 * 24 * time.Hour

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "3002",
		},
		MPD: MPDConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    6600,
		},
		Library: LibraryConfig{
			MusicDir: "/var/lib/mpd/music",
		},
		Cache: CacheConfig{
			Dir:    "data/coverart",
			DBPath: "data/coverart.db",
		},
		Search: SearchConfig{
			Embedded:       true,
			Folder:         true,
			MPD:            false,
			Discogs:        true,
			MusicBrainz:    true,
			RepeatWindow:   DefaultRepeatWindow,
			IgnoredSchemes: []string{"http", "https", "cdda", "daap", "mms", "rtsp"},
			EnumerateChunk: 10,
			TempDir:        os.TempDir(),
			Provenance: ProvenanceConfig{
				Embedded: "user",
				Folder:   "folder",
				MPD:      "mpd",
				Catalog:  "search",
			},
		},
		Discogs: DiscogsConfig{
			BaseURL: "https://api.discogs.com",
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:    "https://musicbrainz.org/ws/2",
			CAABaseURL: "https://coverartarchive.org",
		},
		Fanart: FanartConfig{
			BaseURL: "https://webservice.fanart.tv/v3/music",
		},
		Deezer: DeezerConfig{
			BaseURL: "https://api.deezer.com",
		},
		Sweep: SweepConfig{
			Interval:  6 * time.Hour,
			BatchSize: 50,
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: 2 * time.Second,
			MaxDepth: 4,
		},
		Logging: LoggingConfig{
			Level:          "info",
			FileMaxSizeMB:  10,
			FileMaxFiles:   3,
			FileMaxAgeDays: 30,
		},
	}
}

// Load reads config from a YAML file (if it exists), a .env file next to the
// working directory (if any) and environment variables. Environment variables
// take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("COVERART_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("COVERART_MPD_HOST"); v != "" {
		c.MPD.Host = v
	}
	if v := os.Getenv("COVERART_MPD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MPD.Port = port
		}
	}
	if v := os.Getenv("COVERART_MPD_PASSWORD"); v != "" {
		c.MPD.Password = v
	}
	if v := os.Getenv("COVERART_MUSIC_DIR"); v != "" {
		c.Library.MusicDir = v
	}
	if v := os.Getenv("COVERART_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("COVERART_DB_PATH"); v != "" {
		c.Cache.DBPath = v
	}
	if v := os.Getenv("COVERART_DISCOGS_TOKEN"); v != "" {
		c.Discogs.Token = v
	}
	if v := os.Getenv("COVERART_FANART_API_KEY"); v != "" {
		c.Fanart.APIKey = v
	}
	if v := os.Getenv("COVERART_REPEAT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Search.RepeatWindow = d
		}
	}
	if v := os.Getenv("COVERART_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COVERART_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("COVERART_SOURCES"); v != "" {
		c.Search.setEnabled(strings.Split(v, ","))
	}
}

// setEnabled replaces the enabled-source toggles with the given source names.
func (s *SearchConfig) setEnabled(names []string) {
	s.Embedded, s.Folder, s.MPD, s.Discogs, s.MusicBrainz, s.Deezer = false, false, false, false, false, false
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "embedded":
			s.Embedded = true
		case "folder":
			s.Folder = true
		case "mpd":
			s.MPD = true
		case "discogs":
			s.Discogs = true
		case "musicbrainz":
			s.MusicBrainz = true
		case "deezer":
			s.Deezer = true
		}
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port must be set")
	}
	if c.Cache.Dir == "" || c.Cache.DBPath == "" {
		return errors.New("cache.dir and cache.db_path must be set")
	}
	if c.Search.RepeatWindow < 0 {
		return fmt.Errorf("search.repeat_window must not be negative, got %s", c.Search.RepeatWindow)
	}
	if c.Search.EnumerateChunk <= 0 {
		return fmt.Errorf("search.enumerate_chunk must be positive, got %d", c.Search.EnumerateChunk)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive, got %s", c.Sweep.Interval)
	}
	if c.MPD.Enabled && (c.MPD.Port <= 0 || c.MPD.Port > 65535) {
		return fmt.Errorf("mpd.port out of range: %d", c.MPD.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	return nil
}

// EnabledSources lists the enabled sources in the order they are tried.
func (s SearchConfig) EnabledSources() []string {
	var names []string
	if s.Embedded {
		names = append(names, "embedded")
	}
	if s.Folder {
		names = append(names, "folder")
	}
	if s.MPD {
		names = append(names, "mpd")
	}
	if s.Discogs {
		names = append(names, "discogs")
	}
	if s.MusicBrainz {
		names = append(names, "musicbrainz")
	}
	if s.Deezer {
		names = append(names, "deezer")
	}
	return names
}
