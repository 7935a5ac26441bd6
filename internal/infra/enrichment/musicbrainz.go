package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultMBBaseURL is the MusicBrainz API base URL
	DefaultMBBaseURL = "https://musicbrainz.org/ws/2"

	// DefaultMBRateLimit is 1 request per second (MusicBrainz guideline)
	DefaultMBRateLimit = 1
)

// MusicBrainzClient searches for release MBIDs using the MusicBrainz API.
type MusicBrainzClient struct {
	httpClient
}

// MBOption is a functional option for configuring the MusicBrainz client.
type MBOption func(*MusicBrainzClient)

// WithMBBaseURL sets a custom base URL (useful for testing).
func WithMBBaseURL(url string) MBOption {
	return func(c *MusicBrainzClient) {
		c.baseURL = url
	}
}

// WithMBUserAgent sets a custom User-Agent header.
func WithMBUserAgent(ua string) MBOption {
	return func(c *MusicBrainzClient) {
		c.userAgent = ua
	}
}

// WithMBHTTPClient sets a custom HTTP client.
func WithMBHTTPClient(client *http.Client) MBOption {
	return func(c *MusicBrainzClient) {
		c.client = client
	}
}

// WithMBRateLimit sets the request rate in requests per second; zero disables limiting.
func WithMBRateLimit(rps float64) MBOption {
	return func(c *MusicBrainzClient) {
		c.limiter = newLimiter(rps)
	}
}

// NewMusicBrainzClient creates a new MusicBrainz API client.
func NewMusicBrainzClient(opts ...MBOption) *MusicBrainzClient {
	c := &MusicBrainzClient{
		httpClient: newHTTPClient("musicbrainz", DefaultMBBaseURL, DefaultMBRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MBRelease represents a release from MusicBrainz API.
type MBRelease struct {
	ID           string         `json:"id"`     // MusicBrainz Release ID (MBID)
	Title        string         `json:"title"`  // Release title
	Score        int            `json:"score"`  // Search relevance score (0-100)
	Status       string         `json:"status"` // Release status (e.g., "Official")
	ReleaseGroup MBReleaseGroup `json:"release-group"`
}

// MBReleaseGroup is the release group a release belongs to.
type MBReleaseGroup struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MBSearchResponse represents the MusicBrainz search API response.
type MBSearchResponse struct {
	Releases []MBRelease `json:"releases"`
	Count    int         `json:"count"`
	Offset   int         `json:"offset"`
}

// SearchRelease searches for a release by artist and album name.
// Returns the best matching release, or nil if nothing is confident enough.
func (c *MusicBrainzClient) SearchRelease(ctx context.Context, artist, album string) (*MBRelease, error) {
	// Lucene syntax: artist:"Artist Name" AND release:"Album Name"
	query := fmt.Sprintf(`artist:"%s" AND release:"%s"`, escapeQuery(artist), escapeQuery(album))
	reqURL := fmt.Sprintf("%s/release?query=%s&fmt=json&limit=5",
		c.baseURL, url.QueryEscape(query))

	log.Debug().
		Str("artist", artist).
		Str("album", album).
		Str("url", reqURL).
		Msg("Searching MusicBrainz for release")

	var searchResp MBSearchResponse
	if err := c.getJSON(ctx, reqURL, nil, &searchResp); err != nil {
		return nil, err
	}

	if len(searchResp.Releases) == 0 {
		log.Debug().
			Str("artist", artist).
			Str("album", album).
			Msg("No MusicBrainz releases found")
		return nil, nil
	}

	// first result with score >= 80
	for i, release := range searchResp.Releases {
		if release.Score >= 80 {
			log.Debug().
				Str("mbid", release.ID).
				Int("score", release.Score).
				Msg("Found MusicBrainz release")
			return &searchResp.Releases[i], nil
		}
	}

	if searchResp.Releases[0].Score > 50 {
		release := searchResp.Releases[0]
		log.Debug().
			Str("mbid", release.ID).
			Int("score", release.Score).
			Msg("Found MusicBrainz release (lower confidence)")
		return &release, nil
	}

	log.Debug().
		Str("artist", artist).
		Str("album", album).
		Int("bestScore", searchResp.Releases[0].Score).
		Msg("MusicBrainz matches too low confidence")
	return nil, nil
}

var luceneEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`+`, `\+`,
	`-`, `\-`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`/`, `\/`,
)

// escapeQuery escapes Lucene special characters.
func escapeQuery(s string) string {
	return luceneEscaper.Replace(s)
}
