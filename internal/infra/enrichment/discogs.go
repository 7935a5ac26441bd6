package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultDiscogsBaseURL is the Discogs API base URL
	DefaultDiscogsBaseURL = "https://api.discogs.com"

	// DefaultDiscogsRateLimit keeps below the 60/min authenticated quota
	DefaultDiscogsRateLimit = 1
)

// DiscogsClient searches the Discogs database for releases.
type DiscogsClient struct {
	httpClient
	token string
}

// DiscogsOption is a functional option for configuring the Discogs client.
type DiscogsOption func(*DiscogsClient)

// WithDiscogsBaseURL sets a custom base URL (useful for testing).
func WithDiscogsBaseURL(url string) DiscogsOption {
	return func(c *DiscogsClient) {
		c.baseURL = url
	}
}

// WithDiscogsToken sets the personal access token.
func WithDiscogsToken(token string) DiscogsOption {
	return func(c *DiscogsClient) {
		c.token = token
	}
}

// WithDiscogsHTTPClient sets a custom HTTP client.
func WithDiscogsHTTPClient(client *http.Client) DiscogsOption {
	return func(c *DiscogsClient) {
		c.client = client
	}
}

// WithDiscogsRateLimit sets the request rate in requests per second.
func WithDiscogsRateLimit(rps float64) DiscogsOption {
	return func(c *DiscogsClient) {
		c.limiter = newLimiter(rps)
	}
}

// NewDiscogsClient creates a new Discogs client. Image URLs are only
// returned to authenticated clients, so a token is needed in practice.
func NewDiscogsClient(opts ...DiscogsOption) *DiscogsClient {
	c := &DiscogsClient{
		httpClient: newHTTPClient("discogs", DefaultDiscogsBaseURL, DefaultDiscogsRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DiscogsSearchResponse is the response of GET /database/search.
type DiscogsSearchResponse struct {
	Results []DiscogsResult `json:"results"`
}

// DiscogsResult is one search hit.
type DiscogsResult struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Thumb      string `json:"thumb"`
	CoverImage string `json:"cover_image"`
}

// Name implements Catalog.
func (c *DiscogsClient) Name() string { return "discogs" }

// SearchAlbumThumb implements Catalog. The first result with an image wins.
func (c *DiscogsClient) SearchAlbumThumb(ctx context.Context, artist, album string) (*CatalogMatch, error) {
	params := url.Values{}
	params.Set("type", "release")
	params.Set("artist", artist)
	params.Set("release_title", album)
	params.Set("per_page", "5")
	reqURL := fmt.Sprintf("%s/database/search?%s", c.baseURL, params.Encode())

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Discogs token="+c.token)
	}

	log.Debug().
		Str("artist", artist).
		Str("album", album).
		Msg("Searching Discogs for release")

	var resp DiscogsSearchResponse
	if err := c.getJSON(ctx, reqURL, header, &resp); err != nil {
		return nil, err
	}

	for _, r := range resp.Results {
		thumb := r.Thumb
		if thumb == "" {
			thumb = r.CoverImage
		}
		if thumb == "" {
			continue
		}
		log.Debug().
			Int("id", r.ID).
			Str("title", r.Title).
			Msg("Found Discogs release")
		return &CatalogMatch{
			Catalog:   c.Name(),
			ReleaseID: fmt.Sprintf("%d", r.ID),
			Title:     r.Title,
			ThumbURL:  thumb,
		}, nil
	}
	return nil, nil
}
