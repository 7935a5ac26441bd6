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
	// DefaultDeezerBaseURL is the Deezer API base URL
	DefaultDeezerBaseURL = "https://api.deezer.com"

	// DefaultDeezerRateLimit - Deezer allows higher rate but we stay conservative
	DefaultDeezerRateLimit = 5
)

// DeezerClient searches Deezer for album covers.
// NOTE: Per Deezer ToS, images CANNOT be cached locally - must be hotlinked.
type DeezerClient struct {
	httpClient
}

// DeezerOption is a functional option for configuring the Deezer client.
type DeezerOption func(*DeezerClient)

// WithDeezerBaseURL sets a custom base URL (useful for testing).
func WithDeezerBaseURL(url string) DeezerOption {
	return func(c *DeezerClient) {
		c.baseURL = url
	}
}

// WithDeezerHTTPClient sets a custom HTTP client.
func WithDeezerHTTPClient(client *http.Client) DeezerOption {
	return func(c *DeezerClient) {
		c.client = client
	}
}

// NewDeezerClient creates a new Deezer API client.
// No API key required for public endpoints.
func NewDeezerClient(opts ...DeezerOption) *DeezerClient {
	c := &DeezerClient{
		httpClient: newHTTPClient("deezer", DefaultDeezerBaseURL, DefaultDeezerRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeezerAlbumSearchResponse represents a Deezer album search response.
type DeezerAlbumSearchResponse struct {
	Data  []DeezerAlbum `json:"data"`
	Total int           `json:"total"`
}

// DeezerAlbum represents an album from Deezer API.
type DeezerAlbum struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Cover       string `json:"cover"`
	CoverSmall  string `json:"cover_small"`  // 56x56
	CoverMedium string `json:"cover_medium"` // 250x250
	CoverBig    string `json:"cover_big"`    // 500x500
	CoverXL     string `json:"cover_xl"`     // 1000x1000
	Artist      struct {
		Name string `json:"name"`
	} `json:"artist"`
}

func (a DeezerAlbum) thumb() string {
	for _, u := range []string{a.CoverMedium, a.CoverBig, a.Cover} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Name implements Catalog.
func (c *DeezerClient) Name() string { return "deezer" }

// SearchAlbumThumb implements Catalog. An album whose artist matches is
// preferred over the first result.
func (c *DeezerClient) SearchAlbumThumb(ctx context.Context, artist, album string) (*CatalogMatch, error) {
	q := fmt.Sprintf(`artist:"%s" album:"%s"`, artist, album)
	reqURL := fmt.Sprintf("%s/search/album?q=%s&limit=5", c.baseURL, url.QueryEscape(q))

	log.Debug().
		Str("artist", artist).
		Str("album", album).
		Msg("Searching Deezer for album")

	var resp DeezerAlbumSearchResponse
	if err := c.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}

	pick := -1
	for i, a := range resp.Data {
		if a.thumb() == "" {
			continue
		}
		if strings.EqualFold(a.Artist.Name, artist) {
			pick = i
			break
		}
		if pick < 0 {
			pick = i
		}
	}
	if pick < 0 {
		return nil, nil
	}

	a := resp.Data[pick]
	return &CatalogMatch{
		Catalog:   c.Name(),
		ReleaseID: fmt.Sprintf("%d", a.ID),
		Title:     a.Title,
		ThumbURL:  a.thumb(),
	}, nil
}
