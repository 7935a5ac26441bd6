package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultFanartBaseURL is the Fanart.tv API base URL
	DefaultFanartBaseURL = "https://webservice.fanart.tv/v3/music"
)

// FanartClient fetches album cover URLs from the Fanart.tv API.
type FanartClient struct {
	httpClient
	apiKey string
}

// FanartOption is a functional option for configuring the Fanart.tv client.
type FanartOption func(*FanartClient)

// WithFanartBaseURL sets a custom base URL (useful for testing).
func WithFanartBaseURL(url string) FanartOption {
	return func(c *FanartClient) {
		c.baseURL = url
	}
}

// WithFanartHTTPClient sets a custom HTTP client.
func WithFanartHTTPClient(client *http.Client) FanartOption {
	return func(c *FanartClient) {
		c.client = client
	}
}

// NewFanartClient creates a new Fanart.tv client.
// Requires API key (free registration at fanart.tv).
func NewFanartClient(apiKey string, opts ...FanartOption) *FanartClient {
	c := &FanartClient{
		httpClient: newHTTPClient("fanarttv", DefaultFanartBaseURL, 1),
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FanartImage represents an image from Fanart.tv.
type FanartImage struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Likes string `json:"likes"`
}

func (i FanartImage) likes() int {
	n, _ := strconv.Atoi(i.Likes)
	return n
}

// FanartAlbumResponse is the response of GET /albums/{release-group-mbid}.
type FanartAlbumResponse struct {
	Name   string `json:"name"`
	Albums map[string]struct {
		AlbumCover []FanartImage `json:"albumcover"`
	} `json:"albums"`
}

// IsConfigured returns true if the client has an API key configured.
func (c *FanartClient) IsConfigured() bool {
	return c.apiKey != ""
}

// AlbumCoverPreview returns the preview-size URL of the most liked cover of
// a release group.
func (c *FanartClient) AlbumCoverPreview(ctx context.Context, releaseGroupID string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	reqURL := fmt.Sprintf("%s/albums/%s?api_key=%s", c.baseURL, releaseGroupID, url.QueryEscape(c.apiKey))

	log.Debug().
		Str("releaseGroup", releaseGroupID).
		Msg("Fetching album cover from Fanart.tv")

	var resp FanartAlbumResponse
	if err := c.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return "", err
	}

	var images []FanartImage
	for _, a := range resp.Albums {
		images = append(images, a.AlbumCover...)
	}
	if len(images) == 0 {
		return "", ErrArtworkNotFound
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].likes() > images[j].likes()
	})
	return previewURL(images[0].URL), nil
}

// previewURL maps a full size fanart.tv asset to its 200px preview.
func previewURL(u string) string {
	return strings.Replace(u, "/fanart/", "/preview/", 1)
}
