package enrichment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultCAABaseURL is the Cover Art Archive API base URL
	DefaultCAABaseURL = "https://coverartarchive.org"

	// DefaultCAARateLimit is requests per second against the archive
	DefaultCAARateLimit = 1
)

// CAAClient is a client for the Cover Art Archive API
type CAAClient struct {
	httpClient
}

// CAAOption is a functional option for configuring the CAA client
type CAAOption func(*CAAClient)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(url string) CAAOption {
	return func(c *CAAClient) {
		c.baseURL = url
	}
}

// WithUserAgent sets a custom User-Agent header
func WithUserAgent(ua string) CAAOption {
	return func(c *CAAClient) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the rate limit in requests per second
func WithRateLimit(rps float64) CAAOption {
	return func(c *CAAClient) {
		c.limiter = newLimiter(rps)
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) CAAOption {
	return func(c *CAAClient) {
		c.client = client
	}
}

// NewCAAClient creates a new Cover Art Archive client
func NewCAAClient(opts ...CAAOption) *CAAClient {
	c := &CAAClient{
		httpClient: newHTTPClient("coverartarchive", DefaultCAABaseURL, DefaultCAARateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CAAImage is one image listed for a release.
type CAAImage struct {
	ID         any               `json:"id"`
	Image      string            `json:"image"`
	Front      bool              `json:"front"`
	Approved   bool              `json:"approved"`
	Types      []string          `json:"types"`
	Thumbnails map[string]string `json:"thumbnails"`
}

// CAAListing is the response of GET /release/{mbid}.
type CAAListing struct {
	Release string     `json:"release"`
	Images  []CAAImage `json:"images"`
}

// thumbnailKeys in order of preference; "small" is the legacy name of "250".
var thumbnailKeys = []string{"250", "small", "500", "large"}

// FrontThumbnail returns the URL of the 250px thumbnail of the release's
// front cover.
func (c *CAAClient) FrontThumbnail(ctx context.Context, mbid string) (string, error) {
	reqURL := fmt.Sprintf("%s/release/%s", c.baseURL, mbid)

	log.Debug().
		Str("mbid", mbid).
		Str("url", reqURL).
		Msg("Listing release art in CAA")

	var listing CAAListing
	if err := c.getJSON(ctx, reqURL, nil, &listing); err != nil {
		if errors.Is(err, ErrArtworkNotFound) {
			log.Debug().Str("mbid", mbid).Msg("Album art not found in CAA")
		}
		return "", err
	}

	for _, img := range listing.Images {
		if !img.Front {
			continue
		}
		for _, k := range thumbnailKeys {
			if u := img.Thumbnails[k]; u != "" {
				return u, nil
			}
		}
		if img.Image != "" {
			return img.Image, nil
		}
	}

	return "", ErrArtworkNotFound
}
