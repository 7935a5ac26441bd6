package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// httpClient is the plumbing shared by every catalog client.
type httpClient struct {
	name      string
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func newHTTPClient(name, baseURL string, rps float64) httpClient {
	return httpClient{
		name:      name,
		baseURL:   baseURL,
		userAgent: DefaultUserAgent,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: newLimiter(rps),
	}
}

// getJSON waits for the rate limiter, performs a GET and decodes the JSON
// body into out. Status codes map to the package's sentinel errors.
func (c *httpClient) getJSON(ctx context.Context, reqURL string, header http.Header, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: http request: %v", ErrTemporaryFailure, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success
	case http.StatusNotFound:
		return ErrArtworkNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		log.Warn().Str("catalog", c.name).Int("status", resp.StatusCode).Msg("Catalog rejected credentials")
		return fmt.Errorf("%w: status %d", ErrNotConfigured, resp.StatusCode)
	case http.StatusTooManyRequests:
		log.Warn().Str("catalog", c.name).Msg("Catalog rate limit exceeded")
		return ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		log.Warn().Str("catalog", c.name).Int("status", resp.StatusCode).Msg("Catalog temporary error")
		return ErrTemporaryFailure
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
