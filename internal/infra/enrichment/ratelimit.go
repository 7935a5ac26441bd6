package enrichment

import (
	"golang.org/x/time/rate"
)

// newLimiter returns a limiter allowing rps requests per second with no
// burst. MusicBrainz asks for at most one request per second.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
