package transport

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/brojonat/omniscan/service/metrics"
)

// Throttle returns a copy of httpc whose requests are paced at rps
// requests per second. Responses that come back 429 are counted against
// the provider. An rps of zero or below means the backend declared no
// limit and httpc is returned unchanged.
func Throttle(httpc *http.Client, rps float64, provider string, m *metrics.Metrics) *http.Client {
	if rps <= 0 {
		return httpc
	}
	base := httpc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	throttled := *httpc
	throttled.Transport = &throttledTransport{
		base:     base,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		provider: provider,
		metrics:  m,
	}
	return &throttled
}

type throttledTransport struct {
	base     http.RoundTripper
	limiter  *rate.Limiter
	provider string
	metrics  *metrics.Metrics
}

func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		t.metrics.RecordRateLimitHit(t.provider)
	}
	return resp, err
}
