package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/resilience"
)

// Passthrough reissues unscoped requests against the static upstream.
// Fetches run through a circuit breaker so a dead upstream fails fast
// instead of queueing interception turns behind it.
type Passthrough struct {
	upstream string
	client   *retryablehttp.Client
	breaker  *resilience.Breaker
}

// NewPassthrough creates a passthrough fetcher for the given upstream
// base URL.
func NewPassthrough(upstream string) *Passthrough {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil

	return &Passthrough{
		upstream: strings.TrimSuffix(upstream, "/"),
		client:   client,
		breaker: resilience.New("upstream", resilience.Settings{
			TripAfter: 5,
			Cooldown:  15 * time.Second,
			Probes:    3,
		}),
	}
}

// Fetch reissues an equivalent request for the unscoped target and
// returns the upstream response. The caller owns the response body.
func (p *Passthrough) Fetch(r *http.Request, unscopedTarget string) (*http.Response, error) {
	var body io.Reader
	if r.Body != nil {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("passthrough: read body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(r.Context(), r.Method, p.upstream+unscopedTarget, body)
	if err != nil {
		return nil, fmt.Errorf("passthrough: build request: %w", err)
	}
	for name, values := range r.Header {
		// Referer still carries the scoped URL; everything else is relayed.
		if http.CanonicalHeaderKey(name) == "Referer" {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}
