package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brojonat/omniscan/service/explorer"
)

// ErrNotFound marks a 404 response. REST backends use it for missing
// resources (an unknown transaction hash, an unfunded account); callers
// that must distinguish "missing" from "provider broken" test for it with
// errors.Is through the TransportError wrapper.
var ErrNotFound = errors.New("resource not found")

// RESTClient issues GET requests against one explorer-style REST backend.
// Like JSONRPCClient, transport problems come back as
// *explorer.TransportError tagged with the provider's name.
type RESTClient struct {
	provider string
	baseURL  string
	headers  map[string]string
	httpc    *http.Client
	logger   *slog.Logger
}

// NewRESTClient creates a client rooted at baseURL.
func NewRESTClient(provider, baseURL string, httpc *http.Client, logger *slog.Logger) *RESTClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return &RESTClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		headers:  map[string]string{"Content-Type": "application/json"},
		httpc:    httpc,
		logger:   logger,
	}
}

// Get fetches path (plus optional query parameters) and unmarshals the
// response body into out.
func (c *RESTClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return explorer.NewTransportError(c.provider, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return explorer.NewTransportError(c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return explorer.NewTransportError(c.provider, err)
	}

	c.logger.DebugContext(ctx, "rest call",
		"provider", c.provider,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusNotFound {
		return explorer.NewTransportError(c.provider, fmt.Errorf("%w: %s", ErrNotFound, path))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return explorer.NewTransportError(c.provider, fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return explorer.NewTransportError(c.provider, fmt.Errorf("malformed response body: %w", err))
		}
	}
	return nil
}
