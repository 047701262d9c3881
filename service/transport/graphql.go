package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/omniscan/service/explorer"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// GraphQLClient issues query+variables payloads against one GraphQL
// endpoint. A response carrying GraphQL-level errors is a transport
// failure: the backend answered but refused the query.
type GraphQLClient struct {
	provider string
	url      string
	httpc    *http.Client
	logger   *slog.Logger
}

// NewGraphQLClient creates a client for one GraphQL endpoint.
func NewGraphQLClient(provider, url string, httpc *http.Client, logger *slog.Logger) *GraphQLClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return &GraphQLClient{provider: provider, url: url, httpc: httpc, logger: logger}
}

// Query runs the query with variables and unmarshals the data field into
// out.
func (c *GraphQLClient) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshaling graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return explorer.NewTransportError(c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")

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

	c.logger.DebugContext(ctx, "graphql call",
		"provider", c.provider,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return explorer.NewTransportError(c.provider, fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return explorer.NewTransportError(c.provider, fmt.Errorf("malformed graphql response: %w", err))
	}
	if len(gqlResp.Errors) > 0 {
		return explorer.NewTransportError(c.provider, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message))
	}
	if out != nil {
		if gqlResp.Data == nil {
			return explorer.NewTransportError(c.provider, fmt.Errorf("graphql response missing data"))
		}
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return explorer.NewTransportError(c.provider, fmt.Errorf("unmarshaling graphql data: %w", err))
		}
	}
	return nil
}
