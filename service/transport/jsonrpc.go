package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brojonat/omniscan/service/explorer"
)

// defaultTimeout bounds every transport call; providers that need longer
// pass their own http.Client.
const defaultTimeout = 30 * time.Second

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JSONRPCClient issues JSON-RPC 2.0 calls against one endpoint. Transport
// problems (unreachable host, non-2xx status, malformed top-level JSON,
// rpc-level error objects) come back as *explorer.TransportError tagged
// with the owning provider's name, so the fallback loop can recover them.
type JSONRPCClient struct {
	provider string
	url      string
	headers  map[string]string
	httpc    *http.Client
	logger   *slog.Logger
	nextID   atomic.Uint64
}

// NewJSONRPCClient creates a client for one RPC endpoint. The provider
// name tags transport errors and log lines.
func NewJSONRPCClient(provider, url string, httpc *http.Client, logger *slog.Logger) *JSONRPCClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return &JSONRPCClient{
		provider: provider,
		url:      url,
		headers:  map[string]string{"Content-Type": "application/json"},
		httpc:    httpc,
		logger:   logger,
	}
}

// Call invokes method with params and unmarshals the result field into
// out. A JSON-RPC error object counts as a transport failure: the backend
// answered, but not with a result the validators can inspect.
func (c *JSONRPCClient) Call(ctx context.Context, method string, params any, out any) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
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

	c.logger.DebugContext(ctx, "rpc call",
		"provider", c.provider,
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return explorer.NewTransportError(c.provider, fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return explorer.NewTransportError(c.provider, fmt.Errorf("malformed rpc response: %w", err))
	}
	if rpcResp.Error != nil {
		return explorer.NewTransportError(c.provider, rpcResp.Error)
	}
	if out != nil {
		if rpcResp.Result == nil {
			return explorer.NewTransportError(c.provider, fmt.Errorf("rpc response missing result"))
		}
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return explorer.NewTransportError(c.provider, fmt.Errorf("unmarshaling rpc result: %w", err))
		}
	}
	return nil
}

// RawCall is Call without result decoding, for callers that need to
// inspect the raw result (e.g. to distinguish null from missing).
func (c *JSONRPCClient) RawCall(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, method, params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
