package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brojonat/omniscan/service/explorer"
)

// Network describes one configured network and the operations its backend
// routing table supports.
type Network struct {
	Network    string   `json:"network"`
	Operations []string `json:"operations"`
}

// TxDetails is the transaction-details response. An unknown hash comes back
// with an empty transfer list; a transaction that failed on chain comes
// back with Success=false.
type TxDetails struct {
	Hash      string                 `json:"hash"`
	Success   bool                   `json:"success"`
	Transfers []*explorer.TransferTx `json:"transfers"`
}

// Client is the HTTP client for the omniscan aggregation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new aggregation service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Networks retrieves all configured networks and their operations.
func (c *Client) Networks(ctx context.Context) ([]Network, error) {
	var networks []Network
	if err := c.get(ctx, "/api/v1/networks", nil, &networks); err != nil {
		return nil, err
	}
	return networks, nil
}

// GetBalance retrieves the native balance of one address.
func (c *Client) GetBalance(ctx context.Context, network, address string) (*explorer.Balance, error) {
	path := fmt.Sprintf("/api/v1/%s/balance/%s", url.PathEscape(network), url.PathEscape(address))
	var balance explorer.Balance
	if err := c.get(ctx, path, nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetBalances retrieves the native balances of several addresses in one
// round trip.
func (c *Client) GetBalances(ctx context.Context, network string, addresses []string) ([]*explorer.Balance, error) {
	path := fmt.Sprintf("/api/v1/%s/balances", url.PathEscape(network))
	query := url.Values{"addresses": []string{strings.Join(addresses, ",")}}
	var balances []*explorer.Balance
	if err := c.get(ctx, path, query, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// GetAddressTxs retrieves the recent normalized transfers touching an
// address.
func (c *Client) GetAddressTxs(ctx context.Context, network, address string) ([]*explorer.TransferTx, error) {
	path := fmt.Sprintf("/api/v1/%s/txs/%s", url.PathEscape(network), url.PathEscape(address))
	var txs []*explorer.TransferTx
	if err := c.get(ctx, path, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetTxDetails retrieves the normalized transfers of one transaction. Set
// token to resolve the hash through the network's token pipeline instead
// of the native one.
func (c *Client) GetTxDetails(ctx context.Context, network, hash string, token bool) (*TxDetails, error) {
	path := fmt.Sprintf("/api/v1/%s/tx/%s", url.PathEscape(network), url.PathEscape(hash))
	var query url.Values
	if token {
		query = url.Values{"token": []string{"true"}}
	}
	var details TxDetails
	if err := c.get(ctx, path, query, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetTokenTxs retrieves the token transfers for an address and a configured
// contract.
func (c *Client) GetTokenTxs(ctx context.Context, network, address, contract string) ([]*explorer.TransferTx, error) {
	path := fmt.Sprintf("/api/v1/%s/token-txs/%s", url.PathEscape(network), url.PathEscape(address))
	query := url.Values{"contract": []string{contract}}
	var txs []*explorer.TransferTx
	if err := c.get(ctx, path, query, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// ScanBlocks advances the network's block scan and returns the transfers
// the scanned range produced.
func (c *Client) ScanBlocks(ctx context.Context, network string) (*explorer.ScanResult, error) {
	path := fmt.Sprintf("/api/v1/%s/blocks", url.PathEscape(network))
	var result explorer.ScanResult
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("request completed", "path", path, "status", resp.StatusCode)
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
