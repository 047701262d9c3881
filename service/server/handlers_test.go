package server

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/omniscan/service/config"
	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/nats"
)

// stubProvider is a canned-response provider for handler tests.
type stubProvider struct {
	explorer.Unsupported

	name       string
	balance    *explorer.Balance
	balanceErr error
	details    *explorer.TxDetails
	detailsErr error
	txs        []*explorer.TransferTx
	txsErr     error
	head       int64
	headErr    error
	blocksTxs  []*explorer.TransferTx
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) GetBalance(context.Context, string) (*explorer.Balance, error) {
	return s.balance, s.balanceErr
}

func (s *stubProvider) GetTxDetails(context.Context, string) (*explorer.TxDetails, error) {
	return s.details, s.detailsErr
}

func (s *stubProvider) GetAddressTxs(context.Context, string) ([]*explorer.TransferTx, error) {
	return s.txs, s.txsErr
}

func (s *stubProvider) GetBlockHead(context.Context) (int64, error) {
	return s.head, s.headErr
}

func (s *stubProvider) GetBlocksTxs(context.Context, int64, int64) ([]*explorer.TransferTx, error) {
	return s.blocksTxs, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestBackends wires one network ("SOL") routed entirely to the given
// providers, primary first.
func newTestBackends(t *testing.T, providers ...explorer.ProviderClient) *Backends {
	t.Helper()

	registry := explorer.NewRegistry()
	keys := make([]string, len(providers))
	for i, p := range providers {
		keys[i] = p.Name()
		registry.RegisterProvider(p.Name(), p)
	}
	routing := make(map[explorer.Operation][]string)
	for _, op := range explorer.Operations() {
		routing[op] = keys
	}
	registry.RegisterNetwork("SOL", routing)

	params := explorer.NetworkParams{
		Code:      "SOL",
		Symbol:    "SOL",
		Precision: 9,
		CacheKey:  "sol",
	}
	ex := explorer.NewExplorer(params, registry, explorer.NewMemoryWatermarkStore(), nil, testLogger())

	return &Backends{
		Registry:  registry,
		Explorers: map[string]*explorer.Explorer{"SOL": ex},
		table:     &config.NetworkTable{},
		logger:    testLogger(),
	}
}

func TestHandleListNetworks(t *testing.T) {
	// Setup
	backends := newTestBackends(t, &stubProvider{name: "stub"})
	req := httptest.NewRequest("GET", "/api/v1/networks", nil)
	rec := httptest.NewRecorder()

	// Act
	handleListNetworks(backends, testLogger()).ServeHTTP(rec, req)

	// Assert
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"network":"SOL"`)
	assert.Contains(t, rec.Body.String(), `"get_balance"`)
}

func TestHandleGetBalance(t *testing.T) {
	// Setup
	stub := &stubProvider{
		name:    "stub",
		balance: &explorer.Balance{Address: "addr1", Balance: decimal.RequireFromString("2.5")},
	}
	backends := newTestBackends(t, stub)
	req := httptest.NewRequest("GET", "/api/v1/SOL/balance/addr1", nil)
	req.SetPathValue("network", "SOL")
	req.SetPathValue("address", "addr1")
	rec := httptest.NewRecorder()

	// Act
	handleGetBalance(backends, testLogger()).ServeHTTP(rec, req)

	// Assert
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"2.5"`)
}

func TestHandleGetBalanceUnknownNetwork(t *testing.T) {
	// Setup
	backends := newTestBackends(t, &stubProvider{name: "stub"})
	req := httptest.NewRequest("GET", "/api/v1/ZZZ/balance/addr1", nil)
	req.SetPathValue("network", "ZZZ")
	req.SetPathValue("address", "addr1")
	rec := httptest.NewRecorder()

	// Act
	handleGetBalance(backends, testLogger()).ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown network")
}

func TestHandleGetBalanceAllProvidersFail(t *testing.T) {
	// Setup: every candidate fails with a recoverable error.
	first := &stubProvider{name: "first", balanceErr: explorer.NewTransportError("first", assert.AnError)}
	second := &stubProvider{name: "second", balanceErr: explorer.NewValidationError("second", "bad payload")}
	backends := newTestBackends(t, first, second)
	req := httptest.NewRequest("GET", "/api/v1/SOL/balance/addr1", nil)
	req.SetPathValue("network", "SOL")
	req.SetPathValue("address", "addr1")
	rec := httptest.NewRecorder()

	// Act
	handleGetBalance(backends, testLogger()).ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, rec.Body.String(), "no provider available")
}

func TestHandleGetTxDetailsNotFound(t *testing.T) {
	// Setup: the provider does not know the hash.
	stub := &stubProvider{name: "stub", details: nil}
	backends := newTestBackends(t, stub)
	req := httptest.NewRequest("GET", "/api/v1/SOL/tx/deadbeef", nil)
	req.SetPathValue("network", "SOL")
	req.SetPathValue("hash", "deadbeef")
	rec := httptest.NewRecorder()

	// Act
	handleGetTxDetails(backends, testLogger()).ServeHTTP(rec, req)

	// Assert
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transfers":[]`)
}

func TestHandleGetTxDetailsFailedOnChain(t *testing.T) {
	// Setup
	stub := &stubProvider{
		name:    "stub",
		details: &explorer.TxDetails{Hash: "deadbeef", Success: false},
	}
	backends := newTestBackends(t, stub)
	req := httptest.NewRequest("GET", "/api/v1/SOL/tx/deadbeef", nil)
	req.SetPathValue("network", "SOL")
	req.SetPathValue("hash", "deadbeef")
	rec := httptest.NewRecorder()

	// Act
	handleGetTxDetails(backends, testLogger()).ServeHTTP(rec, req)

	// Assert
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestHandleGetBalanceBadOverride(t *testing.T) {
	// Setup: override URL is not http(s).
	backends := newTestBackends(t, &stubProvider{name: "stub"})
	req := httptest.NewRequest("GET", "/api/v1/SOL/balance/addr1?provider=custom&provider_url=ftp%3A%2F%2Fx", nil)
	req.SetPathValue("network", "SOL")
	req.SetPathValue("address", "addr1")
	rec := httptest.NewRecorder()

	// Act
	handleGetBalance(backends, testLogger()).ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, 400, rec.Code)
}

func TestHandleScanBlocksPublishes(t *testing.T) {
	// Setup: one block behind the head, one transfer in it.
	transfer := &explorer.TransferTx{
		TxHash:      "sig1",
		Success:     true,
		FromAddress: "a",
		ToAddress:   "b",
		Value:       decimal.RequireFromString("1.5"),
		Symbol:      "SOL",
		BlockHeight: explorer.Int64Ptr(100),
	}
	stub := &stubProvider{name: "stub", head: 101, blocksTxs: []*explorer.TransferTx{transfer}}
	backends := newTestBackends(t, stub)
	publisher := nats.NewMockPublisher()
	req := httptest.NewRequest("GET", "/api/v1/SOL/blocks", nil)
	req.SetPathValue("network", "SOL")
	rec := httptest.NewRecorder()

	// Act
	handleScanBlocks(backends, publisher, testLogger()).ServeHTTP(rec, req)

	// Assert
	require.Equal(t, 200, rec.Code)
	events := publisher.GetPublishedEventsForNetwork("SOL")
	require.Len(t, events, 1)
	assert.Equal(t, "sig1", events[0].TxHash)
	assert.Equal(t, "1.5", events[0].Value)
}
