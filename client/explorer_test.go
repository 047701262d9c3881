package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworks_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/networks", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Network{
			{Network: "BTC", Operations: []string{"get_balance", "block_head"}},
			{Network: "SOL", Operations: []string{"get_balance"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	networks, err := client.Networks(context.Background())
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "BTC", networks[0].Network)
	assert.Contains(t, networks[0].Operations, "block_head")
}

func TestGetBalance_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/SOL/balance/wallet123", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"address":"wallet123","balance":"2.5"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	balance, err := client.GetBalance(context.Background(), "SOL", "wallet123")
	require.NoError(t, err)
	assert.Equal(t, "wallet123", balance.Address)
	assert.Equal(t, "2.5", balance.Balance.String())
}

func TestGetBalance_UnknownNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "unknown network: ZZZ",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.GetBalance(context.Background(), "ZZZ", "wallet123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown network")
}

func TestGetBalances_JoinsAddresses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/BTC/balances", r.URL.Path)
		assert.Equal(t, "a1,a2", r.URL.Query().Get("addresses"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"address":"a1","balance":"0.1"},{"address":"a2","balance":"0.2"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	balances, err := client.GetBalances(context.Background(), "BTC", []string{"a1", "a2"})
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "0.2", balances[1].Balance.String())
}

func TestGetTxDetails_NotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/SOL/tx/sig1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hash":"sig1","success":false,"transfers":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	details, err := client.GetTxDetails(context.Background(), "SOL", "sig1", false)
	require.NoError(t, err)
	assert.Equal(t, "sig1", details.Hash)
	assert.Empty(t, details.Transfers)
}

func TestGetTxDetails_TokenFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hash":"sig1","success":true,"transfers":[{"tx_hash":"sig1","from_address":"a","to_address":"b","value":"60.5","symbol":"USDC","success":true}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	details, err := client.GetTxDetails(context.Background(), "SOL", "sig1", true)
	require.NoError(t, err)
	require.Len(t, details.Transfers, 1)
	assert.Equal(t, "USDC", details.Transfers[0].Symbol)
	assert.Equal(t, "60.5", details.Transfers[0].Value.String())
}

func TestGetTokenTxs_SendsContract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ETH/token-txs/0xabc", r.URL.Path)
		assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", r.URL.Query().Get("contract"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txs, err := client.GetTokenTxs(context.Background(), "ETH", "0xabc", "0xdac17f958d2ee523a2206206994597c13d831ec7")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestScanBlocks_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/BTC/blocks", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"from_block":100,"to_block":102,"head":110,"transfers":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	result, err := client.ScanBlocks(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.FromBlock)
	assert.Equal(t, int64(102), result.ToBlock)
	assert.Equal(t, int64(110), result.Head)
}

func TestHealth(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()

	client := NewClient(okServer.URL, nil, nil)
	assert.NoError(t, client.Health(context.Background()))

	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer downServer.Close()

	client = NewClient(downServer.URL, nil, nil)
	require.Error(t, client.Health(context.Background()))
}
