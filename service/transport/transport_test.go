package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/omniscan/service/explorer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJSONRPCCall(t *testing.T) {
	// Setup
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getBalance", req["method"])
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":42}}`))
	}))
	defer srv.Close()
	client := NewJSONRPCClient("test-rpc", srv.URL, srv.Client(), testLogger())

	// Act
	var out struct {
		Value int64 `json:"value"`
	}
	err := client.Call(context.Background(), "getBalance", []any{"addr"}, &out)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.Value)
}

func TestJSONRPCCallRPCError(t *testing.T) {
	// Setup: the node answers with an rpc-level error object.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`))
	}))
	defer srv.Close()
	client := NewJSONRPCClient("test-rpc", srv.URL, srv.Client(), testLogger())

	// Act
	err := client.Call(context.Background(), "getBalance", nil, &struct{}{})

	// Assert
	require.Error(t, err)
	var te *explorer.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "test-rpc", te.Provider)
	assert.Contains(t, err.Error(), "invalid params")
}

func TestJSONRPCCallBadStatus(t *testing.T) {
	// Setup
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	client := NewJSONRPCClient("test-rpc", srv.URL, srv.Client(), testLogger())

	// Act
	err := client.Call(context.Background(), "getBalance", nil, &struct{}{})

	// Assert
	require.Error(t, err)
	assert.True(t, explorer.IsRecoverable(err))
	assert.Contains(t, err.Error(), "429")
}

func TestJSONRPCRawCallNullResult(t *testing.T) {
	// Setup: unknown signatures come back as a literal null result.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	}))
	defer srv.Close()
	client := NewJSONRPCClient("test-rpc", srv.URL, srv.Client(), testLogger())

	// Act
	raw, err := client.RawCall(context.Background(), "getTransaction", []any{"sig"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestRESTGet(t *testing.T) {
	// Setup
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/tx/abc", r.URL.Path)
		assert.Equal(t, "txs", r.URL.Query().Get("details"))
		w.Write([]byte(`{"txid":"abc"}`))
	}))
	defer srv.Close()
	client := NewRESTClient("test-rest", srv.URL, srv.Client(), testLogger())

	// Act
	var out struct {
		Txid string `json:"txid"`
	}
	err := client.Get(context.Background(), "api/v2/tx/abc", url.Values{"details": []string{"txs"}}, &out)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Txid)
}

func TestRESTGetNotFound(t *testing.T) {
	// Setup
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()
	client := NewRESTClient("test-rest", srv.URL, srv.Client(), testLogger())

	// Act
	err := client.Get(context.Background(), "accounts/missing", nil, &struct{}{})

	// Assert: a 404 is recoverable AND identifiable as a missing resource.
	require.Error(t, err)
	assert.True(t, explorer.IsRecoverable(err))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGraphQLQuery(t *testing.T) {
	// Setup
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req["query"], "account")
		w.Write([]byte(`{"data":{"account":{"balance":"0x10"}}}`))
	}))
	defer srv.Close()
	client := NewGraphQLClient("test-gql", srv.URL, srv.Client(), testLogger())

	// Act
	var out struct {
		Account struct {
			Balance string `json:"balance"`
		} `json:"account"`
	}
	err := client.Query(context.Background(), "query { account { balance } }", nil, &out)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "0x10", out.Account.Balance)
}

func TestGraphQLQueryErrors(t *testing.T) {
	// Setup: the endpoint refuses the query.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"unknown field"}]}`))
	}))
	defer srv.Close()
	client := NewGraphQLClient("test-gql", srv.URL, srv.Client(), testLogger())

	// Act
	err := client.Query(context.Background(), "query { nope }", nil, &struct{}{})

	// Assert
	require.Error(t, err)
	assert.True(t, explorer.IsRecoverable(err))
	assert.Contains(t, err.Error(), "unknown field")
}

func TestThrottlePassthroughWithoutLimit(t *testing.T) {
	// Setup & Act
	httpc := &http.Client{}
	got := Throttle(httpc, 0, "test-rpc", nil)

	// Assert: no limit declared means the client is untouched.
	assert.Same(t, httpc, got)
}

func TestThrottledClientStillServesRequests(t *testing.T) {
	// Setup
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()
	httpc := Throttle(srv.Client(), 100, "test-rest", nil)
	client := NewRESTClient("test-rest", srv.URL, httpc, testLogger())

	// Act
	var out struct {
		OK bool `json:"ok"`
	}
	err := client.Get(context.Background(), "status", nil, &out)

	// Assert
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 1, calls)
}

func TestParseHexHelpers(t *testing.T) {
	// Setup & Act & Assert
	v, err := ParseHexUint("0x1b4")
	require.NoError(t, err)
	assert.Equal(t, uint64(436), v)

	big, err := ParseHexBig("0xde0b6b3a7640000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", big.String())

	assert.Equal(t, "0x1b4", FormatHexUint(436))

	_, err = ParseHexUint("zzz")
	assert.Error(t, err)
}
