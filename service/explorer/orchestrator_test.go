package explorer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider fails a fixed number of times before answering.
type scriptedProvider struct {
	Unsupported

	name     string
	err      error
	balance  *Balance
	head     int64
	blocks   []*TransferTx
	calls    int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) GetBalance(context.Context, string) (*Balance, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.balance, nil
}

func (p *scriptedProvider) GetBlockHead(context.Context) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.head, nil
}

func (p *scriptedProvider) GetBlocksTxs(context.Context, int64, int64) ([]*TransferTx, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.blocks, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExplorer(t *testing.T, providers ...*scriptedProvider) *Explorer {
	t.Helper()

	registry := NewRegistry()
	keys := make([]string, len(providers))
	for i, p := range providers {
		keys[i] = p.name
		registry.RegisterProvider(p.name, p)
	}
	routing := make(map[Operation][]string)
	for _, op := range Operations() {
		routing[op] = keys
	}
	registry.RegisterNetwork("SOL", routing)

	params := NetworkParams{Code: "SOL", Symbol: "SOL", Precision: 9, CacheKey: "sol"}
	return NewExplorer(params, registry, NewMemoryWatermarkStore(), nil, testLogger())
}

func TestFallbackStopsAtFirstSuccess(t *testing.T) {
	// Setup: two failing candidates ahead of a healthy one.
	want := &Balance{Address: "addr1", Balance: decimal.RequireFromString("5")}
	first := &scriptedProvider{name: "first", err: NewTransportError("first", errors.New("connection refused"))}
	second := &scriptedProvider{name: "second", err: NewValidationError("second", "truncated body")}
	third := &scriptedProvider{name: "third", balance: want}
	ex := newTestExplorer(t, first, second, third)

	// Act
	balance, err := ex.GetBalance(context.Background(), "addr1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, want, balance)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}

func TestFallbackExhaustionYieldsSingleError(t *testing.T) {
	// Setup
	first := &scriptedProvider{name: "first", err: NewTransportError("first", errors.New("timeout"))}
	second := &scriptedProvider{name: "second", err: NewTransportError("second", errors.New("timeout"))}
	ex := newTestExplorer(t, first, second)

	// Act
	_, err := ex.GetBalance(context.Background(), "addr1")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProviderAvailable))
	// The recoverable causes are folded into one terminal error.
	assert.False(t, IsRecoverable(err))
}

func TestFallbackSurfacesNonRecoverableImmediately(t *testing.T) {
	// Setup: the first candidate fails with a programming-level error.
	fatal := errors.New("invalid amount")
	first := &scriptedProvider{name: "first", err: fatal}
	second := &scriptedProvider{name: "second", balance: &Balance{Address: "addr1"}}
	ex := newTestExplorer(t, first, second)

	// Act
	_, err := ex.GetBalance(context.Background(), "addr1")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, fatal))
	assert.Equal(t, 0, second.calls)
}

func TestGetBalanceUnknownNetwork(t *testing.T) {
	// Setup: explorer pointed at a code the registry never saw.
	registry := NewRegistry()
	params := NetworkParams{Code: "ZZZ", CacheKey: "zzz"}
	ex := NewExplorer(params, registry, NewMemoryWatermarkStore(), nil, testLogger())

	// Act
	_, err := ex.GetBalance(context.Background(), "addr1")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownNetwork))
}

func TestScanBlocksWalksFromDefaultLookback(t *testing.T) {
	// Setup: no stored watermark, head at 100.
	transfer := &TransferTx{
		TxHash:      "sig1",
		Success:     true,
		Value:       decimal.RequireFromString("2"),
		Symbol:      "SOL",
		BlockHeight: Int64Ptr(98),
	}
	provider := &scriptedProvider{name: "stub", head: 100, blocks: []*TransferTx{transfer}}
	ex := newTestExplorer(t, provider)

	// Act
	result, err := ex.ScanBlocks(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(96), result.FromBlock)
	assert.Equal(t, int64(100), result.ToBlock)
	require.Len(t, result.Transfers, 1)
	require.NotNil(t, result.Transfers[0].Confirmations)
	assert.Equal(t, int64(2), *result.Transfers[0].Confirmations)
}

func TestScanBlocksAdvancesWatermark(t *testing.T) {
	// Setup
	provider := &scriptedProvider{name: "stub", head: 100}
	ex := newTestExplorer(t, provider)

	// Act: two consecutive scans against a static head.
	first, err := ex.ScanBlocks(context.Background())
	require.NoError(t, err)
	second, err := ex.ScanBlocks(context.Background())
	require.NoError(t, err)

	// Assert: the second scan starts past the first one's top and finds an
	// empty range.
	assert.Equal(t, int64(100), first.ToBlock)
	assert.Equal(t, int64(101), second.FromBlock)
	assert.Empty(t, second.Transfers)
}

func TestScanBlocksRespectsHeadOffset(t *testing.T) {
	// Setup: head 200 with a 120 block offset.
	provider := &scriptedProvider{name: "stub", head: 200}
	registry := NewRegistry()
	registry.RegisterProvider("stub", provider)
	routing := make(map[Operation][]string)
	for _, op := range Operations() {
		routing[op] = []string{"stub"}
	}
	registry.RegisterNetwork("SOL", routing)
	params := NetworkParams{Code: "SOL", CacheKey: "sol", BlockHeadOffset: 120}
	ex := NewExplorer(params, registry, NewMemoryWatermarkStore(), nil, testLogger())

	// Act
	result, err := ex.ScanBlocks(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(80), result.Head)
	assert.Equal(t, int64(80), result.ToBlock)
}

func TestMemoryWatermarkCompareAndSet(t *testing.T) {
	// Setup
	store := NewMemoryWatermarkStore()
	ctx := context.Background()
	ttl := time.Minute

	// Act & Assert: first write needs old == 0.
	ok, err := store.CompareAndSet(ctx, "k", 0, 10, ttl)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale writer loses.
	ok, err = store.CompareAndSet(ctx, "k", 5, 20, ttl)
	require.NoError(t, err)
	assert.False(t, ok)

	// The current holder advances.
	ok, err = store.CompareAndSet(ctx, "k", 10, 20, ttl)
	require.NoError(t, err)
	assert.True(t, ok)

	height, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(20), height)
}
