package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brojonat/omniscan/service/metrics"
)

const (
	// watermarkTTL bounds how long a scan cursor survives without
	// progress before the scan restarts near the head.
	watermarkTTL = 24 * time.Hour

	// headCacheTTL is how long a fetched block head is reused for
	// confirmation math within and across logical calls.
	headCacheTTL = 30 * time.Second

	// defaultScanLookback is how far behind the head a scan starts when
	// no watermark exists yet.
	defaultScanLookback = 5
)

// NetworkParams holds the per-network constants the orchestrator needs.
type NetworkParams struct {
	// Code is the network code, e.g. "SOL", "BCH".
	Code string

	// Symbol is the native coin ticker.
	Symbol string

	// Precision is the native coin's decimal precision.
	Precision int32

	// CacheKey keys the scan watermark for this network.
	CacheKey string

	// BlockHeadOffset is subtracted from the reported head before it is
	// used for scanning, for chains whose tip is not yet stable.
	BlockHeadOffset int64

	// MaxBlocksPerScan caps how many blocks one scan call may cover.
	MaxBlocksPerScan int64

	// MinTxAmount is the network's minimum valid transfer value in human
	// units.
	MinTxAmount decimal.Decimal
}

// Explorer is the per-network selection and fallback orchestrator. It
// resolves candidate providers from the registry, tries them in order,
// caches the block head for consistent confirmation counts, and keeps the
// block-scan watermark.
type Explorer struct {
	params     NetworkParams
	registry   *Registry
	watermarks WatermarkStore
	metrics    *metrics.Metrics
	logger     *slog.Logger

	headMu        sync.Mutex
	cachedHead    int64
	cachedHeadAt  time.Time
}

// NewExplorer creates the orchestrator for one network. The metrics
// collector may be nil.
func NewExplorer(params NetworkParams, registry *Registry, watermarks WatermarkStore, m *metrics.Metrics, logger *slog.Logger) *Explorer {
	return &Explorer{
		params:     params,
		registry:   registry,
		watermarks: watermarks,
		metrics:    m,
		logger:     logger,
	}
}

// Params returns the network constants this explorer was built with.
func (e *Explorer) Params() NetworkParams { return e.params }

// attempt runs fn against each candidate provider for op in preference
// order. Transport failures and validation rejections advance to the next
// candidate; any other error is surfaced immediately. Exhausting the list
// yields exactly one ErrNoProviderAvailable.
func attempt[T any](ctx context.Context, e *Explorer, op Operation, fn func(context.Context, ProviderClient) (T, error)) (T, error) {
	var zero T

	clients, err := e.registry.Resolve(e.params.Code, op)
	if err != nil {
		return zero, err
	}

	var lastErr error
	for depth, client := range clients {
		start := time.Now()
		out, err := fn(ctx, client)
		duration := time.Since(start).Seconds()

		if err == nil {
			e.metrics.RecordProviderCall(e.params.Code, client.Name(), string(op), "success", duration)
			e.metrics.RecordFallbackDepth(e.params.Code, string(op), float64(depth))
			return out, nil
		}

		e.metrics.RecordProviderCall(e.params.Code, client.Name(), string(op), "error", duration)
		var ve *ValidationError
		if errors.As(err, &ve) {
			e.metrics.RecordValidationRejection(e.params.Code, client.Name(), ve.Reason)
		}

		if !IsRecoverable(err) {
			return zero, err
		}

		e.logger.WarnContext(ctx, "provider failed, trying next",
			"network", e.params.Code,
			"operation", op,
			"provider", client.Name(),
			"depth", depth,
			"error", err,
		)
		lastErr = err
	}

	e.metrics.RecordFallbackExhausted(e.params.Code, string(op))
	if lastErr != nil {
		return zero, fmt.Errorf("%w: %s %s: last error: %v", ErrNoProviderAvailable, e.params.Code, op, lastErr)
	}
	return zero, fmt.Errorf("%w: %s %s: no registered candidates", ErrNoProviderAvailable, e.params.Code, op)
}

// GetBalance returns the confirmed balance of one address.
func (e *Explorer) GetBalance(ctx context.Context, address string) (*Balance, error) {
	return attempt(ctx, e, OpGetBalance, func(ctx context.Context, c ProviderClient) (*Balance, error) {
		return c.GetBalance(ctx, address)
	})
}

// GetBalances returns the confirmed balances of several addresses in one
// batched call where the provider supports it.
func (e *Explorer) GetBalances(ctx context.Context, addresses []string) ([]*Balance, error) {
	return attempt(ctx, e, OpGetBalances, func(ctx context.Context, c ProviderClient) ([]*Balance, error) {
		return c.GetBalances(ctx, addresses)
	})
}

// GetBlockHead returns the network's current head height with the
// configured offset applied. The value is cached briefly so one logical
// call (and its confirmation math) sees a single consistent head.
func (e *Explorer) GetBlockHead(ctx context.Context) (int64, error) {
	e.headMu.Lock()
	defer e.headMu.Unlock()

	if e.cachedHead > 0 && time.Since(e.cachedHeadAt) < headCacheTTL {
		return e.cachedHead, nil
	}

	head, err := attempt(ctx, e, OpGetBlockHead, func(ctx context.Context, c ProviderClient) (int64, error) {
		return c.GetBlockHead(ctx)
	})
	if err != nil {
		return 0, err
	}

	head -= e.params.BlockHeadOffset
	if head < 0 {
		head = 0
	}

	e.cachedHead = head
	e.cachedHeadAt = time.Now()
	e.metrics.SetBlockHead(e.params.Code, float64(head))
	return head, nil
}

// GetAddressTxs returns the normalized transfers touching one address,
// with confirmations computed against a head fetched once for the whole
// batch.
func (e *Explorer) GetAddressTxs(ctx context.Context, address string) ([]*TransferTx, error) {
	txs, err := attempt(ctx, e, OpGetAddressTxs, func(ctx context.Context, c ProviderClient) ([]*TransferTx, error) {
		return c.GetAddressTxs(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	e.fillConfirmations(ctx, txs)
	return txs, nil
}

// GetTxDetails returns the details of one transaction. A transaction that
// exists but failed on chain comes back as Success=false with no
// transfers; a transaction no provider knows comes back nil.
func (e *Explorer) GetTxDetails(ctx context.Context, txHash string) (*TxDetails, error) {
	details, err := attempt(ctx, e, OpGetTxDetails, func(ctx context.Context, c ProviderClient) (*TxDetails, error) {
		return c.GetTxDetails(ctx, txHash)
	})
	if err != nil {
		return nil, err
	}
	if details != nil {
		e.fillConfirmations(ctx, details.Transfers)
	}
	return details, nil
}

// GetTokenTxDetails is GetTxDetails for token (non-native asset)
// transfers.
func (e *Explorer) GetTokenTxDetails(ctx context.Context, txHash string) (*TxDetails, error) {
	details, err := attempt(ctx, e, OpGetTokenTxDetails, func(ctx context.Context, c ProviderClient) (*TxDetails, error) {
		return c.GetTokenTxDetails(ctx, txHash)
	})
	if err != nil {
		return nil, err
	}
	if details != nil {
		e.fillConfirmations(ctx, details.Transfers)
	}
	return details, nil
}

// GetTokenTxs returns the normalized token transfers for one address and
// contract.
func (e *Explorer) GetTokenTxs(ctx context.Context, address string, contract ContractInfo) ([]*TransferTx, error) {
	txs, err := attempt(ctx, e, OpGetTokenTxs, func(ctx context.Context, c ProviderClient) ([]*TransferTx, error) {
		return c.GetTokenTxs(ctx, address, contract)
	})
	if err != nil {
		return nil, err
	}
	e.fillConfirmations(ctx, txs)
	return txs, nil
}

// ScanResult is what one watermark-driven block scan produced.
type ScanResult struct {
	FromBlock int64         `json:"from_block"`
	ToBlock   int64         `json:"to_block"`
	Head      int64         `json:"head"`
	Transfers []*TransferTx `json:"transfers"`
}

// ScanBlocks fetches the transfers in all blocks between the stored
// watermark and the (offset-adjusted) head, capped at MaxBlocksPerScan,
// and advances the watermark only after the batch parsed successfully.
// Repeated calls therefore walk the chain without reprocessing. A scan
// that lost the watermark race returns its transfers anyway; the caller
// deduplicates by hash downstream.
func (e *Explorer) ScanBlocks(ctx context.Context) (*ScanResult, error) {
	head, err := e.GetBlockHead(ctx)
	if err != nil {
		return nil, err
	}

	key := e.watermarkKey()
	watermark, ok, err := e.watermarks.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading scan watermark: %w", err)
	}
	if !ok {
		watermark = head - defaultScanLookback
		if watermark < 0 {
			watermark = 0
		}
	}

	fromBlock := watermark + 1
	toBlock := head
	if max := fromBlock + e.params.MaxBlocksPerScan - 1; e.params.MaxBlocksPerScan > 0 && toBlock > max {
		toBlock = max
	}
	if fromBlock > toBlock {
		return &ScanResult{FromBlock: fromBlock, ToBlock: watermark, Head: head}, nil
	}

	transfers, err := attempt(ctx, e, OpGetBlocksTxs, func(ctx context.Context, c ProviderClient) ([]*TransferTx, error) {
		return c.GetBlocksTxs(ctx, fromBlock, toBlock)
	})
	if err != nil {
		return nil, err
	}

	for _, tx := range transfers {
		if tx.BlockHeight != nil {
			tx.Confirmations = Int64Ptr(head - *tx.BlockHeight)
		}
	}

	var oldMark int64
	if ok {
		oldMark = watermark
	}
	advanced, err := e.watermarks.CompareAndSet(ctx, key, oldMark, toBlock, watermarkTTL)
	if err != nil {
		return nil, fmt.Errorf("advancing scan watermark: %w", err)
	}
	if !advanced {
		e.logger.WarnContext(ctx, "scan watermark moved concurrently, not advancing",
			"network", e.params.Code,
			"from_block", fromBlock,
			"to_block", toBlock,
		)
	} else {
		e.metrics.SetScanWatermark(e.params.Code, float64(toBlock))
	}

	return &ScanResult{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Head:      head,
		Transfers: transfers,
	}, nil
}

// fillConfirmations computes head - height for every transfer that has a
// height, using one head fetch for the whole batch. A head lookup failure
// leaves confirmations null rather than failing the request.
func (e *Explorer) fillConfirmations(ctx context.Context, txs []*TransferTx) {
	if len(txs) == 0 {
		return
	}
	head, err := e.GetBlockHead(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "block head unavailable, leaving confirmations unset",
			"network", e.params.Code,
			"error", err,
		)
		return
	}
	for _, tx := range txs {
		if tx.BlockHeight != nil && tx.Confirmations == nil {
			tx.Confirmations = Int64Ptr(head - *tx.BlockHeight)
		}
	}
}

func (e *Explorer) watermarkKey() string {
	return fmt.Sprintf("latest_block_height_processed_%s", e.params.CacheKey)
}
