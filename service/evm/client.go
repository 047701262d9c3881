package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/metrics"
	"github.com/brojonat/omniscan/service/transport"
	"github.com/brojonat/omniscan/service/units"
)

// tokenScanLookback bounds the eth_getLogs window of a token-txs query
// when the provider config does not set one.
const tokenScanLookback = 5000

// Client talks to one EVM execution-layer JSON-RPC backend. Plain
// address history needs an indexer the bare protocol does not offer, so
// GetAddressTxs stays unsupported.
type Client struct {
	explorer.Unsupported

	name      string
	cfg       explorer.ProviderConfig
	params    Params
	rpc       *transport.JSONRPCClient
	contracts map[string]explorer.ContractInfo
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewClient creates a client against cfg.BaseURL. contracts maps
// lowercased contract address to contract info.
func NewClient(name string, cfg explorer.ProviderConfig, params Params, contracts map[string]explorer.ContractInfo, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	httpc = transport.Throttle(httpc, cfg.RateLimit, name, m)
	normalized := make(map[string]explorer.ContractInfo, len(contracts))
	for address, info := range contracts {
		normalized[strings.ToLower(address)] = info
	}
	return &Client{
		name:      name,
		cfg:       cfg,
		params:    params,
		rpc:       transport.NewJSONRPCClient(name, cfg.BaseURL, httpc, logger),
		contracts: normalized,
		metrics:   m,
		logger:    logger,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) validateAddress(address string) error {
	if !ValidAddress(address) {
		return explorer.NewValidationError(c.name, fmt.Sprintf("invalid address %q", address))
	}
	return nil
}

// GetBlockHead returns the latest block number.
func (c *Client) GetBlockHead(ctx context.Context) (int64, error) {
	var raw string
	if err := c.rpc.Call(ctx, "eth_blockNumber", []any{}, &raw); err != nil {
		return 0, err
	}
	head, err := transport.ParseHexUint(raw)
	if err != nil {
		return 0, explorer.NewValidationError(c.name, fmt.Sprintf("block number: %v", err))
	}
	return int64(head), nil
}

// GetBalance fetches the latest-state balance of one address.
func (c *Client) GetBalance(ctx context.Context, address string) (*explorer.Balance, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	var raw string
	if err := c.rpc.Call(ctx, "eth_getBalance", []any{address, "latest"}, &raw); err != nil {
		return nil, err
	}
	wei, err := transport.ParseHexBig(raw)
	if err != nil {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("balance for %s: %v", address, err))
	}
	return &explorer.Balance{
		Address: normalizeAddress(address),
		Balance: units.FromUnitBig(wei, Precision),
	}, nil
}

// GetBalances is a sequential per-address fan-in; the execution API has
// no batch balance call.
func (c *Client) GetBalances(ctx context.Context, addresses []string) ([]*explorer.Balance, error) {
	balances := make([]*explorer.Balance, 0, len(addresses))
	for _, address := range addresses {
		balance, err := c.GetBalance(ctx, address)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

// getTx fetches one transaction object. An unknown hash comes back nil.
func (c *Client) getTx(ctx context.Context, txHash string) (*Tx, error) {
	raw, err := c.rpc.RawCall(ctx, "eth_getTransactionByHash", []any{txHash})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var tx Tx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, explorer.NewTransportError(c.name, err)
	}
	return &tx, nil
}

// getReceipt fetches one receipt. Pending transactions come back nil.
func (c *Client) getReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	raw, err := c.rpc.RawCall(ctx, "eth_getTransactionReceipt", []any{txHash})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, explorer.NewTransportError(c.name, err)
	}
	return &receipt, nil
}

// GetTxDetails fetches one transaction with its receipt. A reverted
// transaction comes back Success=false with no legs.
func (c *Client) GetTxDetails(ctx context.Context, txHash string) (*explorer.TxDetails, error) {
	tx, err := c.getTx(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}
	receipt, err := c.getReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt == nil || !ValidateReceipt(receipt) {
		return &explorer.TxDetails{Hash: txHash, Success: false}, nil
	}

	details := &explorer.TxDetails{Hash: txHash, Success: true}
	if ValidateNativeTx(tx) {
		blockTime := c.blockTime(ctx, tx.BlockNumber)
		if leg := parseNativeTx(tx, c.params, blockTime); leg != nil {
			leg.TxFee = receiptFee(receipt)
			details.Transfers = append(details.Transfers, leg)
		}
	}
	return details, nil
}

// GetTokenTxDetails fetches one transaction's receipt and extracts its
// registered-contract transfer events.
func (c *Client) GetTokenTxDetails(ctx context.Context, txHash string) (*explorer.TxDetails, error) {
	receipt, err := c.getReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}
	if !ValidateReceipt(receipt) {
		return &explorer.TxDetails{Hash: txHash, Success: false}, nil
	}
	return &explorer.TxDetails{
		Hash:      txHash,
		Success:   true,
		Transfers: parseReceiptTransfers(receipt, c.contracts, c.params),
	}, nil
}

// getBlock fetches one block with full transaction objects. Unknown
// heights come back nil.
func (c *Client) getBlock(ctx context.Context, height int64) (*Block, error) {
	raw, err := c.rpc.RawCall(ctx, "eth_getBlockByNumber", []any{transport.FormatHexUint(uint64(height)), true})
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var block Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, explorer.NewTransportError(c.name, err)
	}
	return &block, nil
}

// GetBlocksTxs walks the block range and returns every plain native
// transfer above the floor.
func (c *Client) GetBlocksTxs(ctx context.Context, fromBlock, toBlock int64) ([]*explorer.TransferTx, error) {
	if fromBlock > toBlock {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("block range %d..%d is inverted", fromBlock, toBlock))
	}
	if c.cfg.MaxBlocksPerCall > 0 && toBlock-fromBlock+1 > c.cfg.MaxBlocksPerCall {
		toBlock = fromBlock + c.cfg.MaxBlocksPerCall - 1
	}

	var legs []*explorer.TransferTx
	blocksFetched := 0
	for height := fromBlock; height <= toBlock; height++ {
		block, err := c.getBlock(ctx, height)
		if err != nil {
			return nil, err
		}
		if block == nil {
			continue
		}
		legs = append(legs, parseBlock(block, c.params)...)
		blocksFetched++
	}
	c.metrics.RecordBlocksFetched(c.params.Network, c.name, float64(blocksFetched))
	c.metrics.RecordTransfersParsed(c.params.Network, c.name, float64(len(legs)))
	return legs, nil
}

// GetTokenTxs scans recent Transfer events of one contract where the
// address is sender or recipient, via two topic-filtered eth_getLogs
// windows.
func (c *Client) GetTokenTxs(ctx context.Context, address string, contract explorer.ContractInfo) ([]*explorer.TransferTx, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	if _, known := c.contracts[strings.ToLower(contract.Address)]; !known {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("contract %s is not registered", contract.Address))
	}

	head, err := c.GetBlockHead(ctx)
	if err != nil {
		return nil, err
	}
	fromBlock := head - tokenScanLookback
	if fromBlock < 0 {
		fromBlock = 0
	}

	topicAddr := "0x" + strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(address), "0x")
	var legs []*explorer.TransferTx
	seen := make(map[string]bool)

	for _, topics := range [][]any{
		{transferTopic, topicAddr},
		{transferTopic, nil, topicAddr},
	} {
		filter := map[string]any{
			"fromBlock": transport.FormatHexUint(uint64(fromBlock)),
			"toBlock":   "latest",
			"address":   contract.Address,
			"topics":    topics,
		}
		var logs []Log
		if err := c.rpc.Call(ctx, "eth_getLogs", []any{filter}, &logs); err != nil {
			return nil, err
		}
		for i := range logs {
			log := &logs[i]
			if !ValidateTransferLog(log) {
				continue
			}
			leg := parseTransferLog(log, c.contracts, c.params)
			if leg == nil {
				continue
			}
			dedupeKey := leg.TxHash + "\x00" + leg.FromAddress + "\x00" + leg.ToAddress
			if seen[dedupeKey] {
				continue
			}
			seen[dedupeKey] = true
			legs = append(legs, leg)
		}
	}
	return legs, nil
}

// blockTime resolves a block's timestamp, nil when lookup fails; the
// transfer leg then carries no date rather than a wrong one.
func (c *Client) blockTime(ctx context.Context, blockNumber string) *time.Time {
	height, err := transport.ParseHexUint(blockNumber)
	if err != nil {
		return nil
	}
	block, err := c.getBlock(ctx, int64(height))
	if err != nil || block == nil {
		return nil
	}
	return hexTime(block.Timestamp)
}
