package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	solanago "github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/metrics"
	"github.com/brojonat/omniscan/service/transport"
)

const defaultBlockWorkers = 4

// Client talks to one Solana JSON-RPC backend. Every response is
// validated before parsing; a payload the validators reject surfaces as a
// *explorer.ValidationError so the fallback loop can try the next
// backend.
type Client struct {
	name      string
	cfg       explorer.ProviderConfig
	rpc       *transport.JSONRPCClient
	contracts map[string]explorer.ContractInfo
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewClient creates a client against cfg.BaseURL. contracts maps mint
// address to contract info and bounds which SPL tokens parsing emits.
func NewClient(name string, cfg explorer.ProviderConfig, contracts map[string]explorer.ContractInfo, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	httpc = transport.Throttle(httpc, cfg.RateLimit, name, m)
	return &Client{
		name:      name,
		cfg:       cfg,
		rpc:       transport.NewJSONRPCClient(name, cfg.BaseURL, httpc, logger),
		contracts: contracts,
		metrics:   m,
		logger:    logger,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) validateAddress(address string) error {
	if _, err := solanago.PublicKeyFromBase58(address); err != nil {
		return explorer.NewValidationError(c.name, fmt.Sprintf("invalid address %q: %v", address, err))
	}
	return nil
}

// GetBalance fetches the lamport balance of one address.
func (c *Client) GetBalance(ctx context.Context, address string) (*explorer.Balance, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	var result BalanceResult
	if err := c.rpc.Call(ctx, "getBalance", []any{address}, &result); err != nil {
		return nil, err
	}
	return parseBalance(address, &result), nil
}

// GetBalances fetches the lamport balances of several addresses in one
// getMultipleAccounts call.
func (c *Client) GetBalances(ctx context.Context, addresses []string) ([]*explorer.Balance, error) {
	for _, address := range addresses {
		if err := c.validateAddress(address); err != nil {
			return nil, err
		}
	}
	var result MultipleAccountsResult
	if err := c.rpc.Call(ctx, "getMultipleAccounts", []any{addresses}, &result); err != nil {
		return nil, err
	}
	if len(result.Value) != len(addresses) {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("getMultipleAccounts returned %d values for %d addresses", len(result.Value), len(addresses)))
	}
	return parseBalances(addresses, &result), nil
}

// GetBlockHead returns the absolute slot of the current epoch.
func (c *Client) GetBlockHead(ctx context.Context) (int64, error) {
	var info EpochInfo
	if err := c.rpc.Call(ctx, "getEpochInfo", []any{}, &info); err != nil {
		return 0, err
	}
	if info.AbsoluteSlot <= 0 {
		return 0, explorer.NewValidationError(c.name, "epoch info carries no absolute slot")
	}
	return info.AbsoluteSlot, nil
}

// getSignatures fetches the recent finalized signature list of one
// address, bounded by the provider's configured limit.
func (c *Client) getSignatures(ctx context.Context, address string) ([]SignatureEntry, error) {
	limit := c.cfg.GetTxsLimit
	if limit <= 0 {
		limit = 25
	}
	var entries []SignatureEntry
	params := []any{address, map[string]any{"limit": limit, "commitment": "finalized"}}
	if err := c.rpc.Call(ctx, "getSignaturesForAddress", params, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// getTransaction fetches one transaction in jsonParsed encoding. A null
// result (transaction unknown to this backend) comes back nil with no
// error.
func (c *Client) getTransaction(ctx context.Context, txHash string) (*TransactionResult, error) {
	params := []any{txHash, map[string]any{
		"encoding":                       "jsonParsed",
		"maxSupportedTransactionVersion": 0,
	}}
	raw, err := c.rpc.RawCall(ctx, "getTransaction", params)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var result TransactionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, explorer.NewTransportError(c.name, fmt.Errorf("unmarshaling transaction: %w", err))
	}
	return &result, nil
}

// fetchTransactions resolves a signature list to full transactions,
// skipping signatures whose entry already carries an error.
func (c *Client) fetchTransactions(ctx context.Context, entries []SignatureEntry) ([]*TransactionResult, error) {
	results := make([]*TransactionResult, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Err) > 0 && string(entry.Err) != "null" {
			continue
		}
		result, err := c.getTransaction(ctx, entry.Signature)
		if err != nil {
			return nil, err
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

// GetAddressTxs returns the validated native transfer legs touching one
// address, newest first as the signature list reports them.
func (c *Client) GetAddressTxs(ctx context.Context, address string) ([]*explorer.TransferTx, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	entries, err := c.getSignatures(ctx, address)
	if err != nil {
		return nil, err
	}
	results, err := c.fetchTransactions(ctx, entries)
	if err != nil {
		return nil, err
	}
	return parseAddressTxs(address, results), nil
}

// GetTxDetails fetches one transaction. An unknown hash comes back nil;
// a transaction that exists but failed on chain comes back with
// Success=false and no transfers, so callers can distinguish "not found"
// from "found and failed".
func (c *Client) GetTxDetails(ctx context.Context, txHash string) (*explorer.TxDetails, error) {
	result, err := c.getTransaction(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	if result.Meta != nil && len(result.Meta.Err) > 0 && string(result.Meta.Err) != "null" {
		return &explorer.TxDetails{Hash: txHash, Success: false}, nil
	}
	if !ValidateTransaction(result) {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("transaction %s rejected by validation", txHash))
	}
	return &explorer.TxDetails{
		Hash:      txHash,
		Success:   true,
		Transfers: parseTxDetails(result),
	}, nil
}

// getBlockSlots resolves a height range to the slots that actually
// produced blocks.
func (c *Client) getBlockSlots(ctx context.Context, fromBlock, toBlock int64) ([]int64, error) {
	var slots []int64
	if err := c.rpc.Call(ctx, "getBlocks", []any{fromBlock, toBlock}, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// getBlock fetches one block at the accounts detail level. Skipped slots
// come back nil.
func (c *Client) getBlock(ctx context.Context, slot int64) (*BlockResult, error) {
	params := []any{slot, map[string]any{
		"encoding":                       "jsonParsed",
		"transactionDetails":             "accounts",
		"rewards":                        false,
		"maxSupportedTransactionVersion": 0,
	}}
	raw, err := c.rpc.RawCall(ctx, "getBlock", params)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var block BlockResult
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, explorer.NewTransportError(c.name, fmt.Errorf("unmarshaling block: %w", err))
	}
	return &block, nil
}

// GetBlocksTxs scans the block range and returns every validated native
// and SPL transfer leg. Blocks are fetched concurrently, bounded by the
// provider's worker knob, and reassembled in slot order so output is
// deterministic.
func (c *Client) GetBlocksTxs(ctx context.Context, fromBlock, toBlock int64) ([]*explorer.TransferTx, error) {
	if fromBlock > toBlock {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("block range %d..%d is inverted", fromBlock, toBlock))
	}
	if c.cfg.MaxBlocksPerCall > 0 && toBlock-fromBlock+1 > c.cfg.MaxBlocksPerCall {
		toBlock = fromBlock + c.cfg.MaxBlocksPerCall - 1
	}

	slots, err := c.getBlockSlots(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}

	workers := c.cfg.MaxBlockWorkers
	if workers <= 0 {
		workers = defaultBlockWorkers
	}

	var mu sync.Mutex
	blocksBySlot := make(map[int64]*BlockResult, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, slot := range slots {
		g.Go(func() error {
			block, err := c.getBlock(gctx, slot)
			if err != nil {
				return err
			}
			mu.Lock()
			blocksBySlot[slot] = block
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slotsSorted := make([]int64, 0, len(blocksBySlot))
	for slot := range blocksBySlot {
		slotsSorted = append(slotsSorted, slot)
	}
	sort.Slice(slotsSorted, func(i, j int) bool { return slotsSorted[i] < slotsSorted[j] })

	blocks := make([]*BlockResult, 0, len(slotsSorted))
	for _, slot := range slotsSorted {
		blocks = append(blocks, blocksBySlot[slot])
	}
	c.metrics.RecordBlocksFetched(Symbol, c.name, float64(len(blocks)))

	transfers := parseBlocks(blocks, c.contracts)
	c.metrics.RecordTransfersParsed(Symbol, c.name, float64(len(transfers)))
	return transfers, nil
}

// GetTokenTxDetails fetches one transaction and reconciles its SPL
// movements from the token balance diffs.
func (c *Client) GetTokenTxDetails(ctx context.Context, txHash string) (*explorer.TxDetails, error) {
	result, err := c.getTransaction(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	if result.Meta != nil && len(result.Meta.Err) > 0 && string(result.Meta.Err) != "null" {
		return &explorer.TxDetails{Hash: txHash, Success: false}, nil
	}
	if !ValidateTokenTransaction(result) {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("transaction %s rejected by token validation", txHash))
	}
	return &explorer.TxDetails{
		Hash:      txHash,
		Success:   true,
		Transfers: parseTokenTxDetails(result, c.contracts),
	}, nil
}

// GetTokenTxs returns the token transfers of one address for one
// contract, at most one leg per transaction.
func (c *Client) GetTokenTxs(ctx context.Context, address string, contract explorer.ContractInfo) ([]*explorer.TransferTx, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	if _, known := c.contracts[contract.Address]; !known {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("contract %s is not registered", contract.Address))
	}
	entries, err := c.getSignatures(ctx, address)
	if err != nil {
		return nil, err
	}
	results, err := c.fetchTransactions(ctx, entries)
	if err != nil {
		return nil, err
	}
	return parseTokenTxs(results, contract), nil
}
