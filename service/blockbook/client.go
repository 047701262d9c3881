package blockbook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/metrics"
	"github.com/brojonat/omniscan/service/transport"
)

const addressPageSize = 50

// Network floors below which a UTXO leg is dust rather than a deposit, in
// human units.
var defaultMinAmounts = map[string]string{
	"BTC":  "0.0005",
	"BCH":  "0.003",
	"LTC":  "0.005",
	"DOGE": "1",
}

// NewParams builds the constants for one supported network.
func NewParams(network string) Params {
	floor := decimal.Zero
	if raw, ok := defaultMinAmounts[network]; ok {
		floor = decimal.RequireFromString(raw)
	}
	return Params{Network: network, Symbol: network, MinTxAmount: floor}
}

// Client talks to one Blockbook deployment. The UTXO family has no token
// layer, so the token operations stay unsupported.
type Client struct {
	explorer.Unsupported

	name    string
	cfg     explorer.ProviderConfig
	params  Params
	rest    *transport.RESTClient
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a client against cfg.BaseURL for one network.
func NewClient(name string, cfg explorer.ProviderConfig, params Params, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	httpc = transport.Throttle(httpc, cfg.RateLimit, name, m)
	return &Client{
		name:    name,
		cfg:     cfg,
		params:  params,
		rest:    transport.NewRESTClient(name, cfg.BaseURL, httpc, logger),
		metrics: m,
		logger:  logger,
	}
}

func (c *Client) Name() string { return c.name }

// GetBlockHead reads the indexer's best height from the status document.
func (c *Client) GetBlockHead(ctx context.Context) (int64, error) {
	var status Status
	if err := c.rest.Get(ctx, "/api/", nil, &status); err != nil {
		return 0, err
	}
	if !ValidateStatus(&status) {
		return 0, explorer.NewValidationError(c.name, "status document rejected")
	}
	return status.Blockbook.BestHeight, nil
}

// GetBalance fetches the confirmed balance of one address, with the
// unconfirmed, received, and sent figures Blockbook reports alongside.
func (c *Client) GetBalance(ctx context.Context, address string) (*explorer.Balance, error) {
	query := url.Values{"details": {"basic"}}
	var info AddressInfo
	if err := c.rest.Get(ctx, "/api/v2/address/"+url.PathEscape(address), query, &info); err != nil {
		return nil, err
	}
	balance, err := parseBalance(&info, address)
	if err != nil {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("balance for %s: %v", address, err))
	}
	return balance, nil
}

// GetBalances is a sequential per-address fan-in; Blockbook has no batch
// balance endpoint.
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

// GetAddressTxs returns the legs touching one address from its most
// recent transactions.
func (c *Client) GetAddressTxs(ctx context.Context, address string) ([]*explorer.TransferTx, error) {
	query := url.Values{
		"details":  {"txs"},
		"pageSize": {strconv.Itoa(addressPageSize)},
	}
	var info AddressInfo
	if err := c.rest.Get(ctx, "/api/v2/address/"+url.PathEscape(address), query, &info); err != nil {
		return nil, err
	}
	if !ValidateAddressInfo(&info) {
		return nil, nil
	}
	return parseAddressTxs(address, &info, c.params), nil
}

// GetTxDetails fetches one transaction and splits it into input and
// output legs. An unconfirmed transaction is rejected so the fallback can
// ask a better-synced backend.
func (c *Client) GetTxDetails(ctx context.Context, txHash string) (*explorer.TxDetails, error) {
	var tx Tx
	if err := c.rest.Get(ctx, "/api/v2/tx/"+url.PathEscape(txHash), nil, &tx); err != nil {
		return nil, err
	}
	if !ValidateTxDetails(&tx) {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("transaction %s rejected by validation", txHash))
	}
	return &explorer.TxDetails{
		Hash:      txHash,
		Success:   true,
		Transfers: parseTxDetails(&tx, c.params),
	}, nil
}

// getBlockPage fetches one page of a block listing.
func (c *Client) getBlockPage(ctx context.Context, height int64, page int) (*Block, error) {
	query := url.Values{"page": {strconv.Itoa(page)}}
	var block Block
	if err := c.rest.Get(ctx, "/api/v2/block/"+strconv.FormatInt(height, 10), query, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// GetBlocksTxs walks every block of the range, following listing pages,
// and returns the parsed legs.
func (c *Client) GetBlocksTxs(ctx context.Context, fromBlock, toBlock int64) ([]*explorer.TransferTx, error) {
	if fromBlock > toBlock {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("block range %d..%d is inverted", fromBlock, toBlock))
	}
	if c.cfg.MaxBlocksPerCall > 0 && toBlock-fromBlock+1 > c.cfg.MaxBlocksPerCall {
		toBlock = fromBlock + c.cfg.MaxBlocksPerCall - 1
	}

	var txs []Tx
	blocksFetched := 0
	for height := fromBlock; height <= toBlock; height++ {
		page := 1
		for {
			block, err := c.getBlockPage(ctx, height, page)
			if err != nil {
				return nil, err
			}
			if !ValidateBlock(block) {
				break
			}
			txs = append(txs, block.Txs...)
			if block.TotalPages <= page {
				break
			}
			page++
		}
		blocksFetched++
	}
	c.metrics.RecordBlocksFetched(c.params.Network, c.name, float64(blocksFetched))

	transfers := parseBlockTxs(txs, c.params)
	c.metrics.RecordTransfersParsed(c.params.Network, c.name, float64(len(transfers)))
	return transfers, nil
}
