package fantom

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/metrics"
	"github.com/brojonat/omniscan/service/transport"
	"github.com/brojonat/omniscan/service/units"
)

// Precision is the native FTM precision (wei per FTM).
const Precision int32 = 18

// Symbol is the native coin ticker.
const Symbol = "FTM"

// DefaultBaseURL is the public Fantom GraphQL gateway.
const DefaultBaseURL = "https://xapi.fantom.network/"

const addressTxsLimit = 60

const balanceQuery = `
query getAddressBalance ($address: Address!) {
    account (address: $address) {
        address
        balance
    }
}`

const blockHeadQuery = `
query blockStatus {
    block {
        number
    }
}`

const addressTxsQuery = `
query getAddressTransactions ($address: Address!, $limit: Int!) {
    account (address: $address) {
        txList (count: $limit) {
            edges {
                transaction {
                    hash
                    status
                    from
                    to
                    value
                    inputData
                    blockNumber
                    block {
                        timestamp
                    }
                }
            }
        }
    }
}`

const blocksQuery = `
query BlocksList($cursor: Cursor!, $count: Int!) {
    blocks (cursor: $cursor, count: $count) {
        edges {
            block {
                number
                timestamp
                txList {
                    hash
                    status
                    from
                    to
                    value
                    inputData
                    blockNumber
                }
            }
        }
    }
}`

// Client talks to the Fantom GraphQL gateway. The schema exposes
// per-address history and block listings but no batch balances or token
// layer, so those operations stay unsupported.
type Client struct {
	explorer.Unsupported

	name    string
	cfg     explorer.ProviderConfig
	gql     *transport.GraphQLClient
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a client against cfg.BaseURL (the public gateway when
// empty).
func NewClient(name string, cfg explorer.ProviderConfig, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc = transport.Throttle(httpc, cfg.RateLimit, name, m)
	return &Client{
		name:    name,
		cfg:     cfg,
		gql:     transport.NewGraphQLClient(name, baseURL, httpc, logger),
		metrics: m,
		logger:  logger,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) validateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return explorer.NewValidationError(c.name, fmt.Sprintf("invalid address %q", address))
	}
	return nil
}

// ValidateTx accepts a successful plain value transfer.
func ValidateTx(tx *GraphTx) bool {
	if tx == nil || tx.Hash == "" {
		return false
	}
	if tx.Status != "0x1" || tx.InputData != "0x" {
		return false
	}
	return tx.Value != "" && tx.Value != "0x0"
}

// GetBalance fetches the native balance of one address.
func (c *Client) GetBalance(ctx context.Context, address string) (*explorer.Balance, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	var data accountBalanceData
	if err := c.gql.Query(ctx, balanceQuery, map[string]any{"address": address}, &data); err != nil {
		return nil, err
	}
	wei, err := transport.ParseHexBig(data.Account.Balance)
	if err != nil {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("balance for %s: %v", address, err))
	}
	return &explorer.Balance{
		Address: strings.ToLower(address),
		Balance: units.FromUnitBig(wei, Precision),
	}, nil
}

// GetBlockHead reads the latest block number.
func (c *Client) GetBlockHead(ctx context.Context) (int64, error) {
	var data blockHeadData
	if err := c.gql.Query(ctx, blockHeadQuery, nil, &data); err != nil {
		return 0, err
	}
	head, err := transport.ParseHexUint(data.Block.Number)
	if err != nil {
		return 0, explorer.NewValidationError(c.name, fmt.Sprintf("block number: %v", err))
	}
	return int64(head), nil
}

// GetAddressTxs returns the recent successful plain transfers touching
// one address.
func (c *Client) GetAddressTxs(ctx context.Context, address string) ([]*explorer.TransferTx, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	variables := map[string]any{"address": address, "limit": addressTxsLimit}
	var data addressTxsData
	if err := c.gql.Query(ctx, addressTxsQuery, variables, &data); err != nil {
		return nil, err
	}

	var legs []*explorer.TransferTx
	for _, edge := range data.Account.TxList.Edges {
		tx := edge.Transaction
		if !ValidateTx(&tx) {
			continue
		}
		if leg := parseTx(&tx); leg != nil {
			legs = append(legs, leg)
		}
	}
	return legs, nil
}

// GetBlocksTxs lists the blocks of the range and returns their successful
// plain transfers. The schema's cursor addresses the newest block of the
// window, so the cursor is the range top.
func (c *Client) GetBlocksTxs(ctx context.Context, fromBlock, toBlock int64) ([]*explorer.TransferTx, error) {
	if fromBlock > toBlock {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("block range %d..%d is inverted", fromBlock, toBlock))
	}
	if c.cfg.MaxBlocksPerCall > 0 && toBlock-fromBlock+1 > c.cfg.MaxBlocksPerCall {
		toBlock = fromBlock + c.cfg.MaxBlocksPerCall - 1
	}

	variables := map[string]any{
		"cursor": transport.FormatHexUint(uint64(toBlock)),
		"count":  toBlock - fromBlock + 1,
	}
	var data blocksData
	if err := c.gql.Query(ctx, blocksQuery, variables, &data); err != nil {
		return nil, err
	}

	var legs []*explorer.TransferTx
	for _, edge := range data.Blocks.Edges {
		blockTime := blockTimestamp(edge.Block.Timestamp)
		for i := range edge.Block.TxList {
			tx := edge.Block.TxList[i]
			if !ValidateTx(&tx) {
				continue
			}
			if tx.BlockNumber == "" {
				tx.BlockNumber = edge.Block.Number
			}
			leg := parseTx(&tx)
			if leg == nil {
				continue
			}
			if leg.Date == nil {
				leg.Date = blockTime
			}
			legs = append(legs, leg)
		}
	}
	c.metrics.RecordBlocksFetched(Symbol, c.name, float64(len(data.Blocks.Edges)))
	c.metrics.RecordTransfersParsed(Symbol, c.name, float64(len(legs)))
	return legs, nil
}

// parseTx converts one validated transaction to a leg, nil when the value
// does not parse or the endpoints collapse.
func parseTx(tx *GraphTx) *explorer.TransferTx {
	wei, err := transport.ParseHexBig(tx.Value)
	if err != nil {
		return nil
	}
	value := units.FromUnitBig(wei, Precision)
	if value.Sign() <= 0 {
		return nil
	}
	from := strings.ToLower(tx.From)
	to := strings.ToLower(tx.To)
	if from == to {
		return nil
	}
	leg := &explorer.TransferTx{
		TxHash:      tx.Hash,
		Success:     true,
		FromAddress: from,
		ToAddress:   to,
		Value:       value,
		Symbol:      Symbol,
	}
	if height, err := transport.ParseHexUint(tx.BlockNumber); err == nil {
		leg.BlockHeight = explorer.Int64Ptr(int64(height))
	}
	if tx.Block != nil {
		leg.Date = blockTimestamp(tx.Block.Timestamp)
	}
	return leg
}

func blockTimestamp(raw string) *time.Time {
	ts, err := transport.ParseHexUint(raw)
	if err != nil {
		return nil
	}
	return explorer.TimePtr(time.Unix(int64(ts), 0).UTC())
}
