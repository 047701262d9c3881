package stellar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/metrics"
	"github.com/brojonat/omniscan/service/transport"
)

// DefaultBaseURL is the public Horizon instance.
const DefaultBaseURL = "https://horizon.stellar.org/"

// addressTxsLimit bounds both the payments and the transactions page when
// listing address history.
const addressTxsLimit = 30

// Client talks to a Stellar Horizon REST backend. Horizon has no block
// scanning endpoint shaped like the range scan and no token layer here, so
// those operations stay unsupported.
type Client struct {
	explorer.Unsupported

	name    string
	cfg     explorer.ProviderConfig
	rest    *transport.RESTClient
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a client against cfg.BaseURL (the public Horizon
// instance when empty).
func NewClient(name string, cfg explorer.ProviderConfig, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc = transport.Throttle(httpc, cfg.RateLimit, name, m)
	return &Client{
		name:    name,
		cfg:     cfg,
		rest:    transport.NewRESTClient(name, baseURL, httpc, logger),
		metrics: m,
		logger:  logger,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) validateAddress(address string) error {
	if len(address) != 56 || !strings.HasPrefix(address, "G") {
		return explorer.NewValidationError(c.name, fmt.Sprintf("invalid address %q", address))
	}
	return nil
}

func descQuery(limit int) url.Values {
	return url.Values{
		"order": []string{"desc"},
		"limit": []string{strconv.Itoa(limit)},
	}
}

// GetBalance fetches the native balance of one account. An unfunded
// account does not exist on the ledger yet; Horizon answers 404 and the
// balance is zero.
func (c *Client) GetBalance(ctx context.Context, address string) (*explorer.Balance, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}
	var account Account
	if err := c.rest.Get(ctx, "accounts/"+address, nil, &account); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return &explorer.Balance{Address: address}, nil
		}
		return nil, err
	}
	if !ValidateAccount(&account, address) {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("account document does not match %s", address))
	}
	balance := parseBalance(&account)
	if balance == nil {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("unparseable native balance for %s", address))
	}
	return balance, nil
}

// GetBalances fetches balances address by address. Horizon has no batch
// endpoint.
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

// GetBlockHead reads the sequence of the latest closed ledger.
func (c *Client) GetBlockHead(ctx context.Context) (int64, error) {
	var page embedded[Ledger]
	if err := c.rest.Get(ctx, "ledgers", descQuery(1), &page); err != nil {
		return 0, err
	}
	records := page.Embedded.Records
	if len(records) == 0 || records[0].Sequence <= 0 {
		return 0, explorer.NewValidationError(c.name, "no latest ledger record")
	}
	return records[0].Sequence, nil
}

// GetAddressTxs returns the recent native payments touching one account.
// The payments stream carries the transfer legs and the transactions
// stream carries the memos deposits are attributed by.
func (c *Client) GetAddressTxs(ctx context.Context, address string) ([]*explorer.TransferTx, error) {
	if err := c.validateAddress(address); err != nil {
		return nil, err
	}

	var payments embedded[Payment]
	if err := c.rest.Get(ctx, "accounts/"+address+"/payments", descQuery(addressTxsLimit), &payments); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var txs embedded[Transaction]
	if err := c.rest.Get(ctx, "accounts/"+address+"/transactions", descQuery(addressTxsLimit), &txs); err != nil {
		return nil, err
	}

	legs := parseAddressTxs(address, payments.Embedded.Records, txs.Embedded.Records)
	c.metrics.RecordTransfersParsed(Symbol, c.name, float64(len(legs)))
	return legs, nil
}

// GetTxDetails fetches one transaction and its payments. A hash Horizon
// does not know yields nil.
func (c *Client) GetTxDetails(ctx context.Context, hash string) (*explorer.TxDetails, error) {
	var tx Transaction
	if err := c.rest.Get(ctx, "transactions/"+hash, nil, &tx); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if tx.Hash == "" {
		return nil, explorer.NewValidationError(c.name, fmt.Sprintf("transaction document missing hash for %s", hash))
	}
	if !tx.Successful {
		return &explorer.TxDetails{Hash: tx.Hash}, nil
	}

	var payments embedded[Payment]
	if err := c.rest.Get(ctx, "transactions/"+hash+"/payments", descQuery(addressTxsLimit), &payments); err != nil {
		return nil, err
	}
	details := parseTxDetails(&tx, payments.Embedded.Records)
	c.metrics.RecordTransfersParsed(Symbol, c.name, float64(len(details.Transfers)))
	return details, nil
}
