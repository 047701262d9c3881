package explorer

import (
	"context"
)

// Operation is a logical query the aggregation layer can serve. The
// capability table maps each network to the providers that can serve each
// operation, in preference order.
type Operation string

const (
	OpGetBalance        Operation = "get_balance"
	OpGetBalances       Operation = "get_balances"
	OpGetBlockHead      Operation = "block_head"
	OpGetAddressTxs     Operation = "get_txs"
	OpGetTxDetails      Operation = "txs_details"
	OpGetBlocksTxs      Operation = "get_blocks_addresses"
	OpGetTokenTxDetails Operation = "token_txs_details"
	OpGetTokenTxs       Operation = "get_token_txs"
)

// Operations lists every known operation, in the order the capability
// table documents them.
func Operations() []Operation {
	return []Operation{
		OpGetBalance,
		OpGetBalances,
		OpGetBlockHead,
		OpGetAddressTxs,
		OpGetTxDetails,
		OpGetBlocksTxs,
		OpGetTokenTxDetails,
		OpGetTokenTxs,
	}
}

// ValidOperation reports whether op names a known operation.
func ValidOperation(op Operation) bool {
	for _, known := range Operations() {
		if op == known {
			return true
		}
	}
	return false
}

// ProviderClient is the capability interface one concrete backend (a
// JSON-RPC node, a REST explorer, a GraphQL endpoint) implements. A
// backend implements only the operations it supports; the rest return
// ErrUnsupportedOperation via the Unsupported embed. The capability table
// should never route an operation to a provider that does not implement
// it, so an ErrUnsupportedOperation at runtime means the table and the
// client disagree.
//
// Every method validates the raw response and parses it to the normalized
// model before returning. Transport problems surface as *TransportError,
// rejected payloads as *ValidationError.
type ProviderClient interface {
	Name() string

	GetBalance(ctx context.Context, address string) (*Balance, error)
	GetBalances(ctx context.Context, addresses []string) ([]*Balance, error)
	GetBlockHead(ctx context.Context) (int64, error)
	GetAddressTxs(ctx context.Context, address string) ([]*TransferTx, error)
	GetTxDetails(ctx context.Context, txHash string) (*TxDetails, error)
	GetBlocksTxs(ctx context.Context, fromBlock, toBlock int64) ([]*TransferTx, error)
	GetTokenTxDetails(ctx context.Context, txHash string) (*TxDetails, error)
	GetTokenTxs(ctx context.Context, address string, contract ContractInfo) ([]*TransferTx, error)
}

// ProviderConfig holds the static per-provider knobs. Declared once per
// registered backend, read-only at request time.
type ProviderConfig struct {
	Key              string
	BaseURL          string
	RateLimit        float64
	MaxBlocksPerCall int64
	GetTxsLimit      int
	UseProxy         bool
	MaxBlockWorkers  int
}

// Unsupported provides ErrUnsupportedOperation stubs for every operation.
// Provider clients embed it and override what their backend supports.
type Unsupported struct{}

func (Unsupported) GetBalance(context.Context, string) (*Balance, error) {
	return nil, ErrUnsupportedOperation
}

func (Unsupported) GetBalances(context.Context, []string) ([]*Balance, error) {
	return nil, ErrUnsupportedOperation
}

func (Unsupported) GetBlockHead(context.Context) (int64, error) {
	return 0, ErrUnsupportedOperation
}

func (Unsupported) GetAddressTxs(context.Context, string) ([]*TransferTx, error) {
	return nil, ErrUnsupportedOperation
}

func (Unsupported) GetTxDetails(context.Context, string) (*TxDetails, error) {
	return nil, ErrUnsupportedOperation
}

func (Unsupported) GetBlocksTxs(context.Context, int64, int64) ([]*TransferTx, error) {
	return nil, ErrUnsupportedOperation
}

func (Unsupported) GetTokenTxDetails(context.Context, string) (*TxDetails, error) {
	return nil, ErrUnsupportedOperation
}

func (Unsupported) GetTokenTxs(context.Context, string, ContractInfo) ([]*TransferTx, error) {
	return nil, ErrUnsupportedOperation
}
