package explorer

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferTx is the canonical normalized transfer leg. One on-chain
// transaction may yield several legs (multiple UTXO inputs/outputs,
// multiple balance-diff pairs); all legs of a transaction share the same
// hash, height, date, and fee. Instances are value objects: constructed by
// a parser, never mutated afterwards.
//
// Decimals serialize as JSON strings, timestamps as ISO-8601 UTC.
type TransferTx struct {
	TxHash        string           `json:"tx_hash"`
	BlockHeight   *int64           `json:"block_height"`
	BlockHash     *string          `json:"block_hash"`
	Date          *time.Time       `json:"date"`
	Success       bool             `json:"success"`
	Confirmations *int64           `json:"confirmations"`
	FromAddress   string           `json:"from_address"`
	ToAddress     string           `json:"to_address"`
	Value         decimal.Decimal  `json:"value"`
	Symbol        string           `json:"symbol"`
	Memo          *string          `json:"memo"`
	TxFee         *decimal.Decimal `json:"tx_fee"`
	Token         *string          `json:"token"`
	Index         *int             `json:"index"`
}

// TxDetails is the result of a transaction-details lookup. A transaction
// that exists on chain but failed/reverted is reported as Success=false
// with no transfers; callers must not conflate that with "not found",
// which is a nil result.
type TxDetails struct {
	Hash      string        `json:"hash"`
	Success   bool          `json:"success"`
	Transfers []*TransferTx `json:"transfers"`
}

// Balance is the result of a balance query. Only Balance is guaranteed;
// the optional fields are filled by providers that report them.
type Balance struct {
	Address     string           `json:"address"`
	Balance     decimal.Decimal  `json:"balance"`
	Unconfirmed *decimal.Decimal `json:"unconfirmed_balance,omitempty"`
	Received    *decimal.Decimal `json:"received,omitempty"`
	Sent        *decimal.Decimal `json:"sent,omitempty"`
}

// ContractInfo describes a non-native asset (SPL mint, ERC20 contract) for
// token operations.
type ContractInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// Int64Ptr, StrPtr, IntPtr, DecimalPtr and TimePtr are small helpers for
// building the pointer-heavy DTOs above.
func Int64Ptr(v int64) *int64 { return &v }

func StrPtr(s string) *string { return &s }

func IntPtr(v int) *int { return &v }

func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func TimePtr(t time.Time) *time.Time { u := t.UTC(); return &u }
