package stellar

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the stroop precision of XLM amounts. Horizon reports
// amounts as decimal strings already in XLM, so it only bounds fractional
// digits.
const Precision int32 = 7

// memoLedgerFloor is the ledger below which transaction memos are not
// trusted for deposit attribution. Memos from the network's early history
// predate the exchange memo conventions.
const memoLedgerFloor int64 = 30224000

// ValidateAccount accepts an account document whose id echoes the queried
// address and whose first balance entry is the native one. Horizon orders
// the native balance last for multi-asset accounts, so parsers search the
// list; the validator only requires that a native entry exists.
func ValidateAccount(account *Account, address string) bool {
	if account == nil || account.AccountID != address {
		return false
	}
	for _, b := range account.Balances {
		if b.AssetType == "native" {
			return true
		}
	}
	return false
}

// ValidateTransaction accepts a successful transaction record usable for
// memo attribution.
func ValidateTransaction(tx *Transaction) bool {
	if tx == nil || tx.Hash == "" {
		return false
	}
	if !tx.Successful {
		return false
	}
	return tx.Ledger > memoLedgerFloor
}

// ValidatePayment accepts a native payment operation from a successful
// transaction. The source account must match the sending side, the asset
// must be the native one with no issuer or code attached, and the amount
// must be a positive decimal.
func ValidatePayment(p *Payment) bool {
	if p == nil || p.TransactionHash == "" {
		return false
	}
	if !p.TransactionSuccessful || p.Type != "payment" {
		return false
	}
	if p.AssetType != "native" || p.AssetCode != "" || p.AssetIssuer != "" {
		return false
	}
	if p.SourceAccount != p.From {
		return false
	}
	if strings.EqualFold(p.From, p.To) {
		return false
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return false
	}
	return amount.Sign() > 0
}
