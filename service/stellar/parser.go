package stellar

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/units"
)

// Symbol is the native coin ticker.
const Symbol = "XLM"

func parseBalance(account *Account) *explorer.Balance {
	for _, b := range account.Balances {
		if b.AssetType != "native" {
			continue
		}
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return nil
		}
		return &explorer.Balance{
			Address: account.AccountID,
			Balance: amount,
		}
	}
	return nil
}

func createdAt(raw string) *time.Time {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return explorer.TimePtr(ts)
}

// memoIndex builds the hash-to-transaction map used for deposit
// attribution. Only validated records participate; a hash missing from the
// map means the deposit cannot be attributed and its payment is dropped.
func memoIndex(txs []Transaction) map[string]*Transaction {
	index := make(map[string]*Transaction, len(txs))
	for i := range txs {
		tx := &txs[i]
		if !ValidateTransaction(tx) {
			continue
		}
		index[tx.Hash] = tx
	}
	return index
}

// parsePayment converts one validated payment to a leg, using the indexed
// transaction record for ledger, fee, and memo. Returns nil when the leg
// cannot be built.
func parsePayment(p *Payment, tx *Transaction) *explorer.TransferTx {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil
	}
	leg := &explorer.TransferTx{
		TxHash:      p.TransactionHash,
		Success:     true,
		FromAddress: p.From,
		ToAddress:   p.To,
		Value:       amount,
		Symbol:      Symbol,
		Date:        createdAt(p.CreatedAt),
	}
	if tx != nil {
		leg.BlockHeight = explorer.Int64Ptr(tx.Ledger)
		if tx.Memo != "" {
			leg.Memo = explorer.StrPtr(tx.Memo)
		}
		if fee, err := units.FromUnitString(tx.FeeCharged, Precision); err == nil {
			leg.TxFee = explorer.DecimalPtr(fee)
		}
	}
	return leg
}

// parseAddressTxs joins the payments stream with the transactions stream.
// Incoming payments are deposits: they need a transaction record that was
// not sourced by the address itself and a non-empty memo, since exchange
// deposits are attributed to users by memo. Outgoing payments have no memo
// requirement.
func parseAddressTxs(address string, payments []Payment, txs []Transaction) []*explorer.TransferTx {
	index := memoIndex(txs)

	var legs []*explorer.TransferTx
	for i := range payments {
		p := &payments[i]
		if !ValidatePayment(p) {
			continue
		}
		tx := index[p.TransactionHash]
		if p.To == address {
			if tx == nil || tx.SourceAccount == address || tx.Memo == "" {
				continue
			}
		} else if p.From != address {
			continue
		}
		if leg := parsePayment(p, tx); leg != nil {
			legs = append(legs, leg)
		}
	}
	return legs
}

// parseTxDetails converts the payments of one fetched transaction.
func parseTxDetails(tx *Transaction, payments []Payment) *explorer.TxDetails {
	details := &explorer.TxDetails{Hash: tx.Hash, Success: tx.Successful}
	if !tx.Successful {
		return details
	}
	for i := range payments {
		p := &payments[i]
		if !ValidatePayment(p) {
			continue
		}
		if leg := parsePayment(p, tx); leg != nil {
			details.Transfers = append(details.Transfers, leg)
		}
	}
	return details
}
