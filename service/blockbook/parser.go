package blockbook

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/units"
)

// Params holds the per-network constants of one Blockbook deployment.
type Params struct {
	// Network is the network code, e.g. "BTC", "BCH".
	Network string

	// Symbol is the native coin ticker.
	Symbol string

	// MinTxAmount is the floor below which an input or output is not
	// worth a transfer leg, in human units.
	MinTxAmount decimal.Decimal
}

func txDate(blockTime int64) *time.Time {
	return explorer.TimePtr(time.Unix(blockTime, 0).UTC())
}

// newLeg builds a transfer leg carrying the per-transaction fields every
// leg of tx shares.
func newLeg(tx *Tx, params Params, from, to string, value decimal.Decimal) *explorer.TransferTx {
	fee, _ := units.FromUnitString(tx.Fees, Precision)
	return &explorer.TransferTx{
		TxHash:        tx.Txid,
		BlockHeight:   explorer.Int64Ptr(tx.BlockHeight),
		Date:          txDate(tx.BlockTime),
		Success:       true,
		Confirmations: explorer.Int64Ptr(tx.Confirmations),
		FromAddress:   from,
		ToAddress:     to,
		Value:         value,
		Symbol:        params.Symbol,
		TxFee:         explorer.DecimalPtr(fee),
	}
}

// parseBalance converts an address document. The unconfirmed delta may be
// negative (outgoing mempool spend), so it converts through big-int
// string parsing rather than unsigned assumptions.
func parseBalance(info *AddressInfo, address string) (*explorer.Balance, error) {
	confirmed, err := units.FromUnitString(orZero(info.Balance), Precision)
	if err != nil {
		return nil, err
	}
	balance := &explorer.Balance{Address: address, Balance: confirmed}
	if info.UnconfirmedBalance != "" {
		if v, err := units.FromUnitString(info.UnconfirmedBalance, Precision); err == nil {
			balance.Unconfirmed = explorer.DecimalPtr(v)
		}
	}
	if info.TotalReceived != "" {
		if v, err := units.FromUnitString(info.TotalReceived, Precision); err == nil {
			balance.Received = explorer.DecimalPtr(v)
		}
	}
	if info.TotalSent != "" {
		if v, err := units.FromUnitString(info.TotalSent, Precision); err == nil {
			balance.Sent = explorer.DecimalPtr(v)
		}
	}
	return balance, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// parseTxDetails turns one UTXO transaction into legs: one per distinct
// input address (outputs back to an input address net against it as
// change) and one per remaining output address. The fee repeats on every
// leg.
func parseTxDetails(tx *Tx, params Params) []*explorer.TransferTx {
	var legs []*explorer.TransferTx

	for _, vin := range tx.Vin {
		if !vinUsable(vin) {
			continue
		}
		address := vin.Addresses[0]
		value, err := units.FromUnitString(vin.Value, Precision)
		if err != nil {
			continue
		}
		merged := false
		for _, leg := range legs {
			if strings.EqualFold(leg.FromAddress, address) {
				leg.Value = leg.Value.Add(value)
				merged = true
				break
			}
		}
		if !merged {
			legs = append(legs, newLeg(tx, params, address, "", value))
		}
	}

	for _, vout := range tx.Vout {
		if !voutUsable(vout) {
			continue
		}
		address := vout.Addresses[0]
		value, err := units.FromUnitString(vout.Value, Precision)
		if err != nil {
			continue
		}
		merged := false
		for _, leg := range legs {
			if strings.EqualFold(leg.FromAddress, address) {
				leg.Value = leg.Value.Sub(value)
				merged = true
				break
			}
			if leg.ToAddress != "" && strings.EqualFold(leg.ToAddress, address) {
				leg.Value = leg.Value.Add(value)
				merged = true
				break
			}
		}
		if !merged {
			legs = append(legs, newLeg(tx, params, "", address, value))
		}
	}

	return legs
}

// sideEntry is one aggregated input or output side of a transaction.
type sideEntry struct {
	address string
	value   decimal.Decimal
}

// aggregateVins sums the usable inputs above the floor by address,
// preserving first-seen order.
func aggregateVins(tx *Tx, floor decimal.Decimal) []sideEntry {
	return aggregateSides(len(tx.Vin), func(i int) (string, string, bool) {
		vin := tx.Vin[i]
		if !vinUsable(vin) {
			return "", "", false
		}
		return vin.Addresses[0], vin.Value, true
	}, floor)
}

// aggregateVouts sums the usable outputs above the floor by address,
// preserving first-seen order.
func aggregateVouts(tx *Tx, floor decimal.Decimal) []sideEntry {
	return aggregateSides(len(tx.Vout), func(i int) (string, string, bool) {
		vout := tx.Vout[i]
		if !voutUsable(vout) {
			return "", "", false
		}
		return vout.Addresses[0], vout.Value, true
	}, floor)
}

func aggregateSides(n int, at func(int) (address, raw string, ok bool), floor decimal.Decimal) []sideEntry {
	var order []string
	sums := make(map[string]decimal.Decimal)
	for i := 0; i < n; i++ {
		address, raw, ok := at(i)
		if !ok {
			continue
		}
		if !amountAboveFloor(raw, floor) {
			continue
		}
		value, err := units.FromUnitString(raw, Precision)
		if err != nil {
			continue
		}
		if _, seen := sums[address]; !seen {
			order = append(order, address)
		}
		sums[address] = sums[address].Add(value)
	}
	entries := make([]sideEntry, 0, len(order))
	for _, address := range order {
		entries = append(entries, sideEntry{address: address, value: sums[address]})
	}
	return entries
}

// parseAddressTxs filters an address document down to the legs touching
// address: one input leg holding the address's aggregated spend net of
// change, plus an output leg when the address only receives.
func parseAddressTxs(address string, info *AddressInfo, params Params) []*explorer.TransferTx {
	var legs []*explorer.TransferTx

	for i := range info.Transactions {
		tx := &info.Transactions[i]
		if !ValidateTx(tx) {
			continue
		}

		inputs := aggregateVins(tx, params.MinTxAmount)
		outputs := aggregateVouts(tx, params.MinTxAmount)

		for _, input := range inputs {
			if !strings.EqualFold(input.address, address) {
				continue
			}
			legs = append(legs, newLeg(tx, params, input.address, "", input.value))
		}
		for _, output := range outputs {
			if !strings.EqualFold(output.address, address) {
				continue
			}
			netted := false
			for _, leg := range legs {
				if leg.TxHash == tx.Txid && strings.EqualFold(leg.FromAddress, output.address) {
					leg.Value = leg.Value.Sub(output.value)
					netted = true
					break
				}
			}
			if !netted {
				legs = append(legs, newLeg(tx, params, "", output.address, output.value))
			}
		}
	}

	return legs
}

// parseBlockTxs flattens block listing pages into transfer legs. Input
// legs carry the address's aggregated spend minus the fee; an output back
// to a spending address nets against its input leg as change.
func parseBlockTxs(txs []Tx, params Params) []*explorer.TransferTx {
	var legs []*explorer.TransferTx
	byAddrTx := make(map[string]*explorer.TransferTx)

	key := func(address, txid string) string {
		return strings.ToLower(address) + "\x00" + txid
	}

	for i := range txs {
		tx := &txs[i]
		if tx.Txid == "" {
			continue
		}

		fee, err := units.FromUnitString(orZero(tx.Fees), Precision)
		if err != nil {
			continue
		}

		for _, input := range aggregateVins(tx, params.MinTxAmount) {
			k := key(input.address, tx.Txid)
			if _, seen := byAddrTx[k]; seen {
				continue
			}
			leg := newLeg(tx, params, input.address, "", input.value.Sub(fee))
			byAddrTx[k] = leg
			legs = append(legs, leg)
		}

		for _, output := range aggregateVouts(tx, params.MinTxAmount) {
			k := key(output.address, tx.Txid)
			if leg, seen := byAddrTx[k]; seen {
				leg.Value = leg.Value.Sub(output.value)
				continue
			}
			leg := newLeg(tx, params, "", output.address, output.value)
			byAddrTx[k] = leg
			legs = append(legs, leg)
		}
	}

	return legs
}
