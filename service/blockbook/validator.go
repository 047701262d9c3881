package blockbook

import (
	"github.com/shopspring/decimal"

	"github.com/brojonat/omniscan/service/units"
)

// Precision is the base-unit precision of the Blockbook UTXO family
// (satoshi per coin).
const Precision int32 = 8

// ValidateStatus accepts an /api/ document the head can be read from. A
// backend warning marks the node unhealthy; an indexer that is merely
// catching up is tolerated.
func ValidateStatus(s *Status) bool {
	if s == nil || s.Blockbook == nil || s.Backend == nil {
		return false
	}
	if s.Blockbook.BestHeight <= 0 {
		return false
	}
	return s.Backend.Warnings == ""
}

// ValidateTx accepts a confirmed transaction with every field the parsers
// read.
func ValidateTx(tx *Tx) bool {
	if tx == nil {
		return false
	}
	if tx.Txid == "" || tx.BlockHash == "" {
		return false
	}
	if tx.BlockHeight <= 0 || tx.Confirmations <= 0 || tx.BlockTime <= 0 {
		return false
	}
	return tx.Fees != ""
}

// ValidateTxDetails accepts a /api/v2/tx document.
func ValidateTxDetails(tx *Tx) bool {
	if tx == nil || tx.Vin == nil || tx.Vout == nil {
		return false
	}
	return ValidateTx(tx)
}

// ValidateAddressInfo accepts an address document that carries
// transactions.
func ValidateAddressInfo(info *AddressInfo) bool {
	return info != nil && len(info.Transactions) > 0
}

// ValidateBlock accepts a block listing page.
func ValidateBlock(block *Block) bool {
	if block == nil || block.Error != "" {
		return false
	}
	return len(block.Txs) > 0
}

// vinUsable reports whether an input resolves to exactly one address.
func vinUsable(vin Vin) bool {
	return vin.IsAddress && len(vin.Addresses) == 1 && vin.Addresses[0] != ""
}

// voutUsable reports whether an output resolves to exactly one address.
func voutUsable(vout Vout) bool {
	return vout.IsAddress && len(vout.Addresses) == 1 && vout.Addresses[0] != ""
}

// amountAboveFloor reports whether a base-unit amount string converts to
// strictly more than the network floor.
func amountAboveFloor(raw string, floor decimal.Decimal) bool {
	if raw == "" {
		return false
	}
	v, err := units.FromUnitString(raw, Precision)
	if err != nil {
		return false
	}
	if v.Sign() <= 0 {
		return false
	}
	return v.GreaterThan(floor)
}
