package evm

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/transport"
	"github.com/brojonat/omniscan/service/units"
)

// Params holds the per-network constants of one EVM chain.
type Params struct {
	// Network is the network code, e.g. "ETH", "BSC".
	Network string

	// Symbol is the native coin ticker.
	Symbol string

	// MinTxAmount is the floor below which a native transfer is dust, in
	// human units.
	MinTxAmount decimal.Decimal
}

func hexTime(raw string) *time.Time {
	ts, err := transport.ParseHexUint(raw)
	if err != nil {
		return nil
	}
	return explorer.TimePtr(time.Unix(int64(ts), 0).UTC())
}

func hexHeight(raw string) *int64 {
	h, err := transport.ParseHexUint(raw)
	if err != nil {
		return nil
	}
	return explorer.Int64Ptr(int64(h))
}

// normalizeAddress lowercases through the checksummed form so mixed-case
// inputs compare equal downstream.
func normalizeAddress(s string) string {
	if !common.IsHexAddress(s) {
		return strings.ToLower(s)
	}
	return strings.ToLower(common.HexToAddress(s).Hex())
}

// parseNativeTx converts one validated plain value transfer. A value at
// or below the floor yields nil.
func parseNativeTx(tx *Tx, params Params, blockTime *time.Time) *explorer.TransferTx {
	wei, err := transport.ParseHexBig(tx.Value)
	if err != nil {
		return nil
	}
	value := units.FromUnitBig(wei, Precision)
	if !value.GreaterThan(params.MinTxAmount) {
		return nil
	}
	leg := &explorer.TransferTx{
		TxHash:      tx.Hash,
		BlockHeight: hexHeight(tx.BlockNumber),
		Date:        blockTime,
		Success:     true,
		FromAddress: normalizeAddress(tx.From),
		ToAddress:   normalizeAddress(tx.To),
		Value:       value,
		Symbol:      params.Symbol,
	}
	if tx.BlockHash != "" {
		leg.BlockHash = explorer.StrPtr(tx.BlockHash)
	}
	return leg
}

// parseBlock flattens one block's plain value transfers.
func parseBlock(block *Block, params Params) []*explorer.TransferTx {
	if block == nil {
		return nil
	}
	blockTime := hexTime(block.Timestamp)
	var legs []*explorer.TransferTx
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if !ValidateNativeTx(tx) {
			continue
		}
		if leg := parseNativeTx(tx, params, blockTime); leg != nil {
			legs = append(legs, leg)
		}
	}
	return legs
}

// topicAddress extracts the address packed into an indexed topic.
func topicAddress(topic string) string {
	return strings.ToLower(common.HexToAddress(topic).Hex())
}

// parseTransferLog converts one validated ERC20 Transfer event for a
// registered contract. Unregistered contracts and zero values yield nil.
func parseTransferLog(log *Log, contracts map[string]explorer.ContractInfo, params Params) *explorer.TransferTx {
	contract, registered := contracts[strings.ToLower(log.Address)]
	if !registered {
		return nil
	}
	raw, err := transport.ParseHexBig(log.Data)
	if err != nil {
		return nil
	}
	value := units.FromUnitBig(raw, contract.Decimals)
	if value.Sign() <= 0 {
		return nil
	}
	from := topicAddress(log.Topics[1])
	to := topicAddress(log.Topics[2])
	if from == to {
		return nil
	}
	return &explorer.TransferTx{
		TxHash:      log.TxHash,
		BlockHeight: hexHeight(log.BlockNumber),
		Success:     true,
		FromAddress: from,
		ToAddress:   to,
		Value:       value,
		Symbol:      contract.Symbol,
		Token:       explorer.StrPtr(strings.ToLower(log.Address)),
	}
}

// parseReceiptTransfers extracts the registered-contract transfer events
// of one successful receipt.
func parseReceiptTransfers(receipt *Receipt, contracts map[string]explorer.ContractInfo, params Params) []*explorer.TransferTx {
	var legs []*explorer.TransferTx
	fee := receiptFee(receipt)
	for i := range receipt.Logs {
		log := &receipt.Logs[i]
		if !ValidateTransferLog(log) {
			continue
		}
		leg := parseTransferLog(log, contracts, params)
		if leg == nil {
			continue
		}
		if fee != nil {
			leg.TxFee = fee
		}
		legs = append(legs, leg)
	}
	return legs
}

// receiptFee computes gasUsed * effectiveGasPrice in human units, nil
// when either quantity is absent.
func receiptFee(receipt *Receipt) *decimal.Decimal {
	gasUsed, err := transport.ParseHexBig(receipt.GasUsed)
	if err != nil {
		return nil
	}
	gasPrice, err := transport.ParseHexBig(receipt.EffectiveGasPrice)
	if err != nil {
		return nil
	}
	wei := gasUsed.Mul(gasUsed, gasPrice)
	return explorer.DecimalPtr(units.FromUnitBig(wei, Precision))
}
