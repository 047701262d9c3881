package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Precision is the native coin precision (wei per coin).
const Precision int32 = 18

// transferTopic is the keccak hash of Transfer(address,address,uint256),
// the first topic of every ERC20 transfer event.
const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

const emptyInput = "0x"

// ValidAddress reports whether s is a well-formed 20-byte hex address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// ValidateNativeTx accepts a plain value transfer: non-empty endpoints
// that differ, no calldata, and a positive value. Contract calls and
// deployments are not deposits.
func ValidateNativeTx(tx *Tx) bool {
	if tx == nil || tx.Hash == "" {
		return false
	}
	if tx.From == "" || tx.To == "" {
		return false
	}
	if strings.EqualFold(tx.From, tx.To) {
		return false
	}
	if tx.Input != "" && tx.Input != emptyInput {
		return false
	}
	return tx.Value != "" && tx.Value != "0x0"
}

// ValidateReceipt accepts a receipt of a transaction that executed
// successfully.
func ValidateReceipt(r *Receipt) bool {
	return r != nil && r.Status == "0x1"
}

// ValidateTransferLog accepts a non-reorged ERC20 Transfer event with
// both address topics present.
func ValidateTransferLog(log *Log) bool {
	if log == nil || log.Removed {
		return false
	}
	if len(log.Topics) != 3 {
		return false
	}
	if !strings.EqualFold(log.Topics[0], transferTopic) {
		return false
	}
	return log.Data != "" && log.Data != emptyInput
}
