package evm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/omniscan/service/explorer"
)

const (
	testFrom     = "0x742d35cc6634c0532925a3b844bc454e4438f44e"
	testTo       = "0x53d284357ec70ce289d6d64134dfac8e511c8a3d"
	testContract = "0xdac17f958d2ee523a2206206994597c13d831ec7"
)

var ethParams = Params{
	Network:     "ETH",
	Symbol:      "ETH",
	MinTxAmount: decimal.RequireFromString("0.0001"),
}

var ethContracts = map[string]explorer.ContractInfo{
	testContract: {Address: testContract, Symbol: "USDT", Decimals: 6},
}

func nativeTx() Tx {
	return Tx{
		Hash:        "0xabc123",
		BlockNumber: "0x10",
		BlockHash:   "0xblockhash",
		From:        testFrom,
		To:          testTo,
		Value:       "0xde0b6b3a7640000",
		Input:       "0x",
	}
}

func TestValidateNativeTx(t *testing.T) {
	// Setup
	tx := nativeTx()

	// Act & Assert
	assert.True(t, ValidateNativeTx(&tx))
}

func TestValidateNativeTxContractCall(t *testing.T) {
	// Setup
	tx := nativeTx()
	tx.Input = "0xa9059cbb000000"

	// Act & Assert
	assert.False(t, ValidateNativeTx(&tx))
}

func TestValidateNativeTxSelfTransfer(t *testing.T) {
	// Setup: same endpoints differing only by case.
	tx := nativeTx()
	tx.To = "0x742D35CC6634C0532925A3B844BC454E4438F44E"

	// Act & Assert
	assert.False(t, ValidateNativeTx(&tx))
}

func TestValidateNativeTxZeroValue(t *testing.T) {
	// Setup
	tx := nativeTx()
	tx.Value = "0x0"

	// Act & Assert
	assert.False(t, ValidateNativeTx(&tx))
}

func TestParseNativeTx(t *testing.T) {
	// Setup: 1 ether.
	tx := nativeTx()

	// Act
	leg := parseNativeTx(&tx, ethParams, nil)

	// Assert
	require.NotNil(t, leg)
	assert.Equal(t, "0xabc123", leg.TxHash)
	assert.Equal(t, testFrom, leg.FromAddress)
	assert.Equal(t, testTo, leg.ToAddress)
	assert.Equal(t, "1", leg.Value.String())
	assert.Equal(t, "ETH", leg.Symbol)
	require.NotNil(t, leg.BlockHeight)
	assert.Equal(t, int64(16), *leg.BlockHeight)
}

func TestParseNativeTxDustFloor(t *testing.T) {
	// Setup: 0.0001 ether, at the floor, and the comparison is strict.
	tx := nativeTx()
	tx.Value = "0x5af3107a4000"

	// Act
	leg := parseNativeTx(&tx, ethParams, nil)

	// Assert
	assert.Nil(t, leg)
}

func TestParseBlock(t *testing.T) {
	// Setup: one valid transfer, one contract call.
	call := nativeTx()
	call.Hash = "0xdef456"
	call.Input = "0x095ea7b3"
	block := &Block{
		Number:       "0x10",
		Timestamp:    "0x65505e00",
		Transactions: []Tx{nativeTx(), call},
	}

	// Act
	legs := parseBlock(block, ethParams)

	// Assert
	require.Len(t, legs, 1)
	assert.Equal(t, "0xabc123", legs[0].TxHash)
	require.NotNil(t, legs[0].Date)
}

func transferLog(value string) Log {
	return Log{
		Address: testContract,
		Topics: []string{
			transferTopic,
			"0x000000000000000000000000742d35cc6634c0532925a3b844bc454e4438f44e",
			"0x00000000000000000000000053d284357ec70ce289d6d64134dfac8e511c8a3d",
		},
		Data:        value,
		BlockNumber: "0x10",
		TxHash:      "0xtokentx",
	}
}

func TestParseTransferLog(t *testing.T) {
	// Setup: 2,500,000 base units of a 6-decimal token.
	log := transferLog("0x2625a0")

	// Act
	leg := parseTransferLog(&log, ethContracts, ethParams)

	// Assert
	require.NotNil(t, leg)
	assert.Equal(t, testFrom, leg.FromAddress)
	assert.Equal(t, testTo, leg.ToAddress)
	assert.Equal(t, "2.5", leg.Value.String())
	assert.Equal(t, "USDT", leg.Symbol)
	require.NotNil(t, leg.Token)
	assert.Equal(t, testContract, *leg.Token)
}

func TestParseTransferLogUnregisteredContract(t *testing.T) {
	// Setup
	log := transferLog("0x2625a0")
	log.Address = "0x1111111111111111111111111111111111111111"

	// Act & Assert
	assert.Nil(t, parseTransferLog(&log, ethContracts, ethParams))
}

func TestValidateTransferLog(t *testing.T) {
	// A reorged log is dropped.
	log := transferLog("0x2625a0")
	log.Removed = true
	assert.False(t, ValidateTransferLog(&log))

	// A log with a non-transfer topic is dropped.
	other := transferLog("0x2625a0")
	other.Topics[0] = "0x0000000000000000000000000000000000000000000000000000000000000001"
	assert.False(t, ValidateTransferLog(&other))

	// Approval-style logs with two topics are dropped.
	short := transferLog("0x2625a0")
	short.Topics = short.Topics[:2]
	assert.False(t, ValidateTransferLog(&short))
}

func TestParseReceiptTransfersFee(t *testing.T) {
	// Setup: 21000 gas at 50 gwei.
	receipt := &Receipt{
		Status:            "0x1",
		GasUsed:           "0x5208",
		EffectiveGasPrice: "0xba43b7400",
		Logs:              []Log{transferLog("0x2625a0")},
	}

	// Act
	legs := parseReceiptTransfers(receipt, ethContracts, ethParams)

	// Assert
	require.Len(t, legs, 1)
	require.NotNil(t, legs[0].TxFee)
	assert.Equal(t, "0.00105", legs[0].TxFee.String())
}
