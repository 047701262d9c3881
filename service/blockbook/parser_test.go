package blockbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	spendAddr   = "bitcoincash:qq07l6rr5lsdm3m80qxw80ku2ex0tj76vvft7ucl22"
	receiveAddr = "bitcoincash:qz2708636snqhsxu8wnlka78h6fdp77ar5vhqf2e0g"
)

var bchParams = Params{
	Network:     "BCH",
	Symbol:      "BCH",
	MinTxAmount: decimal.RequireFromString("0.003"),
}

// bchSpendTx is a payment of 2200 BCH funded by two inputs of one
// address, with the change returned to it.
func bchSpendTx() Tx {
	return Tx{
		Txid:          "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16",
		BlockHash:     "0000000000000000029b49b9a8b76b9fa1cda4ad6a07a0a9114b8d22f4b0ef4e",
		BlockHeight:   741294,
		Confirmations: 12,
		BlockTime:     1700000000,
		Fees:          "1134",
		Vin: []Vin{
			{Addresses: []string{spendAddr}, IsAddress: true, Value: "220000000000"},
			{Addresses: []string{spendAddr}, IsAddress: true, Value: "110005573806"},
		},
		Vout: []Vout{
			{Addresses: []string{receiveAddr}, IsAddress: true, Value: "220000000000"},
			{Addresses: []string{spendAddr}, IsAddress: true, Value: "110005572672"},
		},
	}
}

func TestParseTxDetails(t *testing.T) {
	// Setup
	tx := bchSpendTx()

	// Act
	legs := parseTxDetails(&tx, bchParams)

	// Assert: the spender's inputs aggregate and the change nets against
	// them; the recipient keeps a clean output leg.
	require.Len(t, legs, 2)

	spend := legs[0]
	assert.Equal(t, spendAddr, spend.FromAddress)
	assert.Equal(t, "", spend.ToAddress)
	assert.Equal(t, "2200.00001134", spend.Value.String())
	require.NotNil(t, spend.TxFee)
	assert.Equal(t, "0.00001134", spend.TxFee.String())
	require.NotNil(t, spend.BlockHeight)
	assert.Equal(t, int64(741294), *spend.BlockHeight)
	require.NotNil(t, spend.Confirmations)
	assert.Equal(t, int64(12), *spend.Confirmations)

	receive := legs[1]
	assert.Equal(t, "", receive.FromAddress)
	assert.Equal(t, receiveAddr, receive.ToAddress)
	assert.True(t, receive.Value.Equal(decimal.RequireFromString("2200.00000000")))
	require.NotNil(t, receive.TxFee)
	assert.Equal(t, "0.00001134", receive.TxFee.String())
}

func TestParseAddressTxsSpender(t *testing.T) {
	// Setup
	info := &AddressInfo{Transactions: []Tx{bchSpendTx()}}

	// Act
	legs := parseAddressTxs(spendAddr, info, bchParams)

	// Assert: one input leg net of change.
	require.Len(t, legs, 1)
	leg := legs[0]
	assert.Equal(t, spendAddr, leg.FromAddress)
	assert.Equal(t, "", leg.ToAddress)
	assert.Equal(t, "2200.00001134", leg.Value.String())
	assert.True(t, leg.Success)
}

func TestParseAddressTxsRecipient(t *testing.T) {
	// Setup
	info := &AddressInfo{Transactions: []Tx{bchSpendTx()}}

	// Act
	legs := parseAddressTxs(receiveAddr, info, bchParams)

	// Assert
	require.Len(t, legs, 1)
	leg := legs[0]
	assert.Equal(t, "", leg.FromAddress)
	assert.Equal(t, receiveAddr, leg.ToAddress)
	assert.True(t, leg.Value.Equal(decimal.RequireFromString("2200")))
}

func TestParseAddressTxsSkipsUnconfirmed(t *testing.T) {
	// Setup
	tx := bchSpendTx()
	tx.Confirmations = 0
	info := &AddressInfo{Transactions: []Tx{tx}}

	// Act
	legs := parseAddressTxs(spendAddr, info, bchParams)

	// Assert
	assert.Empty(t, legs)
}

func TestAggregateVoutsDustFloor(t *testing.T) {
	// Setup: 0.003 BCH is the floor and the comparison is strict.
	tx := bchSpendTx()
	tx.Vout = []Vout{
		{Addresses: []string{receiveAddr}, IsAddress: true, Value: "300000"},
		{Addresses: []string{receiveAddr}, IsAddress: true, Value: "300001"},
	}

	// Act
	outputs := aggregateVouts(&tx, bchParams.MinTxAmount)

	// Assert: only the output strictly above the floor survives.
	require.Len(t, outputs, 1)
	assert.Equal(t, "0.00300001", outputs[0].value.String())
}

func TestAggregateVinsSkipsNonAddressScripts(t *testing.T) {
	// Setup
	tx := bchSpendTx()
	tx.Vin = append(tx.Vin, Vin{IsAddress: false, Value: "990000000"})

	// Act
	inputs := aggregateVins(&tx, bchParams.MinTxAmount)

	// Assert: the two usable inputs collapse into one entry.
	require.Len(t, inputs, 1)
	assert.Equal(t, spendAddr, inputs[0].address)
	assert.Equal(t, "3300.05573806", inputs[0].value.String())
}

func TestParseBlockTxs(t *testing.T) {
	// Setup
	txs := []Tx{bchSpendTx()}

	// Act
	legs := parseBlockTxs(txs, bchParams)

	// Assert: the input leg carries the spend minus fee and change, the
	// output leg the recipient's amount.
	require.Len(t, legs, 2)
	spend := legs[0]
	assert.Equal(t, spendAddr, spend.FromAddress)
	assert.Equal(t, "2200", spend.Value.String())
	receive := legs[1]
	assert.Equal(t, receiveAddr, receive.ToAddress)
	assert.True(t, receive.Value.Equal(decimal.RequireFromString("2200")))
}

func TestParseBalance(t *testing.T) {
	// Setup
	info := &AddressInfo{
		Balance:            "123456789",
		UnconfirmedBalance: "-1000",
		TotalReceived:      "200000000",
		TotalSent:          "76543211",
	}

	// Act
	balance, err := parseBalance(info, spendAddr)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, spendAddr, balance.Address)
	assert.Equal(t, "1.23456789", balance.Balance.String())
	require.NotNil(t, balance.Unconfirmed)
	assert.Equal(t, "-0.00001", balance.Unconfirmed.String())
	require.NotNil(t, balance.Received)
	assert.Equal(t, "2", balance.Received.String())
}

func TestValidateStatus(t *testing.T) {
	// Setup
	healthy := &Status{
		Blockbook: &StatusBlockbook{BestHeight: 741294, InSync: true},
		Backend:   &StatusBackend{},
	}
	warning := &Status{
		Blockbook: &StatusBlockbook{BestHeight: 741294, InSync: true},
		Backend:   &StatusBackend{Warnings: "backend is lagging"},
	}

	// Act & Assert
	assert.True(t, ValidateStatus(healthy))
	assert.False(t, ValidateStatus(warning))
	assert.False(t, ValidateStatus(&Status{Blockbook: &StatusBlockbook{}}))
	assert.False(t, ValidateStatus(nil))
}
