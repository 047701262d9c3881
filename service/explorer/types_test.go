package explorer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferTxJSONRoundTrip(t *testing.T) {
	// Setup
	date := time.Date(2023, 11, 12, 8, 15, 30, 0, time.UTC)
	original := &TransferTx{
		TxHash:        "sig1",
		BlockHeight:   Int64Ptr(1234),
		BlockHash:     StrPtr("blockhash"),
		Date:          &date,
		Success:       true,
		Confirmations: Int64Ptr(7),
		FromAddress:   "sender",
		ToAddress:     "recipient",
		Value:         decimal.RequireFromString("2200.00001134"),
		Symbol:        "BCH",
		Memo:          StrPtr("invoice-42"),
		TxFee:         DecimalPtr(decimal.RequireFromString("0.00001134")),
		Index:         IntPtr(0),
	}

	// Act
	data, err := json.Marshal(original)
	require.NoError(t, err)
	var decoded TransferTx
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Assert: decimals survive exactly and the timestamp keeps UTC second
	// precision.
	assert.True(t, original.Value.Equal(decoded.Value))
	require.NotNil(t, decoded.TxFee)
	assert.True(t, original.TxFee.Equal(*decoded.TxFee))
	require.NotNil(t, decoded.Date)
	assert.Equal(t, date, decoded.Date.UTC())
	assert.Equal(t, original.FromAddress, decoded.FromAddress)
	assert.Equal(t, int64(1234), *decoded.BlockHeight)
	assert.Equal(t, "invoice-42", *decoded.Memo)
}

func TestTransferTxJSONDecimalAsString(t *testing.T) {
	// Setup
	tx := &TransferTx{
		TxHash: "sig1",
		Value:  decimal.RequireFromString("0.000000001"),
		Symbol: "SOL",
	}

	// Act
	data, err := json.Marshal(tx)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":"0.000000001"`)
}

func TestTxDetailsNotFoundVersusFailed(t *testing.T) {
	// A failed transaction is an explicit success=false document; a missing
	// one is a nil result, and the two must stay distinguishable.
	failed := &TxDetails{Hash: "sig1", Success: false}
	data, err := json.Marshal(failed)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"success":false`)

	var missing *TxDetails
	assert.Nil(t, missing)
}
