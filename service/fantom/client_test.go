package fantom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphTx() GraphTx {
	return GraphTx{
		Hash:        "0xftmtx",
		Status:      "0x1",
		From:        "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		To:          "0x53d284357ec70cE289D6D64134DfAc8E511c8a3D",
		Value:       "0x1bc16d674ec80000",
		InputData:   "0x",
		BlockNumber: "0x3e8",
	}
}

func TestValidateTx(t *testing.T) {
	// Setup
	tx := graphTx()

	// Act & Assert
	assert.True(t, ValidateTx(&tx))
}

func TestValidateTxFailedStatus(t *testing.T) {
	// Setup
	tx := graphTx()
	tx.Status = "0x0"

	// Act & Assert
	assert.False(t, ValidateTx(&tx))
}

func TestValidateTxContractCall(t *testing.T) {
	// Setup
	tx := graphTx()
	tx.InputData = "0xa9059cbb"

	// Act & Assert
	assert.False(t, ValidateTx(&tx))
}

func TestParseTx(t *testing.T) {
	// Setup: 2 FTM.
	tx := graphTx()

	// Act
	leg := parseTx(&tx)

	// Assert
	require.NotNil(t, leg)
	assert.Equal(t, "0xftmtx", leg.TxHash)
	assert.Equal(t, "0x742d35cc6634c0532925a3b844bc454e4438f44e", leg.FromAddress)
	assert.Equal(t, "0x53d284357ec70ce289d6d64134dfac8e511c8a3d", leg.ToAddress)
	assert.Equal(t, "2", leg.Value.String())
	assert.Equal(t, "FTM", leg.Symbol)
	require.NotNil(t, leg.BlockHeight)
	assert.Equal(t, int64(1000), *leg.BlockHeight)
}

func TestParseTxSelfTransfer(t *testing.T) {
	// Setup: endpoints differing only by case.
	tx := graphTx()
	tx.To = "0x742D35CC6634C0532925A3B844BC454E4438F44E"

	// Act & Assert
	assert.Nil(t, parseTx(&tx))
}
