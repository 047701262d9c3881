package solana

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testSender    = "9mQGzWhWrrRZkzDxVfwhYzuN8ZDrK4Fc8GBawUJDqHyy"
	testRecipient = "4rPmCvyEeTxN81NDfXQxaPCF6QSk1fBBV2z9hJBMaFmL"
)

func okMeta() *Meta {
	return &Meta{
		Err:    json.RawMessage("null"),
		Status: map[string]json.RawMessage{"Ok": json.RawMessage("null")},
	}
}

func validTxResult() *TransactionResult {
	blockTime := int64(1700000000)
	return &TransactionResult{
		Slot:      1234,
		BlockTime: &blockTime,
		Meta:      okMeta(),
		Transaction: &TxEnvelope{
			Signatures: []string{"5sig"},
			Message: Message{
				AccountKeys: []AccountKey{
					{Pubkey: testSender},
					{Pubkey: testRecipient},
					{Pubkey: SystemProgramID},
				},
			},
		},
	}
}

func TestValidateTransaction(t *testing.T) {
	// Setup
	tx := validTxResult()

	// Act & Assert
	assert.True(t, ValidateTransaction(tx))
}

func TestValidateTransactionFailedOnChain(t *testing.T) {
	// Setup
	tx := validTxResult()
	tx.Meta.Err = json.RawMessage(`{"InstructionError":[0,"Custom"]}`)

	// Act & Assert
	assert.False(t, ValidateTransaction(tx))
}

func TestValidateTransactionMissingOkStatus(t *testing.T) {
	// Setup
	tx := validTxResult()
	tx.Meta.Status = map[string]json.RawMessage{}

	// Act & Assert
	assert.False(t, ValidateTransaction(tx))
}

func TestValidateTransactionSelfShuffle(t *testing.T) {
	// Setup: the fee payer repeated as the second account.
	tx := validTxResult()
	tx.Transaction.Message.AccountKeys[1].Pubkey = testSender

	// Act & Assert
	assert.False(t, ValidateTransaction(tx))
}

func TestValidateTransactionUntrustedKeyPattern(t *testing.T) {
	// Setup: account keys ending in an unknown program.
	tx := validTxResult()
	tx.Transaction.Message.AccountKeys = []AccountKey{
		{Pubkey: testSender},
		{Pubkey: testRecipient},
		{Pubkey: TokenProgramID},
	}

	// Act & Assert
	assert.False(t, ValidateTransaction(tx))
}

func TestValidateTransactionNoSignatures(t *testing.T) {
	// Setup
	tx := validTxResult()
	tx.Transaction.Signatures = nil

	// Act & Assert
	assert.False(t, ValidateTransaction(tx))
}

func TestValidateAccountKeysTrustedSuffixes(t *testing.T) {
	cases := []struct {
		name     string
		trailing []string
		want     bool
	}{
		{"system only", []string{SystemProgramID}, true},
		{"system and memo v1", []string{SystemProgramID, MemoProgramV1ID}, true},
		{"system and memo v2", []string{SystemProgramID, MemoProgramV2ID}, true},
		{"system and compute budget", []string{SystemProgramID, ComputeBudgetProgramID}, true},
		{"compute budget and recent blockhashes", []string{SystemProgramID, ComputeBudgetProgramID, SysvarRecentBlockhashesID}, true},
		{"compute budget and bloxroute memo", []string{SystemProgramID, ComputeBudgetProgramID, BloxrouteMemoProgramID}, true},
		{"token program trailing", []string{SystemProgramID, TokenProgramID}, false},
		{"memo without system", []string{MemoProgramV2ID}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keys := []AccountKey{{Pubkey: testSender}, {Pubkey: testRecipient}}
			for _, pubkey := range tc.trailing {
				keys = append(keys, AccountKey{Pubkey: pubkey})
			}
			assert.Equal(t, tc.want, validateAccountKeys(keys))
		})
	}
}

func TestValidateTransferValue(t *testing.T) {
	// 0.001 SOL is the floor.
	assert.True(t, ValidateTransferValue(1_000_000))
	assert.True(t, ValidateTransferValue(5_000_000_000))
	assert.False(t, ValidateTransferValue(999_999))
	assert.False(t, ValidateTransferValue(0))
	assert.False(t, ValidateTransferValue(-1_000_000))
}

func transferInstruction(source, destination string, lamports int64) Instruction {
	parsed, _ := json.Marshal(map[string]any{
		"type": "transfer",
		"info": map[string]any{
			"source":      source,
			"destination": destination,
			"lamports":    lamports,
		},
	})
	return Instruction{
		Program:   "system",
		ProgramID: SystemProgramID,
		Parsed:    parsed,
	}
}

func TestValidateTransfer(t *testing.T) {
	// Setup
	ix := transferInstruction(testSender, testRecipient, 2_000_000)

	// Act & Assert
	assert.True(t, ValidateTransfer(ix))
}

func TestValidateTransferBelowFloor(t *testing.T) {
	// Setup
	ix := transferInstruction(testSender, testRecipient, 500_000)

	// Act & Assert
	assert.False(t, ValidateTransfer(ix))
}

func TestValidateTransferSameEndpoints(t *testing.T) {
	// Setup
	ix := transferInstruction(testSender, testSender, 2_000_000)

	// Act & Assert
	assert.False(t, ValidateTransfer(ix))
}

func TestValidateTransferWrongProgram(t *testing.T) {
	// Setup
	ix := transferInstruction(testSender, testRecipient, 2_000_000)
	ix.Program = "spl-token"
	ix.ProgramID = TokenProgramID

	// Act & Assert
	assert.False(t, ValidateTransfer(ix))
}

func TestValidateInstruction(t *testing.T) {
	// Setup
	parsed, _ := json.Marshal(map[string]any{
		"type": "transferChecked",
		"info": map[string]any{"amount": "100"},
	})
	ix := Instruction{Program: "spl-token", ProgramID: TokenProgramID, Parsed: parsed}

	// Act & Assert
	assert.True(t, ValidateInstruction(ix))
}

func TestValidateInstructionRejectsOtherTypes(t *testing.T) {
	// Setup
	parsed, _ := json.Marshal(map[string]any{"type": "mintTo"})
	ix := Instruction{Program: "spl-token", ProgramID: TokenProgramID, Parsed: parsed}

	// Act & Assert
	assert.False(t, ValidateInstruction(ix))
}

func TestValidateLogs(t *testing.T) {
	// Plain transfer logs pass.
	assert.True(t, ValidateLogs([]string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program 11111111111111111111111111111111 success",
	}))

	// A forbidden instruction line fails the whole transaction.
	assert.False(t, ValidateLogs([]string{
		"Program log: Instruction: Swap",
	}))
	assert.False(t, ValidateLogs([]string{
		"Program log: Instruction: SwapV2",
	}))
	assert.False(t, ValidateLogs([]string{
		"Program log: Instruction: BurnChecked",
	}))

	// The match is exact, a superstring does not trip it.
	assert.True(t, ValidateLogs([]string{
		"Program log: Instruction: SwapAndSettle",
	}))
}
