package solana

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/brojonat/omniscan/service/units"
)

// Precision is the native SOL precision (lamports per SOL).
const Precision int32 = 9

// Symbol is the native coin ticker.
const Symbol = "SOL"

// Well-known program addresses.
const (
	SystemProgramID             = "11111111111111111111111111111111"
	TokenProgramID              = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	ComputeBudgetProgramID      = "ComputeBudget111111111111111111111111111111"
	SysvarRecentBlockhashesID   = "SysvarRecentB1ockHashes11111111111111111111"
	MemoProgramV1ID             = "Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo"
	MemoProgramV2ID             = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	BloxrouteMemoProgramID      = "HQ2UUt18uJqKaQFJhgV9zaTdQxUZjNrsKFgoEDquBkcx"
)

// MinValidTxAmount is the floor below which a transfer is not credited,
// in SOL.
var MinValidTxAmount = decimal.RequireFromString("0.001")

const minimumRequiredAccounts = 2

var validInstructionTypes = map[string]bool{
	"transfer":        true,
	"transferChecked": true,
}

// validAccountKeyPatterns is the allow-list of trailing account key
// sequences a trusted transaction may end with. This usually covers our
// deposits; a new pattern must be added here after testing, anything else
// is rejected.
var validAccountKeyPatterns = func() []string {
	sequences := [][]string{
		{SystemProgramID},
		{SystemProgramID, MemoProgramV1ID},
		{SystemProgramID, MemoProgramV2ID},
		{SystemProgramID, ComputeBudgetProgramID},
		{SystemProgramID, ComputeBudgetProgramID, SysvarRecentBlockhashesID},
		{SystemProgramID, ComputeBudgetProgramID, BloxrouteMemoProgramID},
	}
	patterns := make([]string, len(sequences))
	for i, seq := range sequences {
		patterns[i] = strings.Join(seq, "")
	}
	return patterns
}()

// forbiddenLogs are exact log lines whose presence marks a transaction as
// DEX/AMM or burn activity rather than a simple transfer.
var forbiddenLogs = map[string]bool{
	"Program log: Instruction: Swap":        true,
	"Program log: Instruction: SwapV2":      true,
	"Program log: Instruction: BurnChecked": true,
}

func statusOK(meta *Meta) bool {
	if meta == nil || meta.Status == nil {
		return false
	}
	if _, hasErr := meta.Status["Err"]; hasErr && meta.Status["Err"] != nil && string(meta.Status["Err"]) != "null" {
		return false
	}
	_, hasOK := meta.Status["Ok"]
	return hasOK
}

// ValidateTransaction accepts a getTransaction result whose meta carries
// no error, that has at least one signature, whose fee payer is not also
// the second account (a self shuffle), and whose account key sequence
// ends in a recognized pattern.
func ValidateTransaction(tx *TransactionResult) bool {
	if tx == nil || tx.Meta == nil || tx.Transaction == nil {
		return false
	}
	if len(tx.Meta.Err) > 0 && string(tx.Meta.Err) != "null" {
		return false
	}
	if !statusOK(tx.Meta) {
		return false
	}
	keys := tx.Transaction.Message.AccountKeys
	if len(keys) < minimumRequiredAccounts {
		return false
	}
	if strings.EqualFold(keys[0].Pubkey, keys[1].Pubkey) {
		return false
	}
	if len(tx.Transaction.Signatures) == 0 {
		return false
	}
	return validateAccountKeys(keys)
}

// ValidateBlockTransaction is ValidateTransaction for the accounts-level
// getBlock shape.
func ValidateBlockTransaction(tx *BlockTransaction) bool {
	if tx == nil || tx.Meta == nil || tx.Transaction == nil {
		return false
	}
	if len(tx.Meta.Err) > 0 && string(tx.Meta.Err) != "null" {
		return false
	}
	if !statusOK(tx.Meta) {
		return false
	}
	if len(tx.Transaction.Signatures) == 0 {
		return false
	}
	keys := tx.Transaction.AccountKeys
	if len(keys) < minimumRequiredAccounts {
		return false
	}
	if strings.EqualFold(keys[0].Pubkey, keys[1].Pubkey) {
		return false
	}
	return validateAccountKeys(keys)
}

// ValidateTokenBlockTransaction gates the SPL balance-diff pass over a
// block transaction. It is looser than ValidateBlockTransaction: token
// movements do not need the native account key allow-list, the mint
// bail-out in the parser bounds what gets through.
func ValidateTokenBlockTransaction(tx *BlockTransaction) bool {
	if tx == nil || tx.Meta == nil || tx.Transaction == nil {
		return false
	}
	if len(tx.Meta.Err) > 0 && string(tx.Meta.Err) != "null" {
		return false
	}
	if !statusOK(tx.Meta) {
		return false
	}
	if len(tx.Transaction.Signatures) == 0 {
		return false
	}
	return len(tx.Transaction.AccountKeys) > 0
}

// validateAccountKeys checks the allow-list: the transaction's
// concatenated account keys must end with one of the trusted suffix
// patterns.
func validateAccountKeys(keys []AccountKey) bool {
	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(key.Pubkey)
	}
	joined := sb.String()
	for _, pattern := range validAccountKeyPatterns {
		if strings.HasSuffix(joined, pattern) {
			return true
		}
	}
	return false
}

// ValidateTransferValue accepts a raw lamport delta that converts to at
// least the minimum valid amount. The floor applies in human units so the
// asset's denomination cannot bypass it.
func ValidateTransferValue(raw int64) bool {
	if raw < 0 {
		return false
	}
	return units.FromUnit(raw, Precision).GreaterThanOrEqual(MinValidTxAmount)
}

// ValidateTransfer accepts a jsonParsed instruction that is a system
// transfer above the floor with distinct endpoints.
func ValidateTransfer(ix Instruction) bool {
	if ix.Program != "system" || ix.ProgramID != SystemProgramID {
		return false
	}
	parsed, ok := ix.ParsedTransfer()
	if !ok || !validInstructionTypes[parsed.Type] {
		return false
	}
	if parsed.Info.Lamports <= 0 {
		return false
	}
	if units.FromUnit(parsed.Info.Lamports, Precision).LessThan(MinValidTxAmount) {
		return false
	}
	if strings.EqualFold(parsed.Info.Source, parsed.Info.Destination) {
		return false
	}
	return true
}

// ValidateTokenTransaction accepts a getTransaction result that is
// structurally complete enough for SPL token balance-diff parsing.
func ValidateTokenTransaction(tx *TransactionResult) bool {
	if tx == nil || tx.Meta == nil || tx.Transaction == nil {
		return false
	}
	if tx.BlockTime == nil || tx.Slot == 0 {
		return false
	}
	if len(tx.Meta.Err) > 0 && string(tx.Meta.Err) != "null" {
		return false
	}
	if len(tx.Transaction.Signatures) == 0 {
		return false
	}
	return len(tx.Transaction.Message.Instructions) > 0
}

// ValidateInstruction accepts an spl-token transfer or transferChecked
// instruction of the canonical token program.
func ValidateInstruction(ix Instruction) bool {
	if ix.ProgramID != TokenProgramID || ix.Program != "spl-token" {
		return false
	}
	parsed, ok := ix.ParsedTransfer()
	if !ok {
		return false
	}
	return validInstructionTypes[parsed.Type]
}

// ValidateLogs rejects a transaction whose log stream contains an exact
// match for a forbidden instruction line.
func ValidateLogs(logs []string) bool {
	for _, log := range logs {
		if forbiddenLogs[log] {
			return false
		}
	}
	return true
}
