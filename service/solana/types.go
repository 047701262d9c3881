package solana

import (
	"encoding/json"
)

// Raw response shapes for the jsonParsed encoding of the Solana JSON-RPC
// API. Validators inspect these; parsers only ever see instances that
// validated, so they can destructure without defensive checks.

// AccountKey is one entry of a transaction's ordered account key list.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// UITokenAmount is the RPC's token amount triple. Amount is an integer
// string in base units.
type UITokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int32  `json:"decimals"`
}

// TokenBalance is one pre/postTokenBalances entry.
type TokenBalance struct {
	AccountIndex int           `json:"accountIndex"`
	Mint         string        `json:"mint"`
	Owner        string        `json:"owner"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// TransferInfo is the parsed info of a system or spl-token transfer
// instruction.
type TransferInfo struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    int64  `json:"lamports"`
	Amount      string `json:"amount"`
}

// ParsedTransfer is the parsed object of a transfer-shaped instruction.
type ParsedTransfer struct {
	Type string       `json:"type"`
	Info TransferInfo `json:"info"`
}

// Instruction is one jsonParsed instruction. Parsed is kept raw because
// its shape depends on the owning program: an object for system/spl-token
// transfers, a bare string for memo instructions.
type Instruction struct {
	Program   string          `json:"program"`
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
}

// ParsedTransfer decodes the instruction's parsed object as a transfer.
func (ix Instruction) ParsedTransfer() (*ParsedTransfer, bool) {
	if len(ix.Parsed) == 0 {
		return nil, false
	}
	var pt ParsedTransfer
	if err := json.Unmarshal(ix.Parsed, &pt); err != nil {
		return nil, false
	}
	return &pt, true
}

// ParsedMemo decodes the instruction's parsed field as a memo string.
func (ix Instruction) ParsedMemo() (string, bool) {
	if len(ix.Parsed) == 0 {
		return "", false
	}
	var memo string
	if err := json.Unmarshal(ix.Parsed, &memo); err != nil {
		return "", false
	}
	return memo, true
}

// Message is the jsonParsed transaction message.
type Message struct {
	AccountKeys  []AccountKey  `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}

// TxEnvelope is the transaction part of a getTransaction result.
type TxEnvelope struct {
	Message    Message  `json:"message"`
	Signatures []string `json:"signatures"`
}

// Meta is the transaction meta of getTransaction and getBlock results.
type Meta struct {
	Err               json.RawMessage            `json:"err"`
	Status            map[string]json.RawMessage `json:"status"`
	Fee               int64                      `json:"fee"`
	PreBalances       []int64                    `json:"preBalances"`
	PostBalances      []int64                    `json:"postBalances"`
	PreTokenBalances  []TokenBalance             `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance             `json:"postTokenBalances"`
	LogMessages       []string                   `json:"logMessages"`
}

// TransactionResult is a getTransaction result.
type TransactionResult struct {
	Slot        int64       `json:"slot"`
	BlockTime   *int64      `json:"blockTime"`
	Meta        *Meta       `json:"meta"`
	Transaction *TxEnvelope `json:"transaction"`
}

// BlockTxEnvelope is the transaction part of a getBlock result fetched
// with transactionDetails "accounts": account keys sit directly on the
// envelope, there is no message.
type BlockTxEnvelope struct {
	AccountKeys []AccountKey `json:"accountKeys"`
	Signatures  []string     `json:"signatures"`
}

// BlockTransaction is one transaction of a getBlock result.
type BlockTransaction struct {
	BlockTime   *int64           `json:"blockTime"`
	Meta        *Meta            `json:"meta"`
	Transaction *BlockTxEnvelope `json:"transaction"`
}

// BlockResult is a getBlock result.
type BlockResult struct {
	Blockhash    string             `json:"blockhash"`
	ParentSlot   int64              `json:"parentSlot"`
	BlockTime    *int64             `json:"blockTime"`
	Transactions []BlockTransaction `json:"transactions"`
}

// EpochInfo is a getEpochInfo result.
type EpochInfo struct {
	AbsoluteSlot int64 `json:"absoluteSlot"`
}

// SignatureEntry is one getSignaturesForAddress result entry.
type SignatureEntry struct {
	Signature string          `json:"signature"`
	Slot      int64           `json:"slot"`
	Err       json.RawMessage `json:"err"`
}

// BalanceResult is a getBalance result.
type BalanceResult struct {
	Value int64 `json:"value"`
}

// MultipleAccountsResult is a getMultipleAccounts result.
type MultipleAccountsResult struct {
	Value []*AccountInfo `json:"value"`
}

// AccountInfo is one getMultipleAccounts value entry; nil for addresses
// with no account.
type AccountInfo struct {
	Lamports int64 `json:"lamports"`
}
