package nats

import (
	"time"

	"github.com/brojonat/omniscan/service/explorer"
)

// TransferEvent represents a confirmed transfer published to NATS.
// This is published to the subject "transfers.{network}" in JetStream.
type TransferEvent struct {
	// Transfer identifiers
	Network string `json:"network"`
	TxHash  string `json:"tx_hash"`

	// Endpoints. Either side may be empty for UTXO legs where only one
	// side is known.
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`

	// Amounts as exact decimal strings
	Value  string  `json:"value"`
	Symbol string  `json:"symbol"`
	Token  *string `json:"token,omitempty"`
	TxFee  *string `json:"tx_fee,omitempty"`

	// Chain position
	BlockHeight   *int64     `json:"block_height,omitempty"`
	Confirmations *int64     `json:"confirmations,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Memo          *string    `json:"memo,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromTransferTx converts a normalized transfer leg to a TransferEvent for
// publishing.
func FromTransferTx(network string, tx *explorer.TransferTx) *TransferEvent {
	event := &TransferEvent{
		Network:       network,
		TxHash:        tx.TxHash,
		FromAddress:   tx.FromAddress,
		ToAddress:     tx.ToAddress,
		Value:         tx.Value.String(),
		Symbol:        tx.Symbol,
		Token:         tx.Token,
		BlockHeight:   tx.BlockHeight,
		Confirmations: tx.Confirmations,
		Date:          tx.Date,
		Memo:          tx.Memo,
		PublishedAt:   time.Now().UTC(),
	}
	if tx.TxFee != nil {
		fee := tx.TxFee.String()
		event.TxFee = &fee
	}
	return event
}
