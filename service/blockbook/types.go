package blockbook

// Raw response shapes of the Blockbook v2 REST API
// (https://github.com/trezor/blockbook/blob/master/docs/api.md). Amount
// fields arrive as integer strings in base units.

// Status is the /api/ info document.
type Status struct {
	Blockbook *StatusBlockbook `json:"blockbook"`
	Backend   *StatusBackend   `json:"backend"`
}

// StatusBlockbook is the indexer half of the status document.
type StatusBlockbook struct {
	BestHeight int64 `json:"bestHeight"`
	InSync     bool  `json:"inSync"`
}

// StatusBackend is the node half of the status document.
type StatusBackend struct {
	Warnings string `json:"warnings"`
}

// AddressInfo is the /api/v2/address/{address} document.
type AddressInfo struct {
	Address            string `json:"address"`
	Balance            string `json:"balance"`
	UnconfirmedBalance string `json:"unconfirmedBalance"`
	TotalReceived      string `json:"totalReceived"`
	TotalSent          string `json:"totalSent"`
	Transactions       []Tx   `json:"transactions"`
}

// Vin is one transaction input. Addresses holds zero entries for
// non-standard scripts, exactly one otherwise.
type Vin struct {
	Addresses []string `json:"addresses"`
	IsAddress bool     `json:"isAddress"`
	Value     string   `json:"value"`
}

// Vout is one transaction output.
type Vout struct {
	Addresses []string `json:"addresses"`
	IsAddress bool     `json:"isAddress"`
	Value     string   `json:"value"`
}

// Tx is one Blockbook transaction, both the /api/v2/tx/{hash} document
// and entries of address and block listings.
type Tx struct {
	Txid          string `json:"txid"`
	BlockHash     string `json:"blockHash"`
	BlockHeight   int64  `json:"blockHeight"`
	Confirmations int64  `json:"confirmations"`
	BlockTime     int64  `json:"blockTime"`
	Fees          string `json:"fees"`
	Value         string `json:"value"`
	Vin           []Vin  `json:"vin"`
	Vout          []Vout `json:"vout"`
}

// Block is the /api/v2/block/{height} document.
type Block struct {
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	Error      string `json:"error"`
	Txs        []Tx   `json:"txs"`
}
