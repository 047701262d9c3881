package evm

// Raw JSON-RPC shapes of the Ethereum-style execution API. Quantities are
// 0x-prefixed hex strings.

// Block is an eth_getBlockByNumber result with full transaction objects.
type Block struct {
	Number       string `json:"number"`
	Hash         string `json:"hash"`
	Timestamp    string `json:"timestamp"`
	Transactions []Tx   `json:"transactions"`
}

// Tx is one transaction object.
type Tx struct {
	Hash        string `json:"hash"`
	BlockNumber string `json:"blockNumber"`
	BlockHash   string `json:"blockHash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Input       string `json:"input"`
	GasPrice    string `json:"gasPrice"`
}

// Receipt is an eth_getTransactionReceipt result.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	GasUsed         string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
	Logs            []Log  `json:"logs"`
}

// Log is one event log entry.
type Log struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	TxHash      string   `json:"transactionHash"`
	Removed     bool     `json:"removed"`
}
