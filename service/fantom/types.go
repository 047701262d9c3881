package fantom

// Response shapes of the Fantom xapi GraphQL schema
// (https://docs.fantom.foundation/api/graphql-schema-basics). Quantities
// are 0x-prefixed hex strings.

type accountBalanceData struct {
	Account struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
	} `json:"account"`
}

type blockHeadData struct {
	Block struct {
		Number string `json:"number"`
	} `json:"block"`
}

// GraphTx is one transaction as the schema exposes it.
type GraphTx struct {
	Hash        string `json:"hash"`
	Status      string `json:"status"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	InputData   string `json:"inputData"`
	BlockNumber string `json:"blockNumber"`
	Block       *struct {
		Timestamp string `json:"timestamp"`
	} `json:"block"`
}

type addressTxsData struct {
	Account struct {
		TxList struct {
			Edges []struct {
				Transaction GraphTx `json:"transaction"`
			} `json:"edges"`
		} `json:"txList"`
	} `json:"account"`
}

type blocksData struct {
	Blocks struct {
		Edges []struct {
			Block struct {
				Number    string    `json:"number"`
				Timestamp string    `json:"timestamp"`
				TxList    []GraphTx `json:"txList"`
			} `json:"block"`
		} `json:"edges"`
	} `json:"blocks"`
}
