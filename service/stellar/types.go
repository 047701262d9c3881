package stellar

// Response shapes of the Stellar Horizon REST API
// (https://developers.stellar.org/api/horizon). Amounts are decimal
// strings already in human units.

// AccountBalance is one entry of an account's balances list.
type AccountBalance struct {
	Balance   string `json:"balance"`
	AssetType string `json:"asset_type"`
}

// Account is the /accounts/{id} document.
type Account struct {
	AccountID string           `json:"account_id"`
	Balances  []AccountBalance `json:"balances"`
}

// Transaction is one /transactions record.
type Transaction struct {
	Hash          string `json:"hash"`
	Ledger        int64  `json:"ledger"`
	Successful    bool   `json:"successful"`
	SourceAccount string `json:"source_account"`
	Memo          string `json:"memo"`
	FeeCharged    string `json:"fee_charged"`
	CreatedAt     string `json:"created_at"`
}

// Payment is one /payments operation record.
type Payment struct {
	ID                    string `json:"id"`
	Type                  string `json:"type"`
	TransactionHash       string `json:"transaction_hash"`
	TransactionSuccessful bool   `json:"transaction_successful"`
	SourceAccount         string `json:"source_account"`
	AssetType             string `json:"asset_type"`
	AssetCode             string `json:"asset_code"`
	AssetIssuer           string `json:"asset_issuer"`
	From                  string `json:"from"`
	To                    string `json:"to"`
	Amount                string `json:"amount"`
	CreatedAt             string `json:"created_at"`
}

// Ledger is one /ledgers record.
type Ledger struct {
	Sequence int64 `json:"sequence"`
}

// embedded is Horizon's HAL collection wrapper.
type embedded[T any] struct {
	Embedded struct {
		Records []T `json:"records"`
	} `json:"_embedded"`
}
