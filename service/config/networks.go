package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/brojonat/omniscan/service/explorer"
)

//go:embed networks.yaml
var defaultNetworksYAML []byte

// TokenEntry declares one non-native asset tracked on a network.
type TokenEntry struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Decimals int32  `yaml:"decimals"`
}

// OperationRouting is the ordered provider preference for one operation.
type OperationRouting struct {
	Primary      string   `yaml:"primary"`
	Alternatives []string `yaml:"alternatives"`
}

// Candidates returns the preference list, primary first.
func (r OperationRouting) Candidates() []string {
	return append([]string{r.Primary}, r.Alternatives...)
}

// NetworkEntry is the capability declaration of one network.
type NetworkEntry struct {
	Symbol           string                      `yaml:"symbol"`
	Precision        int32                       `yaml:"precision"`
	CacheKey         string                      `yaml:"cache_key"`
	HeadOffset       int64                       `yaml:"head_offset"`
	MaxBlocksPerScan int64                       `yaml:"max_blocks_per_scan"`
	MinTxAmount      string                      `yaml:"min_tx_amount"`
	Operations       map[string]OperationRouting `yaml:"operations"`
	Tokens           []TokenEntry                `yaml:"tokens"`
}

// ProviderEntry holds per-provider knobs declared in the table. Knobs the
// table does not set fall back to the provider package's defaults.
type ProviderEntry struct {
	BaseURL          string  `yaml:"base_url"`
	RateLimit        float64 `yaml:"rate_limit"`
	MaxBlocksPerCall int64   `yaml:"max_blocks_per_call"`
	GetTxsLimit      int     `yaml:"get_txs_limit"`
	MaxBlockWorkers  int     `yaml:"max_block_workers"`
}

// NetworkTable is the parsed capability table.
type NetworkTable struct {
	Networks  map[string]NetworkEntry  `yaml:"networks"`
	Providers map[string]ProviderEntry `yaml:"providers"`
}

// LoadNetworkTable parses the capability table at path, or the embedded
// default when path is empty. The table is validated before it is
// returned; registry population can then assume it is well formed.
func LoadNetworkTable(path string) (*NetworkTable, error) {
	raw := defaultNetworksYAML
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading capability table: %w", err)
		}
	}

	var table NetworkTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parsing capability table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks every network entry for unknown operations, empty
// routing, and unparseable amounts, accumulating all problems.
func (t *NetworkTable) Validate() error {
	var errs []error

	if len(t.Networks) == 0 {
		errs = append(errs, fmt.Errorf("capability table declares no networks"))
	}

	for code, entry := range t.Networks {
		if entry.Symbol == "" {
			errs = append(errs, fmt.Errorf("%s: symbol is required", code))
		}
		if entry.CacheKey == "" {
			errs = append(errs, fmt.Errorf("%s: cache_key is required", code))
		}
		if entry.Precision <= 0 {
			errs = append(errs, fmt.Errorf("%s: precision must be positive", code))
		}
		if entry.MinTxAmount != "" {
			if _, err := decimal.NewFromString(entry.MinTxAmount); err != nil {
				errs = append(errs, fmt.Errorf("%s: min_tx_amount %q: %v", code, entry.MinTxAmount, err))
			}
		}
		if len(entry.Operations) == 0 {
			errs = append(errs, fmt.Errorf("%s: no operations declared", code))
		}
		for op, routing := range entry.Operations {
			if !explorer.ValidOperation(explorer.Operation(op)) {
				errs = append(errs, fmt.Errorf("%s: unknown operation %q", code, op))
			}
			if routing.Primary == "" {
				errs = append(errs, fmt.Errorf("%s: operation %q has no primary provider", code, op))
			}
		}
		for _, token := range entry.Tokens {
			if token.Address == "" || token.Symbol == "" || token.Decimals < 0 {
				errs = append(errs, fmt.Errorf("%s: malformed token entry %+v", code, token))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("capability table validation failed: %v", errs)
	}
	return nil
}

// Params converts one network entry to the orchestrator's parameter set.
func (e NetworkEntry) Params(code string) explorer.NetworkParams {
	params := explorer.NetworkParams{
		Code:             code,
		Symbol:           e.Symbol,
		Precision:        e.Precision,
		CacheKey:         e.CacheKey,
		BlockHeadOffset:  e.HeadOffset,
		MaxBlocksPerScan: e.MaxBlocksPerScan,
	}
	if e.MinTxAmount != "" {
		params.MinTxAmount = decimal.RequireFromString(e.MinTxAmount)
	}
	return params
}

// Contracts returns the network's token declarations keyed by contract
// address.
func (e NetworkEntry) Contracts() map[string]explorer.ContractInfo {
	contracts := make(map[string]explorer.ContractInfo, len(e.Tokens))
	for _, token := range e.Tokens {
		contracts[token.Address] = explorer.ContractInfo{
			Address:  token.Address,
			Symbol:   token.Symbol,
			Decimals: token.Decimals,
		}
	}
	return contracts
}

// Routing converts the entry's operation map to the registry's form.
func (e NetworkEntry) Routing() map[explorer.Operation][]string {
	ops := make(map[explorer.Operation][]string, len(e.Operations))
	for op, routing := range e.Operations {
		ops[explorer.Operation(op)] = routing.Candidates()
	}
	return ops
}

// ProviderConfig converts one provider entry to the client knob set.
func (t *NetworkTable) ProviderConfig(key string) explorer.ProviderConfig {
	entry := t.Providers[key]
	return explorer.ProviderConfig{
		Key:              key,
		BaseURL:          entry.BaseURL,
		RateLimit:        entry.RateLimit,
		MaxBlocksPerCall: entry.MaxBlocksPerCall,
		GetTxsLimit:      entry.GetTxsLimit,
		MaxBlockWorkers:  entry.MaxBlockWorkers,
	}
}
