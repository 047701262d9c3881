package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/brojonat/omniscan/service/blockbook"
	"github.com/brojonat/omniscan/service/config"
	"github.com/brojonat/omniscan/service/evm"
	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/fantom"
	"github.com/brojonat/omniscan/service/metrics"
	"github.com/brojonat/omniscan/service/solana"
	"github.com/brojonat/omniscan/service/stellar"
)

// Backends holds everything the request path needs: the capability
// registry, one orchestrator per network, and a factory for one-off
// provider overrides.
type Backends struct {
	Registry  *explorer.Registry
	Explorers map[string]*explorer.Explorer

	table  *config.NetworkTable
	httpc  *http.Client
	m      *metrics.Metrics
	logger *slog.Logger
}

// BuildBackends constructs every provider client the capability table
// references, registers them, and creates the per-network orchestrators.
// The watermark store is Redis when REDIS_URL is configured, otherwise
// in-process.
func BuildBackends(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Backends, error) {
	table, err := config.LoadNetworkTable(cfg.NetworksFile)
	if err != nil {
		return nil, err
	}

	httpc := &http.Client{Timeout: cfg.HTTPTimeout}

	var watermarks explorer.WatermarkStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		watermarks = explorer.NewRedisWatermarkStore(redis.NewClient(opts))
		logger.Info("using redis watermark store")
	} else {
		watermarks = explorer.NewMemoryWatermarkStore()
		logger.Info("using in-process watermark store")
	}

	registry := explorer.NewRegistry()

	providers, err := buildProviders(cfg, table, httpc, m, logger)
	if err != nil {
		return nil, err
	}
	for key, client := range providers {
		registry.RegisterProvider(key, client)
	}

	explorers := make(map[string]*explorer.Explorer, len(table.Networks))
	for code, entry := range table.Networks {
		registry.RegisterNetwork(code, entry.Routing())
		explorers[code] = explorer.NewExplorer(entry.Params(code), registry, watermarks, m, logger)
	}

	logger.Info("backends wired",
		"networks", len(explorers),
		"providers", len(providers),
	)

	return &Backends{
		Registry:  registry,
		Explorers: explorers,
		table:     table,
		httpc:     httpc,
		m:         m,
		logger:    logger,
	}, nil
}

// buildProviders constructs one client per provider key. Solana backends
// come from their static default set with table and environment overlays;
// everything else is declared in the table and dispatched on the key.
func buildProviders(cfg *config.Config, table *config.NetworkTable, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) (map[string]explorer.ProviderClient, error) {
	providers := make(map[string]explorer.ProviderClient)

	overrides := make(map[string]explorer.ProviderConfig)
	for key := range solana.DefaultConfigs {
		if _, ok := table.Providers[key]; ok {
			overrides[key] = table.ProviderConfig(key)
		}
	}
	applyURL := func(key, baseURL string) {
		if baseURL == "" {
			return
		}
		o := overrides[key]
		o.BaseURL = baseURL
		overrides[key] = o
	}
	applyURL(solana.ProviderQuickNodeRPC, cfg.SolanaQuickNodeURL)
	applyURL(solana.ProviderAlchemyRPC, cfg.SolanaAlchemyURL)
	applyURL(solana.ProviderShadowRPC, cfg.SolanaShadowURL)

	solContracts := networkContracts(table, "SOL")
	for key, client := range solana.NewDefaultClients(overrides, solContracts, httpc, m, logger) {
		providers[key] = client
	}

	for key := range table.Providers {
		if _, ok := providers[key]; ok {
			continue
		}
		client, err := buildTableProvider(key, table, httpc, m, logger)
		if err != nil {
			return nil, err
		}
		providers[key] = client
	}

	return providers, nil
}

func buildTableProvider(key string, table *config.NetworkTable, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) (explorer.ProviderClient, error) {
	pcfg := table.ProviderConfig(key)
	switch {
	case strings.Contains(key, "blockbook"):
		network := strings.ToUpper(strings.SplitN(key, "-", 2)[0])
		return blockbook.NewClient(key, pcfg, blockbook.NewParams(network), httpc, m, logger), nil
	case strings.HasPrefix(key, "eth-"):
		entry := table.Networks["ETH"]
		params := evm.Params{
			Network:     "ETH",
			Symbol:      entry.Symbol,
			MinTxAmount: entry.Params("ETH").MinTxAmount,
		}
		return evm.NewClient(key, pcfg, params, networkContracts(table, "ETH"), httpc, m, logger), nil
	case strings.HasPrefix(key, "ftm-"):
		return fantom.NewClient(key, pcfg, httpc, m, logger), nil
	case strings.HasPrefix(key, "xlm-"):
		return stellar.NewClient(key, pcfg, httpc, m, logger), nil
	}
	return nil, fmt.Errorf("no client implementation for provider %q", key)
}

func networkContracts(table *config.NetworkTable, code string) map[string]explorer.ContractInfo {
	entry, ok := table.Networks[code]
	if !ok {
		return nil
	}
	return entry.Contracts()
}

// OverrideClient builds a one-off provider client from a caller-supplied
// name and base URL for a single request. The caller must have validated
// the override against the registry first.
func (b *Backends) OverrideClient(network, name, baseURL string) (explorer.ProviderClient, error) {
	pcfg := explorer.ProviderConfig{Key: name, BaseURL: baseURL}
	switch network {
	case "SOL":
		return solana.NewClient(name, pcfg, networkContracts(b.table, "SOL"), b.httpc, b.m, b.logger), nil
	case "BTC", "BCH", "LTC", "DOGE":
		return blockbook.NewClient(name, pcfg, blockbook.NewParams(network), b.httpc, b.m, b.logger), nil
	case "ETH":
		entry := b.table.Networks["ETH"]
		params := evm.Params{Network: "ETH", Symbol: entry.Symbol, MinTxAmount: entry.Params("ETH").MinTxAmount}
		return evm.NewClient(name, pcfg, params, networkContracts(b.table, "ETH"), b.httpc, b.m, b.logger), nil
	case "FTM":
		return fantom.NewClient(name, pcfg, b.httpc, b.m, b.logger), nil
	case "XLM":
		return stellar.NewClient(name, pcfg, b.httpc, b.m, b.logger), nil
	}
	return nil, fmt.Errorf("%w: %s", explorer.ErrUnknownNetwork, network)
}

// TokenContract looks up a registered token by contract address on a
// network.
func (b *Backends) TokenContract(network, contract string) (explorer.ContractInfo, bool) {
	for address, info := range networkContracts(b.table, network) {
		if strings.EqualFold(address, contract) {
			return info, true
		}
	}
	return explorer.ContractInfo{}, false
}
