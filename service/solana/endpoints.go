package solana

import (
	"log/slog"
	"net/http"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/metrics"
)

// Provider names as the capability table references them.
const (
	ProviderMainRPC      = "sol-main-rpc"
	ProviderSerumRPC     = "sol-serum-rpc"
	ProviderAnkrRPC      = "sol-ankr-rpc"
	ProviderQuickNodeRPC = "sol-quicknode-rpc"
	ProviderAlchemyRPC   = "sol-alchemy-rpc"
	ProviderShadowRPC    = "sol-shadow-rpc"
)

// DefaultConfigs holds the static knobs of every known Solana backend.
// Key-gated endpoints (quicknode, alchemy, shadow) leave BaseURL empty;
// the backend is skipped unless configuration supplies the URL.
var DefaultConfigs = map[string]explorer.ProviderConfig{
	ProviderMainRPC: {
		BaseURL:          "https://api.mainnet-beta.solana.com",
		RateLimit:        0.1,
		MaxBlocksPerCall: 1,
		GetTxsLimit:      1,
		UseProxy:         true,
	},
	ProviderSerumRPC: {
		BaseURL:          "https://solana-api.projectserum.com",
		MaxBlocksPerCall: 9,
		GetTxsLimit:      25,
	},
	ProviderAnkrRPC: {
		BaseURL:          "https://rpc.ankr.com/solana",
		RateLimit:        0.05,
		MaxBlocksPerCall: 10,
		GetTxsLimit:      20,
	},
	ProviderQuickNodeRPC: {
		MaxBlocksPerCall: 60,
		GetTxsLimit:      20,
		MaxBlockWorkers:  10,
	},
	ProviderAlchemyRPC: {
		MaxBlocksPerCall: 7,
		GetTxsLimit:      35,
	},
	ProviderShadowRPC: {
		MaxBlocksPerCall: 30,
		GetTxsLimit:      25,
	},
}

// NewDefaultClients builds a client per known backend, applying overrides
// on top of the defaults. Backends that still have no base URL after
// overriding (key-gated endpoints with no key configured) are skipped.
func NewDefaultClients(overrides map[string]explorer.ProviderConfig, contracts map[string]explorer.ContractInfo, httpc *http.Client, m *metrics.Metrics, logger *slog.Logger) map[string]*Client {
	clients := make(map[string]*Client, len(DefaultConfigs))
	for name, cfg := range DefaultConfigs {
		if override, ok := overrides[name]; ok {
			cfg = mergeConfig(cfg, override)
		}
		if cfg.BaseURL == "" {
			logger.Warn("skipping solana backend with no base url", "provider", name)
			continue
		}
		clients[name] = NewClient(name, cfg, contracts, httpc, m, logger)
	}
	return clients
}

// mergeConfig overlays the non-zero fields of override on base.
func mergeConfig(base, override explorer.ProviderConfig) explorer.ProviderConfig {
	if override.Key != "" {
		base.Key = override.Key
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.RateLimit > 0 {
		base.RateLimit = override.RateLimit
	}
	if override.MaxBlocksPerCall > 0 {
		base.MaxBlocksPerCall = override.MaxBlocksPerCall
	}
	if override.GetTxsLimit > 0 {
		base.GetTxsLimit = override.GetTxsLimit
	}
	if override.MaxBlockWorkers > 0 {
		base.MaxBlockWorkers = override.MaxBlockWorkers
	}
	if override.UseProxy {
		base.UseProxy = true
	}
	return base
}
