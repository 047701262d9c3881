package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/nats"
	"github.com/brojonat/omniscan/service/units"
)

const maxBatchAddresses = 50

type networkResponse struct {
	Network    string   `json:"network"`
	Operations []string `json:"operations"`
}

type txDetailsResponse struct {
	Hash      string                 `json:"hash"`
	Success   bool                   `json:"success"`
	Transfers []*explorer.TransferTx `json:"transfers"`
}

// handleListNetworks returns a handler that lists every configured network
// and the operations it supports.
// GET /api/v1/networks
func handleListNetworks(backends *Backends, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		codes := backends.Registry.Networks()
		resp := make([]networkResponse, 0, len(codes))
		for _, code := range codes {
			ops, err := backends.Registry.NetworkOperations(code)
			if err != nil {
				continue
			}
			names := make([]string, len(ops))
			for i, op := range ops {
				names[i] = string(op)
			}
			resp = append(resp, networkResponse{Network: code, Operations: names})
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

// resolveExplorer looks up the orchestrator for the request's network path
// segment. A miss writes the error response and returns nil.
func resolveExplorer(backends *Backends, w http.ResponseWriter, r *http.Request, logger *slog.Logger) *explorer.Explorer {
	network := strings.ToUpper(r.PathValue("network"))
	ex, ok := backends.Explorers[network]
	if !ok {
		logger.Debug("unknown network requested", "network", network)
		writeError(w, "unknown network: "+network, http.StatusBadRequest)
		return nil
	}
	return ex
}

// overrideClient builds the one-off provider client when the request
// carries provider override parameters. Returns (nil, false) when the
// override is absent or handled (on error the response is written).
func overrideClient(backends *Backends, w http.ResponseWriter, r *http.Request, logger *slog.Logger) (explorer.ProviderClient, bool, bool) {
	name := r.URL.Query().Get("provider")
	baseURL := r.URL.Query().Get("provider_url")
	if name == "" && baseURL == "" {
		return nil, false, true
	}

	network := strings.ToUpper(r.PathValue("network"))
	if err := backends.Registry.ValidateOverride(network, name, baseURL); err != nil {
		logger.Debug("rejected provider override", "network", network, "provider", name, "error", err)
		writeError(w, err.Error(), http.StatusBadRequest)
		return nil, false, false
	}
	client, err := backends.OverrideClient(network, name, baseURL)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return nil, false, false
	}
	return client, true, true
}

// handleGetBalance returns a handler that fetches one address balance.
// GET /api/v1/{network}/balance/{address}
func handleGetBalance(backends *Backends, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := resolveExplorer(backends, w, r, logger)
		if ex == nil {
			return
		}
		address := r.PathValue("address")

		client, overridden, ok := overrideClient(backends, w, r, logger)
		if !ok {
			return
		}

		var balance *explorer.Balance
		var err error
		if overridden {
			balance, err = client.GetBalance(r.Context(), address)
		} else {
			balance, err = ex.GetBalance(r.Context(), address)
		}
		if err != nil {
			writeTaxonomyError(w, logger, err)
			return
		}
		writeJSON(w, balance, http.StatusOK)
	})
}

// handleGetBalances returns a handler that fetches several balances in one
// call.
// GET /api/v1/{network}/balances?addresses=a,b,c
func handleGetBalances(backends *Backends, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := resolveExplorer(backends, w, r, logger)
		if ex == nil {
			return
		}

		raw := r.URL.Query().Get("addresses")
		if raw == "" {
			writeError(w, "addresses query parameter is required", http.StatusBadRequest)
			return
		}
		addresses := strings.Split(raw, ",")
		if len(addresses) > maxBatchAddresses {
			writeError(w, "too many addresses in one batch", http.StatusBadRequest)
			return
		}

		balances, err := ex.GetBalances(r.Context(), addresses)
		if err != nil {
			writeTaxonomyError(w, logger, err)
			return
		}
		writeJSON(w, balances, http.StatusOK)
	})
}

// handleGetAddressTxs returns a handler that lists the recent normalized
// transfers touching an address.
// GET /api/v1/{network}/txs/{address}
func handleGetAddressTxs(backends *Backends, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := resolveExplorer(backends, w, r, logger)
		if ex == nil {
			return
		}
		address := r.PathValue("address")

		client, overridden, ok := overrideClient(backends, w, r, logger)
		if !ok {
			return
		}

		var txs []*explorer.TransferTx
		var err error
		if overridden {
			txs, err = client.GetAddressTxs(r.Context(), address)
		} else {
			txs, err = ex.GetAddressTxs(r.Context(), address)
		}
		if err != nil {
			writeTaxonomyError(w, logger, err)
			return
		}
		if txs == nil {
			txs = []*explorer.TransferTx{}
		}
		writeJSON(w, txs, http.StatusOK)
	})
}

// handleGetTxDetails returns a handler that fetches one transaction's
// normalized transfers. An unknown hash yields 200 with an empty transfer
// list; a transaction that failed on chain yields success=false.
// GET /api/v1/{network}/tx/{hash}?token=true
func handleGetTxDetails(backends *Backends, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := resolveExplorer(backends, w, r, logger)
		if ex == nil {
			return
		}
		hash := r.PathValue("hash")
		token := r.URL.Query().Get("token") == "true"

		var details *explorer.TxDetails
		var err error
		if token {
			details, err = ex.GetTokenTxDetails(r.Context(), hash)
		} else {
			details, err = ex.GetTxDetails(r.Context(), hash)
		}
		if err != nil {
			writeTaxonomyError(w, logger, err)
			return
		}

		resp := txDetailsResponse{Hash: hash, Transfers: []*explorer.TransferTx{}}
		if details != nil {
			resp.Hash = details.Hash
			resp.Success = details.Success
			if details.Transfers != nil {
				resp.Transfers = details.Transfers
			}
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleGetTokenTxs returns a handler that lists token transfers for an
// address and contract.
// GET /api/v1/{network}/token-txs/{address}?contract=0x...
func handleGetTokenTxs(backends *Backends, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := resolveExplorer(backends, w, r, logger)
		if ex == nil {
			return
		}
		address := r.PathValue("address")
		contract := r.URL.Query().Get("contract")
		if contract == "" {
			writeError(w, "contract query parameter is required", http.StatusBadRequest)
			return
		}

		network := strings.ToUpper(r.PathValue("network"))
		info, ok := backends.TokenContract(network, contract)
		if !ok {
			writeError(w, "unknown token contract: "+contract, http.StatusBadRequest)
			return
		}

		txs, err := ex.GetTokenTxs(r.Context(), address, info)
		if err != nil {
			writeTaxonomyError(w, logger, err)
			return
		}
		if txs == nil {
			txs = []*explorer.TransferTx{}
		}
		writeJSON(w, txs, http.StatusOK)
	})
}

// handleScanBlocks returns a handler that advances the network's block
// scan and returns the transfers found. Scanned transfers are also
// published to JetStream when a publisher is configured.
// GET /api/v1/{network}/blocks
func handleScanBlocks(backends *Backends, publisher nats.Publisher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := resolveExplorer(backends, w, r, logger)
		if ex == nil {
			return
		}

		result, err := ex.ScanBlocks(r.Context())
		if err != nil {
			writeTaxonomyError(w, logger, err)
			return
		}

		if publisher != nil && len(result.Transfers) > 0 {
			network := ex.Params().Code
			events := make([]*nats.TransferEvent, 0, len(result.Transfers))
			for _, tx := range result.Transfers {
				events = append(events, nats.FromTransferTx(network, tx))
			}
			if err := publisher.PublishTransferBatch(r.Context(), events); err != nil {
				logger.Error("failed to publish scanned transfers",
					"network", network,
					"count", len(events),
					"error", err,
				)
			}
		}

		writeJSON(w, result, http.StatusOK)
	})
}

// writeTaxonomyError maps an aggregation error to its HTTP status.
func writeTaxonomyError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, explorer.ErrUnknownNetwork),
		errors.Is(err, explorer.ErrUnsupportedOperation):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, explorer.ErrNoProviderAvailable):
		writeError(w, err.Error(), http.StatusServiceUnavailable)
	case explorer.IsRecoverable(err):
		// Only override calls reach here: a single provider failed with no
		// fallback list to absorb it.
		writeError(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, units.ErrInvalidAmount):
		logger.Error("amount conversion failed", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error message as a JSON response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
