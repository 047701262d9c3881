package explorer

import (
	"fmt"
	"net/url"
	"sort"
)

// Registry is the static lookup structure mapping network code to the
// ordered provider preference list per operation, and provider key to the
// concrete client. Populated once at process start, read-only afterwards;
// no locking is needed on the query path.
type Registry struct {
	networks  map[string]map[Operation][]string
	providers map[string]ProviderClient
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		networks:  make(map[string]map[Operation][]string),
		providers: make(map[string]ProviderClient),
	}
}

// RegisterProvider binds a provider key to its client instance.
func (r *Registry) RegisterProvider(key string, client ProviderClient) {
	r.providers[key] = client
}

// RegisterNetwork declares which provider keys serve which operations for
// a network, primary first.
func (r *Registry) RegisterNetwork(code string, ops map[Operation][]string) {
	entry := make(map[Operation][]string, len(ops))
	for op, keys := range ops {
		entry[op] = append([]string(nil), keys...)
	}
	r.networks[code] = entry
}

// Resolve returns the candidate clients for an operation on a network, in
// preference order. Provider keys with no registered client are skipped;
// an operation whose every key is unregistered resolves to
// ErrNoProviderAvailable at call time rather than here, because the
// fallback loop owns that failure.
func (r *Registry) Resolve(network string, op Operation) ([]ProviderClient, error) {
	entry, ok := r.networks[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
	keys, ok := entry[op]
	if !ok || len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedOperation, op, network)
	}
	clients := make([]ProviderClient, 0, len(keys))
	for _, key := range keys {
		if c, ok := r.providers[key]; ok {
			clients = append(clients, c)
		}
	}
	return clients, nil
}

// Networks returns the registered network codes, sorted.
func (r *Registry) Networks() []string {
	codes := make([]string, 0, len(r.networks))
	for code := range r.networks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NetworkOperations returns the operations a network supports, sorted.
func (r *Registry) NetworkOperations(network string) ([]Operation, error) {
	entry, ok := r.networks[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
	ops := make([]Operation, 0, len(entry))
	for op := range entry {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops, nil
}

// ValidateOverride checks a caller-supplied dynamic provider override (an
// explicit provider name plus base URL that bypasses the registry for one
// call). Malformed URLs and unknown networks are rejected before any
// transport call is attempted.
func (r *Registry) ValidateOverride(network, providerName, baseURL string) error {
	if _, ok := r.networks[network]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
	if providerName == "" {
		return fmt.Errorf("provider override requires a provider name")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("provider override requires a valid http(s) base URL, got %q", baseURL)
	}
	return nil
}
