package subgraph

import "fmt"

// StudioEndpoint is the published Studio deployment, selected with network "studio".
const StudioEndpoint = "https://api.studio.thegraph.com/query/1714807/panda-skiing-one-on-one-call/version/latest"

// Endpoints lists the per-network deployments of the progressive-deposit subgraph.
var Endpoints = map[string]string{
	"local":      "http://localhost:8020/subgraphs/name/progressive-deposit",
	"bsc":        "https://api.studio.thegraph.com/query/progressive-deposit/progressive-deposit/version/latest",
	"bscTestnet": "https://api.studio.thegraph.com/query/progressive-deposit/progressive-deposit-testnet/version/latest",
	"studio":     StudioEndpoint,
}

// ResolveEndpoint returns override when set, otherwise the deployment for
// network. An empty network means "local".
func ResolveEndpoint(network, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if network == "" {
		network = "local"
	}
	ep, ok := Endpoints[network]
	if !ok {
		return "", fmt.Errorf("unknown subgraph network %q", network)
	}
	return ep, nil
}
