package chains

import (
	"fmt"
	"strings"
)

// Chain describes one of the networks the marketplace is deployed on.
type Chain struct {
	ID     uint64
	Name   string
	RPCURL string
}

// The testnets the marketplace contracts are deployed to. RPC URLs are
// defaults only and can be overridden per chain in configuration.
var (
	Ethereum = Chain{ID: 11155111, Name: "Ethereum Sepolia", RPCURL: "https://rpc.sepolia.org"}
	Arbitrum = Chain{ID: 421614, Name: "Arbitrum Sepolia", RPCURL: "https://sepolia-rollup.arbitrum.io/rpc"}
	Base     = Chain{ID: 84532, Name: "Base Sepolia", RPCURL: "https://sepolia.base.org"}
	Optimism = Chain{ID: 11155420, Name: "Optimism Sepolia", RPCURL: "https://sepolia.optimism.io"}
	Polygon  = Chain{ID: 80002, Name: "Polygon Amoy", RPCURL: "https://rpc-amoy.polygon.technology"}
	Blast    = Chain{ID: 168587773, Name: "Blast Sepolia", RPCURL: "https://sepolia.blast.io"}
)

// All lists every supported chain.
var All = []Chain{Ethereum, Arbitrum, Base, Optimism, Polygon, Blast}

var byID = func() map[uint64]Chain {
	m := make(map[uint64]Chain, len(All))
	for _, c := range All {
		m[c.ID] = c
	}
	return m
}()

// ByID looks up a supported chain by its chain ID.
func ByID(id uint64) (Chain, error) {
	c, ok := byID[id]
	if !ok {
		return Chain{}, fmt.Errorf("chain %d is not supported", id)
	}
	return c, nil
}

// ByName looks up a supported chain by name, case-insensitively. Partial
// prefixes like "base" or "polygon" resolve to their testnet entry.
func ByName(name string) (Chain, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range All {
		if strings.ToLower(c.Name) == name || strings.HasPrefix(strings.ToLower(c.Name), name) {
			return c, nil
		}
	}
	return Chain{}, fmt.Errorf("chain '%s' is not supported", name)
}

// Supported reports whether the chain ID belongs to a deployed network.
func Supported(id uint64) bool {
	_, ok := byID[id]
	return ok
}
