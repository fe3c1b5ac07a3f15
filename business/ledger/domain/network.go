// Package domain contains the core domain types for the ledger context.
package domain

import (
	"strings"

	"github.com/context0/memory-ledger/internal/asset"
)

// Environment selects the wallet and network policies. It is read once at
// startup and never changes.
type Environment int

const (
	Development Environment = iota
	Production
)

// ParseEnvironment maps the configured value. Only the trimmed value
// "production" selects Production.
func ParseEnvironment(s string) Environment {
	if strings.TrimSpace(s) == "production" {
		return Production
	}
	return Development
}

func (e Environment) String() string {
	if e == Production {
		return "production"
	}
	return "development"
}

// NetworkTier identifies one of the ledger networks.
type NetworkTier string

const (
	TierMainnet  NetworkTier = "mainnet"
	TierLocalDev NetworkTier = "localdev"
	TierTestnet  NetworkTier = "testnet"
)

// ExpectedChainID returns the chain ID a node of this tier must report.
func (t NetworkTier) ExpectedChainID() uint64 {
	switch t {
	case TierMainnet:
		return asset.ChainIDMainnet
	case TierLocalDev:
		return asset.ChainIDAnvil
	case TierTestnet:
		return asset.ChainIDSepolia
	default:
		return 0
	}
}

func (t NetworkTier) String() string {
	return string(t)
}
