// Package asset models native ledger currency amounts.
package asset

import "fmt"

// Chain IDs of the supported ledger networks.
const (
	ChainIDMainnet uint64 = 1
	ChainIDSepolia uint64 = 11155111
	ChainIDAnvil   uint64 = 31337
)

// Asset describes the native coin of one chain.
type Asset struct {
	chainID  uint64
	symbol   string
	decimals uint8
}

var natives = map[uint64]*Asset{
	ChainIDMainnet: {chainID: ChainIDMainnet, symbol: "ETH", decimals: 18},
	ChainIDSepolia: {chainID: ChainIDSepolia, symbol: "SepoliaETH", decimals: 18},
	ChainIDAnvil:   {chainID: ChainIDAnvil, symbol: "ETH", decimals: 18},
}

// Native returns the native coin of chainID. Unknown chains get an 18
// decimal coin labelled with the chain ID.
func Native(chainID uint64) *Asset {
	if a, ok := natives[chainID]; ok {
		return a
	}
	return &Asset{chainID: chainID, symbol: fmt.Sprintf("ETH(%d)", chainID), decimals: 18}
}

// ChainID returns the chain the coin lives on.
func (a *Asset) ChainID() uint64 { return a.chainID }

// Symbol returns the display ticker.
func (a *Asset) Symbol() string { return a.symbol }

// Decimals returns the number of fractional digits of the smallest unit.
func (a *Asset) Decimals() uint8 { return a.decimals }

func (a *Asset) String() string { return a.symbol }

// Equals compares two assets by chain and symbol.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.chainID == other.chainID && a.symbol == other.symbol
}
