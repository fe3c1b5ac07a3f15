// Package domain contains the contract-state cache types.
package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound is returned when a key is absent from a tier, or from every
// tier of a chain.
var ErrNotFound = errors.New("state key not found")

// TierKind identifies a tier of the cache chain.
type TierKind int

const (
	TierRemote TierKind = iota
	TierLocalPersistent
	TierNetworkSource
)

func (k TierKind) String() string {
	switch k {
	case TierRemote:
		return "remote"
	case TierLocalPersistent:
		return "local_persistent"
	case TierNetworkSource:
		return "network_source"
	default:
		return fmt.Sprintf("tier(%d)", int(k))
	}
}

// State is the remote cache connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Namespace scopes cached entries to one chain and one state contract, so
// entries from one network are never served for another.
type Namespace struct {
	ChainID  uint64
	Contract common.Address
}

// Prefix returns the common key prefix of the namespace.
func (n Namespace) Prefix() string {
	return fmt.Sprintf("state:%d:%s:", n.ChainID, n.Contract.Hex())
}

// Key returns the storage key of k within the namespace.
func (n Namespace) Key(k common.Hash) string {
	return n.Prefix() + k.Hex()
}

// KeyOf hashes a human-readable name into a state key.
func KeyOf(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}
