// Package app contains the cache chain, the binder and port definitions for
// the statecache context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/statecache/domain"
)

// Tier is one level of the cache chain.
type Tier interface {
	Kind() domain.TierKind
	// Get returns domain.ErrNotFound when key is absent.
	Get(ctx context.Context, key common.Hash) ([]byte, error)
	Put(ctx context.Context, key common.Hash, value []byte) error
}

// RemoteCache is the remote cache connector as seen by the binder.
type RemoteCache interface {
	IsReady() bool
	Tier(ns domain.Namespace) Tier
	// Purge drops every entry of ns.
	Purge(ctx context.Context, ns domain.Namespace) error
}

// LocalCache is the on-disk cache shared by all namespaces.
type LocalCache interface {
	Tier(ns domain.Namespace) Tier
	// Purge drops every entry of ns.
	Purge(ctx context.Context, ns domain.Namespace) error
}

// Signer produces transaction options for a chain.
type Signer interface {
	Transactor(chainID *big.Int) (*bind.TransactOpts, error)
}

// NetworkSource is the ledger-backed tier. Writes need a signer.
type NetworkSource interface {
	Tier
	Contract() common.Address
	UseSigner(s Signer)
}

// SourceFactory binds a NetworkSource to a connection.
type SourceFactory interface {
	Source(conn *ledgerdomain.Connection) (NetworkSource, error)
}
