// Package app sequences the bootstrap of the ledger connection, the cache
// chain and the signing identity.
package app

import (
	"context"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	statecacheapp "github.com/context0/memory-ledger/business/statecache/app"
	statecachedomain "github.com/context0/memory-ledger/business/statecache/domain"
	walletdomain "github.com/context0/memory-ledger/business/wallet/domain"
	"github.com/context0/memory-ledger/internal/asset"
)

// NetworkSelector picks and dials the ledger tier.
type NetworkSelector interface {
	Select(ctx context.Context, env ledgerdomain.Environment) (*ledgerdomain.Connection, error)
	Close() error
}

// RemoteCacheConnector is the optional remote cache.
type RemoteCacheConnector interface {
	statecacheapp.RemoteCache
	Connect(ctx context.Context) statecachedomain.State
	State() statecachedomain.State
	Close() error
}

// CacheBinder builds the cache chain over a connection.
type CacheBinder interface {
	Bind(ctx context.Context, conn *ledgerdomain.Connection, remote statecacheapp.RemoteCache) (*statecacheapp.Chain, error)
}

// WalletProvider resolves the signing identity.
type WalletProvider interface {
	Preflight() error
	Resolve(ctx context.Context) (*walletdomain.Record, error)
}

// WalletFunder credits the dev wallet.
type WalletFunder interface {
	Fund(ctx context.Context, conn *ledgerdomain.Connection, rec *walletdomain.Record) (asset.Amount, error)
}
