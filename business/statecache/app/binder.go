package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/logger"
)

// Binder assembles the cache chain for a connection.
type Binder struct {
	local   LocalCache
	sources SourceFactory
	log     logger.LoggerInterface
}

// NewBinder creates a Binder. local may be nil, in which case the chain has
// no persistent tier.
func NewBinder(local LocalCache, sources SourceFactory, log logger.LoggerInterface) *Binder {
	return &Binder{local: local, sources: sources, log: log}
}

// Bind returns remote (when ready), then local, then the network source.
// remote may be nil.
func (b *Binder) Bind(ctx context.Context, conn *ledgerdomain.Connection, remote RemoteCache) (*Chain, error) {
	if conn == nil {
		return nil, apperror.New(apperror.CodeInvalidState, apperror.WithContext("bind without a ledger connection"))
	}

	source, err := b.sources.Source(conn)
	if err != nil {
		return nil, fmt.Errorf("bind network source: %w", err)
	}
	ns := namespace(conn, source.Contract())

	// A spawned dev node starts from genesis. Entries from an earlier
	// session are stale in every cache tier.
	fresh := conn.Tier() == ledgerdomain.TierLocalDev && conn.Fresh()

	var caches []Tier
	switch {
	case remote == nil || !remote.IsReady():
		b.log.Info(ctx, "remote cache tier skipped", "chain_id", ns.ChainID)
	case fresh:
		if err := remote.Purge(ctx, ns); err != nil {
			b.log.Warn(ctx, "failed to purge remote cache for fresh dev node, skipping tier", "namespace", ns.Prefix(), "error", err)
			break
		}
		b.log.Info(ctx, "remote cache purged for fresh dev node", "namespace", ns.Prefix())
		caches = append(caches, remote.Tier(ns))
	default:
		caches = append(caches, remote.Tier(ns))
	}

	if b.local != nil {
		if fresh {
			if err := b.local.Purge(ctx, ns); err != nil {
				b.log.Warn(ctx, "failed to purge local cache for fresh dev node", "namespace", ns.Prefix(), "error", err)
			} else {
				b.log.Info(ctx, "local cache purged for fresh dev node", "namespace", ns.Prefix())
			}
		}
		caches = append(caches, b.local.Tier(ns))
	}

	chain, err := NewChain(ns, caches, source, b.log)
	if err != nil {
		return nil, err
	}

	b.log.Info(ctx, "cache hierarchy bound", "tiers", fmt.Sprint(chain.Kinds()), "namespace", ns.Prefix())
	return chain, nil
}

func namespace(conn *ledgerdomain.Connection, contract common.Address) domain.Namespace {
	return domain.Namespace{ChainID: conn.ChainID().Uint64(), Contract: contract}
}
