package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/logger"
)

const meterName = "statecache"

// Chain is an ordered list of tiers ending in the network source. It is
// safe for concurrent use when its tiers are.
type Chain struct {
	ns     domain.Namespace
	tiers  []Tier
	source NetworkSource
	log    logger.LoggerInterface

	lookups metric.Int64Counter
}

// NewChain builds a chain of caches, in probe order, ending in source.
func NewChain(ns domain.Namespace, caches []Tier, source NetworkSource, log logger.LoggerInterface) (*Chain, error) {
	lookups, err := otel.Meter(meterName).Int64Counter(
		"statecache_lookups_total",
		metric.WithDescription("Chain lookups by answering tier"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	tiers := make([]Tier, 0, len(caches)+1)
	tiers = append(tiers, caches...)
	tiers = append(tiers, source)

	return &Chain{ns: ns, tiers: tiers, source: source, log: log, lookups: lookups}, nil
}

// Namespace returns the namespace every tier is keyed by.
func (c *Chain) Namespace() domain.Namespace { return c.ns }

// Kinds returns the tier order.
func (c *Chain) Kinds() []domain.TierKind {
	kinds := make([]domain.TierKind, len(c.tiers))
	for i, t := range c.tiers {
		kinds[i] = t.Kind()
	}
	return kinds
}

// Source returns the network source tier.
func (c *Chain) Source() NetworkSource { return c.source }

// Lookup probes the tiers in order and returns the first hit. Cache tier
// errors count as misses. A hit below the first tier is copied into the
// cache tiers above it.
func (c *Chain) Lookup(ctx context.Context, key common.Hash) ([]byte, error) {
	for i, t := range c.tiers {
		value, err := t.Get(ctx, key)
		if err == nil {
			c.record(ctx, t.Kind(), "hit")
			c.backfill(ctx, c.tiers[:i], key, value)
			return value, nil
		}

		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if t.Kind() == domain.TierNetworkSource {
			c.record(ctx, t.Kind(), "error")
			return nil, err
		}
		c.log.Debug(ctx, "cache tier failed, treating as miss", "tier", t.Kind(), "key", key.Hex(), "error", err)
	}

	c.record(ctx, domain.TierNetworkSource, "miss")
	return nil, domain.ErrNotFound
}

// Store writes to the network source and then to every cache tier. Only the
// network source error is returned.
func (c *Chain) Store(ctx context.Context, key common.Hash, value []byte) error {
	if err := c.source.Put(ctx, key, value); err != nil {
		return err
	}

	for _, t := range c.tiers[:len(c.tiers)-1] {
		if err := t.Put(ctx, key, value); err != nil {
			c.log.Warn(ctx, "cache tier write failed", "tier", t.Kind(), "key", key.Hex(), "error", err)
		}
	}
	return nil
}

func (c *Chain) backfill(ctx context.Context, above []Tier, key common.Hash, value []byte) {
	for _, t := range above {
		if err := t.Put(ctx, key, value); err != nil {
			c.log.Debug(ctx, "cache backfill failed", "tier", t.Kind(), "key", key.Hex(), "error", err)
		}
	}
}

func (c *Chain) record(ctx context.Context, tier domain.TierKind, result string) {
	c.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier.String()),
		attribute.String("result", result),
	))
}
