package app

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/logger"
)

func conn(tier ledgerdomain.NetworkTier, fresh bool) *ledgerdomain.Connection {
	return ledgerdomain.NewConnection(
		ledgerdomain.Endpoint{Tier: tier, URL: "http://node", Fresh: fresh},
		new(big.Int).SetUint64(tier.ExpectedChainID()), nil)
}

func TestBindTierOrder(t *testing.T) {
	tests := []struct {
		name   string
		remote RemoteCache
		want   []domain.TierKind
	}{
		{"ready remote", &fakeRemote{ready: true},
			[]domain.TierKind{domain.TierRemote, domain.TierLocalPersistent, domain.TierNetworkSource}},
		{"degraded remote", &fakeRemote{ready: false},
			[]domain.TierKind{domain.TierLocalPersistent, domain.TierNetworkSource}},
		{"no remote", nil,
			[]domain.TierKind{domain.TierLocalPersistent, domain.TierNetworkSource}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBinder(&fakeLocal{}, &fakeSources{source: newFakeSource()}, logger.Discard())
			chain, err := b.Bind(context.Background(), conn(ledgerdomain.TierTestnet, false), tt.remote)
			if err != nil {
				t.Fatalf("Bind: %v", err)
			}
			if got := chain.Kinds(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("tiers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBindNamespacesByChain(t *testing.T) {
	src := newFakeSource()
	src.contract = common.HexToAddress("0x01")
	b := NewBinder(&fakeLocal{}, &fakeSources{source: src}, logger.Discard())

	chain, err := b.Bind(context.Background(), conn(ledgerdomain.TierTestnet, false), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := domain.Namespace{ChainID: 11155111, Contract: src.contract}
	if chain.Namespace() != want {
		t.Fatalf("namespace = %+v, want %+v", chain.Namespace(), want)
	}
}

func TestBindPurgesOnlyFreshDevNode(t *testing.T) {
	tests := []struct {
		name   string
		conn   *ledgerdomain.Connection
		purged bool
	}{
		{"fresh dev node", conn(ledgerdomain.TierLocalDev, true), true},
		{"reused dev node", conn(ledgerdomain.TierLocalDev, false), false},
		{"testnet", conn(ledgerdomain.TierTestnet, false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := &fakeLocal{}
			b := NewBinder(local, &fakeSources{source: newFakeSource()}, logger.Discard())
			if _, err := b.Bind(context.Background(), tt.conn, nil); err != nil {
				t.Fatal(err)
			}
			if got := len(local.purged) == 1; got != tt.purged {
				t.Fatalf("purged = %v, want %v", got, tt.purged)
			}
		})
	}
}

func TestBindPurgeFailureIsTolerated(t *testing.T) {
	b := NewBinder(&fakeLocal{purgeErr: errBoom}, &fakeSources{source: newFakeSource()}, logger.Discard())
	if _, err := b.Bind(context.Background(), conn(ledgerdomain.TierLocalDev, true), nil); err != nil {
		t.Fatalf("Bind: %v", err)
	}
}

func TestBindSourceFailure(t *testing.T) {
	b := NewBinder(&fakeLocal{}, &fakeSources{err: errBoom}, logger.Discard())
	if _, err := b.Bind(context.Background(), conn(ledgerdomain.TierTestnet, false), nil); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := b.Bind(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for missing connection")
	}
}

func TestBindFreshDevNodeDropsEarlierSession(t *testing.T) {
	ctx := context.Background()
	key := domain.KeyOf("counter")
	remote := &fakeRemote{ready: true}
	local := &fakeLocal{}
	src := newFakeSource()
	b := NewBinder(local, &fakeSources{source: src}, logger.Discard())

	chain, err := b.Bind(ctx, conn(ledgerdomain.TierLocalDev, false), remote)
	if err != nil {
		t.Fatal(err)
	}
	if err := chain.Store(ctx, key, []byte("old-session")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// The restarted node has none of the earlier state.
	src.data = map[string][]byte{}

	chain, err = b.Bind(ctx, conn(ledgerdomain.TierLocalDev, true), remote)
	if err != nil {
		t.Fatal(err)
	}
	if len(remote.purged) != 1 || len(local.purged) != 1 {
		t.Fatalf("purged remote=%d local=%d, want 1 each", len(remote.purged), len(local.purged))
	}
	if got, err := chain.Lookup(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Lookup = %q, %v, want miss", got, err)
	}
}

func TestBindRemotePurgeFailureSkipsTier(t *testing.T) {
	remote := &fakeRemote{ready: true, purgeErr: errBoom}
	b := NewBinder(&fakeLocal{}, &fakeSources{source: newFakeSource()}, logger.Discard())

	chain, err := b.Bind(context.Background(), conn(ledgerdomain.TierLocalDev, true), remote)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	want := []domain.TierKind{domain.TierLocalPersistent, domain.TierNetworkSource}
	if got := chain.Kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("tiers = %v, want %v", got, want)
	}
}

func TestBindReusedNodeKeepsRemote(t *testing.T) {
	remote := &fakeRemote{ready: true}
	b := NewBinder(&fakeLocal{}, &fakeSources{source: newFakeSource()}, logger.Discard())
	if _, err := b.Bind(context.Background(), conn(ledgerdomain.TierLocalDev, false), remote); err != nil {
		t.Fatal(err)
	}
	if len(remote.purged) != 0 {
		t.Fatalf("reused node purged remote %d times", len(remote.purged))
	}
}
