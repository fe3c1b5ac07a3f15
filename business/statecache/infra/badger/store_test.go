package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/logger"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Dir: t.TempDir()}, logger.Discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTierRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	tr := s.Tier(domain.Namespace{ChainID: 31337})
	key := domain.KeyOf("a")

	if _, err := tr.Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := tr.Put(ctx, key, []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := tr.Get(ctx, key)
	if err != nil || string(got) != "value" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if tr.Kind() != domain.TierLocalPersistent {
		t.Errorf("kind = %s", tr.Kind())
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	contract := common.HexToAddress("0x01")
	dev := s.Tier(domain.Namespace{ChainID: 31337, Contract: contract})
	test := s.Tier(domain.Namespace{ChainID: 11155111, Contract: contract})
	key := domain.KeyOf("shared")

	if err := dev.Put(ctx, key, []byte("dev")); err != nil {
		t.Fatal(err)
	}
	if _, err := test.Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("testnet namespace served a dev entry: %v", err)
	}
}

func TestPurgeDropsOnlyNamespace(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	devNS := domain.Namespace{ChainID: 31337}
	testNS := domain.Namespace{ChainID: 11155111}
	key := domain.KeyOf("k")

	if err := s.Tier(devNS).Put(ctx, key, []byte("dev")); err != nil {
		t.Fatal(err)
	}
	if err := s.Tier(testNS).Put(ctx, key, []byte("test")); err != nil {
		t.Fatal(err)
	}

	if err := s.Purge(ctx, devNS); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	if _, err := s.Tier(devNS).Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("dev entry survived purge: %v", err)
	}
	if got, err := s.Tier(testNS).Get(ctx, key); err != nil || string(got) != "test" {
		t.Errorf("testnet entry = %q, %v", got, err)
	}
}

func TestInMemoryAndClose(t *testing.T) {
	s, err := Open(Config{InMemory: true}, logger.Discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tr := s.Tier(domain.Namespace{ChainID: 1})
	if err := tr.Put(context.Background(), domain.KeyOf("x"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := tr.Get(context.Background(), domain.KeyOf("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
