package contract

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/cache"
	"github.com/context0/memory-ledger/internal/circuitbreaker"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/ratelimit"
)

var testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeKV answers get(bytes32) from a map, the way the deployed contract does.
type fakeKV struct {
	mu       sync.Mutex
	code     []byte
	values   map[common.Hash][]byte
	codeAts  int
	callErr  error
	lastCall ethereum.CallMsg
}

func (f *fakeKV) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeAts++
	return f.code, nil
}

func (f *fakeKV) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCall = call
	if f.callErr != nil {
		return nil, f.callErr
	}

	args, err := kvABI.Methods["get"].Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	key := common.Hash(args[0].([32]byte))
	return kvABI.Methods["get"].Outputs.Pack(f.values[key])
}

func newTestSource(t *testing.T, kv *fakeKV) *Source {
	return newSource(t, kv, nil, ratelimit.New(0))
}

func newSource(t *testing.T, kv *fakeKV, w Writer, limiter *ratelimit.Limiter) *Source {
	t.Helper()
	checks := cache.New[string, bool](0)
	t.Cleanup(checks.Close)

	bc := circuitbreaker.DefaultConfig("test")
	bc.ConsecutiveFailures = 2
	return New(Config{
		Contract:     testContract,
		ChainID:      big.NewInt(31337),
		CallTimeout:  time.Second,
		CodeCheckTTL: time.Minute,
		MineTimeout:  5 * time.Second,
	}, kv, w, limiter, circuitbreaker.New[[]byte](bc), checks, logger.Discard())
}

func TestGet(t *testing.T) {
	key := domain.KeyOf("present")
	kv := &fakeKV{code: []byte{0x60}, values: map[common.Hash][]byte{key: []byte("hello")}}
	s := newTestSource(t, kv)
	ctx := context.Background()

	got, err := s.Get(ctx, key)
	if err != nil || string(got) != "hello" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if *kv.lastCall.To != testContract {
		t.Errorf("called %s", kv.lastCall.To.Hex())
	}

	if _, err := s.Get(ctx, domain.KeyOf("absent")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}
	if kv.codeAts != 1 {
		t.Errorf("code check ran %d times, want 1", kv.codeAts)
	}
}

func TestGetNotDeployed(t *testing.T) {
	s := newTestSource(t, &fakeKV{})
	_, err := s.Get(context.Background(), domain.KeyOf("k"))
	if !apperror.HasCode(err, apperror.CodeContractNotDeployed) {
		t.Fatalf("expected not deployed, got %v", err)
	}
}

func TestGetBreakerOpens(t *testing.T) {
	kv := &fakeKV{code: []byte{0x60}, callErr: errors.New("connection reset")}
	s := newTestSource(t, kv)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.Get(ctx, domain.KeyOf("k")); !apperror.HasCode(err, apperror.CodeContractCallFailed) {
			t.Fatalf("call %d: expected call failure, got %v", i, err)
		}
	}
	if _, err := s.Get(ctx, domain.KeyOf("k")); !apperror.HasCode(err, apperror.CodeCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestPutWithoutSigner(t *testing.T) {
	s := newTestSource(t, &fakeKV{code: []byte{0x60}})
	err := s.Put(context.Background(), domain.KeyOf("k"), []byte("v"))
	if !apperror.HasCode(err, apperror.CodeSignerUnavailable) {
		t.Fatalf("expected signer unavailable, got %v", err)
	}
}
