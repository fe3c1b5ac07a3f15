package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/context0/memory-ledger/business/statecache/app"
	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/cache"
	"github.com/context0/memory-ledger/internal/circuitbreaker"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/ratelimit"
)

const tracerName = "statecache.contract"

// Writer is what writes need beyond reads.
type Writer interface {
	bind.ContractTransactor
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Config configures a Source.
type Config struct {
	Contract     common.Address
	ChainID      *big.Int
	CallTimeout  time.Duration
	CodeCheckTTL time.Duration
	MineTimeout  time.Duration
}

type signerBox struct{ signer app.Signer }

// Source reads and writes state through the contract. Reads need no signer.
type Source struct {
	cfg     Config
	caller  bind.ContractCaller
	writer  Writer
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[[]byte]
	checks  *cache.Cache[string, bool]
	log     logger.LoggerInterface
	tracer  trace.Tracer

	signer atomic.Pointer[signerBox]
}

// New creates a Source. writer may be nil for a read-only source.
func New(cfg Config, caller bind.ContractCaller, writer Writer, limiter *ratelimit.Limiter,
	breaker *circuitbreaker.CircuitBreaker[[]byte], checks *cache.Cache[string, bool], log logger.LoggerInterface) *Source {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.MineTimeout <= 0 {
		cfg.MineTimeout = 2 * time.Minute
	}
	return &Source{
		cfg:     cfg,
		caller:  caller,
		writer:  writer,
		limiter: limiter,
		breaker: breaker,
		checks:  checks,
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}
}

func (s *Source) Kind() domain.TierKind { return domain.TierNetworkSource }

// Contract returns the state contract address.
func (s *Source) Contract() common.Address { return s.cfg.Contract }

// UseSigner attaches the identity used for writes.
func (s *Source) UseSigner(signer app.Signer) {
	s.signer.Store(&signerBox{signer: signer})
}

// Get calls get(key). An empty value is a miss.
func (s *Source) Get(ctx context.Context, key common.Hash) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "statecache.contract.get",
		trace.WithAttributes(attribute.String("key", key.Hex())))
	defer span.End()

	if err := s.ensureDeployed(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	input, err := kvABI.Pack("get", [32]byte(key))
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	out, err := s.breaker.Execute(func() ([]byte, error) {
		to := s.cfg.Contract
		return s.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, s.callError(err, "get")
	}

	values, err := kvABI.Unpack("get", out)
	if err != nil || len(values) != 1 {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err), apperror.WithContext("decode get result"))
	}
	value, ok := values[0].([]byte)
	if !ok {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("unexpected get result %T", values[0])))
	}
	if len(value) == 0 {
		return nil, domain.ErrNotFound
	}
	return value, nil
}

// Put sends put(key, value) and waits for the receipt.
func (s *Source) Put(ctx context.Context, key common.Hash, value []byte) error {
	box := s.signer.Load()
	if box == nil || s.writer == nil {
		return apperror.New(apperror.CodeSignerUnavailable, apperror.WithContext("state writes need a wallet"))
	}

	ctx, span := s.tracer.Start(ctx, "statecache.contract.put",
		trace.WithAttributes(attribute.String("key", key.Hex()), attribute.Int("size", len(value))))
	defer span.End()

	if err := s.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	if err := s.ensureDeployed(callCtx); err != nil {
		return err
	}

	opts, err := box.signer.Transactor(s.cfg.ChainID)
	if err != nil {
		return apperror.New(apperror.CodeSignerUnavailable, apperror.WithCause(err))
	}
	opts.Context = callCtx

	bound := bind.NewBoundContract(s.cfg.Contract, kvABI, s.caller, s.writer, nil)
	tx, err := bound.Transact(opts, "put", [32]byte(key), value)
	if err != nil {
		span.RecordError(err)
		return s.callError(err, "put")
	}
	span.SetAttributes(attribute.String("tx", tx.Hash().Hex()))

	receipt, err := s.waitMined(ctx, tx.Hash())
	if err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err), apperror.WithContext("wait for "+tx.Hash().Hex()))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		span.SetStatus(codes.Error, "reverted")
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("put reverted in tx %s", tx.Hash().Hex())))
	}

	s.log.Debug(ctx, "state written", "key", key.Hex(), "tx", tx.Hash().Hex(), "gas_used", receipt.GasUsed)
	return nil
}

func (s *Source) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxInterval = 2 * time.Second

	return backoff.Retry(ctx, func() (*types.Receipt, error) {
		receipt, err := s.writer.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return receipt, nil
	}, backoff.WithBackOff(eb), backoff.WithMaxElapsedTime(s.cfg.MineTimeout))
}

// ensureDeployed checks for contract code once per code-check TTL.
func (s *Source) ensureDeployed(ctx context.Context) error {
	if s.cfg.Contract == (common.Address{}) {
		return apperror.New(apperror.CodeContractNotDeployed, apperror.WithContext("no state contract configured"))
	}

	cacheKey := fmt.Sprintf("%s:%s", s.cfg.ChainID, s.cfg.Contract.Hex())
	if ok, hit := s.checks.Get(ctx, cacheKey); hit && ok {
		return nil
	}

	code, err := s.caller.CodeAt(ctx, s.cfg.Contract, nil)
	if err != nil {
		return apperror.New(apperror.CodeLedgerRPCError, apperror.WithCause(err), apperror.WithContext("code check"))
	}
	if len(code) == 0 {
		return apperror.New(apperror.CodeContractNotDeployed, apperror.WithContext(s.cfg.Contract.Hex()))
	}

	s.checks.Set(ctx, cacheKey, true, s.cfg.CodeCheckTTL)
	return nil
}

func (s *Source) callError(err error, method string) error {
	if circuitbreaker.IsOpen(err) {
		return apperror.New(apperror.CodeCircuitOpen, apperror.WithCause(err), apperror.WithContext("state contract"))
	}
	return apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err), apperror.WithContext(method))
}
