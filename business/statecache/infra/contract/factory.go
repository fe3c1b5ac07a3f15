package contract

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/statecache/app"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/cache"
	"github.com/context0/memory-ledger/internal/circuitbreaker"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/ratelimit"
)

// FactoryConfig configures every Source the factory binds.
type FactoryConfig struct {
	Contract        common.Address
	CallTimeout     time.Duration
	CodeCheckTTL    time.Duration
	WritesPerMinute int
}

// Factory binds sources to connections. Sources share the write limiter
// and the code-check cache.
type Factory struct {
	cfg     FactoryConfig
	limiter *ratelimit.Limiter
	checks  *cache.Cache[string, bool]
	log     logger.LoggerInterface
}

// NewFactory creates a Factory.
func NewFactory(cfg FactoryConfig, log logger.LoggerInterface) *Factory {
	return &Factory{
		cfg:     cfg,
		limiter: ratelimit.New(cfg.WritesPerMinute),
		checks:  cache.New[string, bool](time.Minute),
		log:     log,
	}
}

// Source returns a Source talking to conn's client.
func (f *Factory) Source(conn *ledgerdomain.Connection) (app.NetworkSource, error) {
	client := conn.Client()
	if client == nil {
		return nil, apperror.New(apperror.CodeInvalidState, apperror.WithContext("connection has no client"))
	}

	bc := circuitbreaker.DefaultConfig("state-contract:" + conn.Tier().String())
	bc.OnStateChange = func(name string, from, to circuitbreaker.State) {
		f.log.Warn(context.Background(), "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	}

	if f.cfg.Contract == (common.Address{}) {
		f.log.Warn(context.Background(), "no state contract configured, network source reads will fail", "tier", conn.Tier())
	}

	return New(Config{
		Contract:     f.cfg.Contract,
		ChainID:      conn.ChainID(),
		CallTimeout:  f.cfg.CallTimeout,
		CodeCheckTTL: f.cfg.CodeCheckTTL,
	}, client, client, f.limiter, circuitbreaker.New[[]byte](bc), f.checks, f.log), nil
}

// Close stops the code-check cache sweeper.
func (f *Factory) Close() error {
	f.checks.Close()
	return nil
}
