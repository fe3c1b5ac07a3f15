// Package statecache implements the contract-state cache bounded context:
// the remote cache connector, the local persistent cache and the binder that
// chains them in front of the ledger.
package statecache

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/context0/memory-ledger/business/statecache/app"
	statecacheDI "github.com/context0/memory-ledger/business/statecache/di"
	"github.com/context0/memory-ledger/business/statecache/infra/badger"
	"github.com/context0/memory-ledger/business/statecache/infra/contract"
	"github.com/context0/memory-ledger/business/statecache/infra/rediscache"
	"github.com/context0/memory-ledger/internal/config"
	"github.com/context0/memory-ledger/internal/di"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/monolith"
)

const localGCInterval = 10 * time.Minute

// Module implements the statecache bounded context.
type Module struct{}

// RegisterServices registers all statecache services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, statecacheDI.RemoteCache, func(sr di.ServiceRegistry) *rediscache.Connector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		rc := cfg.RemoteCache

		return rediscache.NewConnector(rediscache.Config{
			Enabled:        rc.Enabled,
			Production:     cfg.App.IsProduction(),
			Host:           rc.Host,
			Port:           rc.Port,
			Password:       rc.Password,
			DevAddr:        rc.DevAddress(),
			DialTimeout:    rc.DialTimeout,
			CommandTimeout: rc.CommandTimeout,
			HealthInterval: rc.HealthInterval,
			TTL:            rc.TTL,
		}, log)
	})

	di.RegisterToken(c, statecacheDI.LocalStore, func(sr di.ServiceRegistry) *badger.Store {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		store, err := badger.Open(badger.Config{
			Dir:        cfg.State.CacheDir,
			TTL:        cfg.State.LocalTTL,
			GCInterval: localGCInterval,
		}, log)
		if err == nil {
			return store
		}

		log.Warn(context.Background(), "local cache directory unusable, keeping local cache in memory",
			"dir", cfg.State.CacheDir, "error", err)
		store, err = badger.Open(badger.Config{InMemory: true, TTL: cfg.State.LocalTTL}, log)
		if err != nil {
			panic("failed to open in-memory local cache: " + err.Error())
		}
		return store
	})

	di.RegisterToken(c, statecacheDI.Sources, func(sr di.ServiceRegistry) *contract.Factory {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var addr common.Address
		if cfg.State.Contract != "" {
			addr = common.HexToAddress(cfg.State.Contract)
		}
		return contract.NewFactory(contract.FactoryConfig{
			Contract:        addr,
			CallTimeout:     cfg.State.CallTimeout,
			CodeCheckTTL:    cfg.State.CodeCheckTTL,
			WritesPerMinute: cfg.State.WritesPerMinute,
		}, log)
	})

	di.RegisterToken(c, statecacheDI.Binder, func(sr di.ServiceRegistry) *app.Binder {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewBinder(statecacheDI.GetLocalStore(sr), statecacheDI.GetSources(sr), log)
	})

	return nil
}

// Startup initializes the statecache module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	mono.Logger().Info(ctx, "statecache module started",
		"cache_dir", cfg.State.CacheDir, "contract", cfg.State.Contract, "remote_enabled", cfg.RemoteCache.Enabled)
	return nil
}
