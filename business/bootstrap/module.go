// Package bootstrap implements the bootstrap bounded context. Its startup
// runs the orchestrator and fails the process on a fatal error.
package bootstrap

import (
	"context"
	"io"

	"github.com/context0/memory-ledger/business/bootstrap/app"
	bootstrapDI "github.com/context0/memory-ledger/business/bootstrap/di"
	ledgerDI "github.com/context0/memory-ledger/business/ledger/di"
	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	statecacheDI "github.com/context0/memory-ledger/business/statecache/di"
	walletDI "github.com/context0/memory-ledger/business/wallet/di"
	"github.com/context0/memory-ledger/internal/config"
	"github.com/context0/memory-ledger/internal/di"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/monolith"
)

// Module implements the bootstrap bounded context.
type Module struct{}

// RegisterServices registers the orchestrator with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, bootstrapDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewOrchestrator(ledgerdomain.ParseEnvironment(cfg.App.Environment), app.Deps{
			Selector: ledgerDI.GetSelector(sr),
			Remote:   statecacheDI.GetRemoteCache(sr),
			Binder:   statecacheDI.GetBinder(sr),
			Wallet:   walletDI.GetProvider(sr),
			Funder:   walletDI.GetFunding(sr),
			Closers: []io.Closer{
				statecacheDI.GetLocalStore(sr),
				statecacheDI.GetSources(sr),
			},
		}, log)
	})

	return nil
}

// Startup runs the bootstrap sequence.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	orch := bootstrapDI.GetOrchestrator(mono.Services())
	if _, err := orch.Run(ctx); err != nil {
		return err
	}
	return nil
}
