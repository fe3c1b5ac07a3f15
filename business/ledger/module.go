// Package ledger implements the ledger bounded context: network tier
// selection and the local dev node lifecycle.
package ledger

import (
	"context"

	"github.com/context0/memory-ledger/business/ledger/app"
	ledgerDI "github.com/context0/memory-ledger/business/ledger/di"
	"github.com/context0/memory-ledger/business/ledger/infra/devnode"
	"github.com/context0/memory-ledger/business/ledger/infra/ethereum"
	"github.com/context0/memory-ledger/internal/config"
	"github.com/context0/memory-ledger/internal/di"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/monolith"
)

// Module implements the ledger bounded context.
type Module struct{}

// RegisterServices registers all ledger services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, ledgerDI.Dialer, func(sr di.ServiceRegistry) app.Dialer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		dialer, err := ethereum.NewDialer(cfg.Ledger.DialTimeout, log)
		if err != nil {
			panic("failed to create ledger dialer: " + err.Error())
		}
		return dialer
	})

	di.RegisterToken(c, ledgerDI.DevNode, func(sr di.ServiceRegistry) app.DevNode {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return devnode.New(devnode.Config{
			Host:           cfg.Ledger.LocalHost,
			Port:           cfg.Ledger.LocalPort,
			Command:        cfg.Ledger.LocalCommand,
			Args:           cfg.Ledger.LocalArgs,
			StartupTimeout: cfg.Ledger.StartupTimeout,
			ProbeTimeout:   cfg.Ledger.ProbeTimeout,
		}, log)
	})

	di.RegisterToken(c, ledgerDI.Selector, func(sr di.ServiceRegistry) *app.Selector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		selector, err := app.NewSelector(app.SelectorConfig{
			MainnetURL: cfg.Ledger.MainnetURL,
			TestnetURL: cfg.Ledger.TestnetURL,
		}, ledgerDI.GetDialer(sr), ledgerDI.GetDevNode(sr), log)
		if err != nil {
			panic("failed to create network selector: " + err.Error())
		}
		return selector
	})

	return nil
}

// Startup initializes the ledger module. Selection itself is driven by the
// bootstrap module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	mono.Logger().Info(ctx, "ledger module started",
		"local_node", cfg.Ledger.LocalURL(), "testnet", cfg.Ledger.TestnetURL, "mainnet_configured", cfg.Ledger.MainnetURL != "")
	return nil
}
