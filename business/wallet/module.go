// Package wallet implements the wallet bounded context: the process signing
// identity and dev network funding.
package wallet

import (
	"context"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/wallet/app"
	walletDI "github.com/context0/memory-ledger/business/wallet/di"
	"github.com/context0/memory-ledger/business/wallet/infra/faucet"
	"github.com/context0/memory-ledger/business/wallet/infra/keyfile"
	"github.com/context0/memory-ledger/internal/config"
	"github.com/context0/memory-ledger/internal/di"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/monolith"
)

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, walletDI.KeyStore, func(sr di.ServiceRegistry) app.KeyStore {
		cfg := sr.Get("config").(*config.Config)
		if cfg.App.IsProduction() {
			return keyfile.NewStore(keyfile.Standard)
		}
		return keyfile.NewStore(keyfile.Light)
	})

	di.RegisterToken(c, walletDI.Funder, func(sr di.ServiceRegistry) app.Funder {
		cfg := sr.Get("config").(*config.Config)

		f, err := faucet.New(faucet.Config{
			URL:     cfg.Ledger.LocalURL(),
			Method:  cfg.Ledger.FundingMethod,
			Timeout: cfg.Ledger.FundingTimeout,
			Headers: cfg.Ledger.FundingHeaders,
		})
		if err != nil {
			panic("failed to create dev faucet: " + err.Error())
		}
		return f
	})

	di.RegisterToken(c, walletDI.Provider, func(sr di.ServiceRegistry) *app.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewProvider(app.ProviderConfig{
			Environment:     ledgerdomain.ParseEnvironment(cfg.App.Environment),
			KeyPath:         cfg.Wallet.KeyPath,
			ExpectedAddress: cfg.Wallet.ExpectedAddress,
			Passphrase:      cfg.Wallet.Passphrase,
			DevPath:         cfg.Wallet.DevPath,
		}, walletDI.GetKeyStore(sr), log)
	})

	di.RegisterToken(c, walletDI.Funding, func(sr di.ServiceRegistry) *app.Funding {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		// Validate already parsed the amount.
		amount, _ := cfg.Ledger.FundingAmountDecimal()
		return app.NewFunding(app.FundingConfig{
			Amount:  amount,
			Timeout: cfg.Ledger.FundingTimeout,
		}, walletDI.GetFunder(sr), log)
	})

	return nil
}

// Startup initializes the wallet module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "wallet module started")
	return nil
}
