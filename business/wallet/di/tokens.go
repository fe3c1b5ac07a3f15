// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/context0/memory-ledger/business/wallet/app"
	"github.com/context0/memory-ledger/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Provider = di.NewToken[*app.Provider]("wallet.Provider")
	Funding  = di.NewToken[*app.Funding]("wallet.Funding")
)

// Private dependency tokens - internal to wallet module
var (
	KeyStore = di.NewToken[app.KeyStore]("wallet:keyStore")
	Funder   = di.NewToken[app.Funder]("wallet:funder")
)

func GetProvider(c di.ServiceRegistry) *app.Provider {
	return di.GetToken(c, Provider)
}

func GetFunding(c di.ServiceRegistry) *app.Funding {
	return di.GetToken(c, Funding)
}

func GetKeyStore(c di.ServiceRegistry) app.KeyStore {
	return di.GetToken(c, KeyStore)
}

func GetFunder(c di.ServiceRegistry) app.Funder {
	return di.GetToken(c, Funder)
}
