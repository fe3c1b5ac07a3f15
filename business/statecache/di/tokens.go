// Package di contains dependency injection tokens for the statecache context.
package di

import (
	"github.com/context0/memory-ledger/business/statecache/app"
	"github.com/context0/memory-ledger/business/statecache/infra/badger"
	"github.com/context0/memory-ledger/business/statecache/infra/contract"
	"github.com/context0/memory-ledger/business/statecache/infra/rediscache"
	"github.com/context0/memory-ledger/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Binder      = di.NewToken[*app.Binder]("statecache.Binder")
	RemoteCache = di.NewToken[*rediscache.Connector]("statecache.RemoteCache")
	LocalStore  = di.NewToken[*badger.Store]("statecache.LocalStore")
)

// Private dependency tokens - internal to statecache module
var (
	Sources = di.NewToken[*contract.Factory]("statecache:sources")
)

func GetBinder(c di.ServiceRegistry) *app.Binder {
	return di.GetToken(c, Binder)
}

func GetRemoteCache(c di.ServiceRegistry) *rediscache.Connector {
	return di.GetToken(c, RemoteCache)
}

func GetLocalStore(c di.ServiceRegistry) *badger.Store {
	return di.GetToken(c, LocalStore)
}

func GetSources(c di.ServiceRegistry) *contract.Factory {
	return di.GetToken(c, Sources)
}
