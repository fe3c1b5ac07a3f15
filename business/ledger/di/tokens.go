// Package di contains dependency injection tokens for the ledger context.
package di

import (
	"github.com/context0/memory-ledger/business/ledger/app"
	"github.com/context0/memory-ledger/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Selector = di.NewToken[*app.Selector]("ledger.Selector")
)

// Private dependency tokens - internal to ledger module
var (
	Dialer  = di.NewToken[app.Dialer]("ledger:dialer")
	DevNode = di.NewToken[app.DevNode]("ledger:devNode")
)

func GetSelector(c di.ServiceRegistry) *app.Selector {
	return di.GetToken(c, Selector)
}

func GetDialer(c di.ServiceRegistry) app.Dialer {
	return di.GetToken(c, Dialer)
}

func GetDevNode(c di.ServiceRegistry) app.DevNode {
	return di.GetToken(c, DevNode)
}
