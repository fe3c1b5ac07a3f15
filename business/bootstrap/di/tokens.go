// Package di contains dependency injection tokens for the bootstrap context.
package di

import (
	"github.com/context0/memory-ledger/business/bootstrap/app"
	"github.com/context0/memory-ledger/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("bootstrap.Orchestrator")
)

func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}
