// Package app contains application services and port definitions for the ledger context.
package app

import (
	"context"

	"github.com/context0/memory-ledger/business/ledger/domain"
)

// Dialer opens a verified connection to an endpoint.
type Dialer interface {
	// Dial connects and checks the chain ID reported by the node against
	// the tier's expected chain ID.
	Dial(ctx context.Context, ep domain.Endpoint) (*domain.Connection, error)
}

// DevNode manages the local throwaway ledger node.
type DevNode interface {
	// URL returns the RPC endpoint of the node.
	URL() string

	// Probe checks whether a node already answers on URL.
	Probe(ctx context.Context) error

	// Start spawns a node and waits until it answers or the startup
	// timeout elapses.
	Start(ctx context.Context) error

	// Stop terminates a node started by Start. It is a no-op otherwise.
	Stop() error
}
