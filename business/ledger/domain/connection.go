package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Endpoint describes where a tier is reached.
type Endpoint struct {
	Tier NetworkTier
	URL  string
	// Fresh is set when this process spawned the dev node behind URL.
	Fresh bool
}

// Connection is a ready handle bound to exactly one network tier. It is
// shared read-only after bootstrap.
type Connection struct {
	endpoint Endpoint
	chainID  *big.Int
	client   *ethclient.Client
}

// NewConnection binds a dialed client to its endpoint.
func NewConnection(ep Endpoint, chainID *big.Int, client *ethclient.Client) *Connection {
	return &Connection{
		endpoint: ep,
		chainID:  new(big.Int).Set(chainID),
		client:   client,
	}
}

// Tier returns the bound network tier.
func (c *Connection) Tier() NetworkTier { return c.endpoint.Tier }

// URL returns the RPC endpoint.
func (c *Connection) URL() string { return c.endpoint.URL }

// Fresh reports whether the dev node was started by this process.
func (c *Connection) Fresh() bool { return c.endpoint.Fresh }

// ChainID returns a copy of the chain ID reported at dial time.
func (c *Connection) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// Client returns the underlying ethclient.
func (c *Connection) Client() *ethclient.Client { return c.client }

// Close releases the RPC client.
func (c *Connection) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
