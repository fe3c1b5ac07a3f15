// Package faucet credits accounts on a local dev node through its
// balance-setting RPC extension.
package faucet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/context0/memory-ledger/internal/httpclient"
)

// DefaultMethod is the anvil/hardhat balance setter.
const DefaultMethod = "anvil_setBalance"

// Config configures a Faucet.
type Config struct {
	URL     string
	Method  string
	Timeout time.Duration
	// Headers are sent with every call, e.g. auth for a proxied node.
	Headers map[string]string
}

// Faucet talks JSON-RPC to the dev node.
type Faucet struct {
	method string
	client httpclient.Client
}

// New creates a Faucet for the node at cfg.URL. opts are applied after the
// faucet's own client options.
func New(cfg Config, opts ...httpclient.ClientOption) (*Faucet, error) {
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}

	clientOpts := append([]httpclient.ClientOption{
		httpclient.WithProviderName("dev-faucet"),
		httpclient.WithBaseURL(cfg.URL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithHeaders(cfg.Headers),
	}, opts...)

	client, err := httpclient.NewInstrumentedClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("faucet client: %w", err)
	}
	return &Faucet{method: cfg.Method, client: client}, nil
}

// Balance returns the latest balance of addr in wei.
func (f *Faucet) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var bal hexutil.Big
	if err := httpclient.CallRPC(ctx, f.client, "", "eth_getBalance", &bal, addr.Hex(), "latest"); err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	return bal.ToInt(), nil
}

// SetBalance sets the balance of addr to wei.
func (f *Faucet) SetBalance(ctx context.Context, addr common.Address, wei *big.Int) error {
	if err := httpclient.CallRPC(ctx, f.client, "", f.method, nil, addr.Hex(), hexutil.EncodeBig(wei)); err != nil {
		return fmt.Errorf("%s: %w", f.method, err)
	}
	return nil
}
