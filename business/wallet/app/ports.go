// Package app resolves the signing identity and funds it on the dev network.
package app

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// KeyStore loads, persists and creates signing keys.
type KeyStore interface {
	// Load reads the key at path. A missing file yields an error wrapping
	// domain.ErrKeyNotFound.
	Load(path, passphrase string) (*ecdsa.PrivateKey, error)
	Save(path, passphrase string, key *ecdsa.PrivateKey) error
	Generate() (*ecdsa.PrivateKey, error)
}

// Funder credits native currency on the dev network.
type Funder interface {
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	SetBalance(ctx context.Context, addr common.Address, wei *big.Int) error
}
