// Package domain contains the signing identity types.
package domain

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrKeyNotFound is returned by key stores when no key file exists.
var ErrKeyNotFound = errors.New("wallet key file not found")

// Provenance records where the active key came from.
type Provenance string

const (
	ProvenanceFile      Provenance = "file"
	ProvenanceGenerated Provenance = "generated"
)

// Record is the single signing identity of the process. It is immutable.
type Record struct {
	address    common.Address
	key        *ecdsa.PrivateKey
	provenance Provenance
	path       string
}

// NewRecord derives the address from key.
func NewRecord(key *ecdsa.PrivateKey, provenance Provenance, path string) *Record {
	return &Record{
		address:    crypto.PubkeyToAddress(key.PublicKey),
		key:        key,
		provenance: provenance,
		path:       path,
	}
}

// Address returns the derived address.
func (r *Record) Address() common.Address { return r.address }

// Provenance returns where the key came from.
func (r *Record) Provenance() Provenance { return r.provenance }

// Path returns the key file backing the record.
func (r *Record) Path() string { return r.path }

// Transactor returns signing options bound to chainID. Each call returns
// fresh options so callers may set per-transaction fields.
func (r *Record) Transactor(chainID *big.Int) (*bind.TransactOpts, error) {
	return bind.NewKeyedTransactorWithChainID(r.key, chainID)
}
