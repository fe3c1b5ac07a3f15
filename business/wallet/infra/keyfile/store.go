// Package keyfile stores signing keys as encrypted keystore v3 JSON files.
package keyfile

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/context0/memory-ledger/business/wallet/domain"
)

// Strength selects the scrypt parameters used when encrypting.
type Strength int

const (
	Standard Strength = iota
	Light
)

// Store reads and writes key files.
type Store struct {
	scryptN int
	scryptP int
}

// NewStore creates a Store. Light is meant for throwaway dev keys.
func NewStore(s Strength) *Store {
	if s == Light {
		return &Store{scryptN: keystore.LightScryptN, scryptP: keystore.LightScryptP}
	}
	return &Store{scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}
}

// Load decrypts the key file at path.
func (s *Store) Load(path, passphrase string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt key file %s: %w", path, err)
	}
	return key.PrivateKey, nil
}

// Save encrypts key and writes it to path with mode 0600. The file is
// written to a temporary name in the same directory and renamed, so a
// crash never leaves a partial key file.
func (s *Store) Save(path, passphrase string, key *ecdsa.PrivateKey) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("key id: %w", err)
	}

	data, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}, passphrase, s.scryptN, s.scryptP)
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".keyfile-*")
	if err != nil {
		return fmt.Errorf("create temp key file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod key file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close key file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename key file: %w", err)
	}
	return nil
}

// Generate creates a new secp256k1 key.
func (s *Store) Generate() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}
