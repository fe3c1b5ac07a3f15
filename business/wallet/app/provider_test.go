package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/wallet/domain"
	"github.com/context0/memory-ledger/business/wallet/infra/keyfile"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/logger"
)

func TestProductionPreflight(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		missing []string
	}{
		{"both missing", ProviderConfig{}, []string{"SERVICE_WALLET_ADDRESS", "WALLET_KEY_PATH"}},
		{"address missing", ProviderConfig{KeyPath: "/k.json"}, []string{"SERVICE_WALLET_ADDRESS"}},
		{"path missing", ProviderConfig{ExpectedAddress: "0x00000000000000000000000000000000000000aa"}, []string{"WALLET_KEY_PATH"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Environment = ledgerdomain.Production
			p := NewProvider(tt.cfg, keyfile.NewStore(keyfile.Light), logger.Discard())

			err := p.Preflight()
			if !apperror.HasCode(err, apperror.CodeWalletConfigMissing) {
				t.Fatalf("expected config missing, got %v", err)
			}
			if !apperror.IsFatal(err) {
				t.Fatalf("expected fatal")
			}
			for _, name := range tt.missing {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("error %q does not name %s", err, name)
				}
			}
		})
	}
}

func writeKey(t *testing.T, dir, passphrase string) (string, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "service.json")
	if err := keyfile.NewStore(keyfile.Light).Save(path, passphrase, key); err != nil {
		t.Fatal(err)
	}
	return path, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestProductionResolve(t *testing.T) {
	dir := t.TempDir()
	path, addr := writeKey(t, dir, "pw")

	p := NewProvider(ProviderConfig{
		Environment:     ledgerdomain.Production,
		KeyPath:         path,
		ExpectedAddress: strings.ToLower(addr),
		Passphrase:      "pw",
	}, keyfile.NewStore(keyfile.Light), logger.Discard())

	rec, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Address().Hex() != addr {
		t.Errorf("address = %s, want %s", rec.Address().Hex(), addr)
	}
	if rec.Provenance() != domain.ProvenanceFile {
		t.Errorf("provenance = %s", rec.Provenance())
	}
}

func TestProductionResolveFailures(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeKey(t, dir, "pw")
	other := "0x00000000000000000000000000000000000000aa"

	tests := []struct {
		name string
		cfg  ProviderConfig
		code apperror.Code
	}{
		{"mismatch", ProviderConfig{KeyPath: path, ExpectedAddress: other, Passphrase: "pw"}, apperror.CodeWalletAddressMismatch},
		{"wrong passphrase", ProviderConfig{KeyPath: path, ExpectedAddress: other, Passphrase: "nope"}, apperror.CodeWalletLoadFailed},
		{"missing file", ProviderConfig{KeyPath: filepath.Join(dir, "absent.json"), ExpectedAddress: other}, apperror.CodeWalletLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Environment = ledgerdomain.Production
			p := NewProvider(tt.cfg, keyfile.NewStore(keyfile.Light), logger.Discard())

			_, err := p.Resolve(context.Background())
			if !apperror.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if !apperror.IsFatal(err) {
				t.Fatalf("expected fatal error")
			}
		})
	}
}

func TestDevelopmentGeneratesThenReuses(t *testing.T) {
	dir := t.TempDir()
	cfg := ProviderConfig{Environment: ledgerdomain.Development, DevPath: filepath.Join(dir, "dev-wallet.json")}
	store := keyfile.NewStore(keyfile.Light)

	first, err := NewProvider(cfg, store, logger.Discard()).Resolve(context.Background())
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first.Provenance() != domain.ProvenanceGenerated {
		t.Fatalf("first provenance = %s", first.Provenance())
	}

	info, err := os.Stat(cfg.DevPath)
	if err != nil {
		t.Fatalf("dev wallet not persisted: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	second, err := NewProvider(cfg, store, logger.Discard()).Resolve(context.Background())
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.Provenance() != domain.ProvenanceFile {
		t.Errorf("second provenance = %s", second.Provenance())
	}
	if second.Address() != first.Address() {
		t.Errorf("address changed between runs: %s != %s", first.Address().Hex(), second.Address().Hex())
	}
}

func TestDevelopmentReplacesUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev-wallet.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewProvider(ProviderConfig{Environment: ledgerdomain.Development, DevPath: path},
		keyfile.NewStore(keyfile.Light), logger.Discard())

	rec, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Provenance() != domain.ProvenanceGenerated {
		t.Errorf("provenance = %s", rec.Provenance())
	}

	backups, _ := filepath.Glob(path + ".unreadable-*")
	if len(backups) != 1 {
		t.Errorf("expected unreadable file to be kept aside, found %v", backups)
	}
}

func TestDevelopmentKeyPathOverride(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "custom.json")

	p := NewProvider(ProviderConfig{
		Environment: ledgerdomain.Development,
		KeyPath:     override,
		DevPath:     filepath.Join(dir, "dev-wallet.json"),
	}, keyfile.NewStore(keyfile.Light), logger.Discard())

	rec, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Path() != override {
		t.Errorf("path = %s, want %s", rec.Path(), override)
	}
	if _, err := os.Stat(filepath.Join(dir, "dev-wallet.json")); !os.IsNotExist(err) {
		t.Errorf("default dev path should be untouched")
	}
}

func TestDevelopmentPersistFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewProvider(ProviderConfig{
		Environment: ledgerdomain.Development,
		DevPath:     filepath.Join(blocker, "dev-wallet.json"),
	}, keyfile.NewStore(keyfile.Light), logger.Discard())

	_, err := p.Resolve(context.Background())
	if !apperror.HasCode(err, apperror.CodeWalletPersistFailed) {
		t.Fatalf("expected persist failure, got %v", err)
	}
}
