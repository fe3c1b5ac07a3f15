package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NODE_ENV", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.IsProduction() {
		t.Errorf("default environment should be development")
	}
	if cfg.Ledger.LocalPort != 8545 {
		t.Errorf("local_port = %d", cfg.Ledger.LocalPort)
	}
	if cfg.Ledger.LocalURL() != "http://127.0.0.1:8545" {
		t.Errorf("LocalURL = %s", cfg.Ledger.LocalURL())
	}
	if cfg.RemoteCache.DialTimeout != 10*time.Second || cfg.RemoteCache.CommandTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.RemoteCache.DialTimeout, cfg.RemoteCache.CommandTimeout)
	}
	if cfg.Wallet.DevPath != "dev-wallet.json" {
		t.Errorf("dev_path = %s", cfg.Wallet.DevPath)
	}
	if !cfg.RemoteCache.Enabled {
		t.Errorf("remote cache should default to enabled")
	}
}

func TestLoadBareEnvNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NODE_ENV", " production ")
	t.Setenv("MAINNET_RPC_URL", "https://mainnet.example")
	t.Setenv("REDIS_SERVER", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_AUTH_KEY", "secret")
	t.Setenv("SERVICE_WALLET_ADDRESS", "0x00000000000000000000000000000000000000aa")
	t.Setenv("WALLET_KEY_PATH", "/keys/service.json")
	t.Setenv("LOCAL_NODE_PORT", "9545")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.App.IsProduction() {
		t.Errorf("expected production")
	}
	if cfg.RemoteCache.Host != "cache.internal" || cfg.RemoteCache.Port != "6380" || cfg.RemoteCache.Password != "secret" {
		t.Errorf("remote cache = %+v", cfg.RemoteCache)
	}
	if cfg.Wallet.KeyPath != "/keys/service.json" {
		t.Errorf("key_path = %s", cfg.Wallet.KeyPath)
	}
	if cfg.Ledger.LocalPort != 9545 {
		t.Errorf("local_port = %d", cfg.Ledger.LocalPort)
	}
}

func TestLoadProductionRequiresMainnet(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NODE_ENV", "production")
	t.Setenv("MAINNET_RPC_URL", "")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected missing mainnet url to fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("NODE_ENV", "")

	path := filepath.Join(dir, "custom.yaml")
	data := []byte("ledger:\n  local_port: 7545\nstate:\n  writes_per_minute: 5\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.LocalPort != 7545 || cfg.State.WritesPerMinute != 5 {
		t.Errorf("file values not applied: %+v %+v", cfg.Ledger, cfg.State)
	}
}

func TestDevAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  RemoteCacheConfig
		want string
	}{
		{"defaults", RemoteCacheConfig{}, "localhost:6379"},
		{"host", RemoteCacheConfig{DevHost: "redis", DevPort: 6379}, "redis:6379"},
		{"url wins", RemoteCacheConfig{DevHost: "redis", DevURL: "redis://cache.local:1234", DevPort: 6379}, "cache.local:6379"},
		{"bad url", RemoteCacheConfig{DevHost: "redis", DevURL: "::", DevPort: 6379}, "redis:6379"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DevAddress(); got != tt.want {
				t.Errorf("DevAddress = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateRejectsBadAddress(t *testing.T) {
	cfg := Config{
		Ledger: LedgerConfig{
			TestnetURL: "https://rpc", LocalPort: 8545, FundingAmount: "10",
			StartupTimeout: time.Second, DialTimeout: time.Second, FundingTimeout: time.Second,
		},
		RemoteCache: RemoteCacheConfig{DialTimeout: time.Second, CommandTimeout: time.Second},
		Wallet:      WalletConfig{ExpectedAddress: "not-an-address"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid address error")
	}
	cfg.Wallet.ExpectedAddress = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
