package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/wallet/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/logger"
)

type fakeFunder struct {
	balances map[common.Address]*big.Int
	setErr   error
}

func (f *fakeFunder) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	if b, ok := f.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *fakeFunder) SetBalance(_ context.Context, addr common.Address, wei *big.Int) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.balances[addr] = new(big.Int).Set(wei)
	return nil
}

func testRecord(t *testing.T) *domain.Record {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return domain.NewRecord(key, domain.ProvenanceGenerated, "dev-wallet.json")
}

func localConn() *ledgerdomain.Connection {
	return ledgerdomain.NewConnection(
		ledgerdomain.Endpoint{Tier: ledgerdomain.TierLocalDev, URL: "http://127.0.0.1:8545"},
		big.NewInt(31337), nil)
}

func TestFundAddsToBalance(t *testing.T) {
	rec := testRecord(t)
	one := big.NewInt(1e18)
	funder := &fakeFunder{balances: map[common.Address]*big.Int{rec.Address(): one}}

	f := NewFunding(FundingConfig{Amount: decimal.NewFromInt(10)}, funder, logger.Discard())
	bal, err := f.Fund(context.Background(), localConn(), rec)
	if err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if !bal.ToDecimal().Equal(decimal.NewFromInt(11)) {
		t.Errorf("balance = %s, want 11", bal.ToDecimal())
	}
}

func TestFundFailureIsNotFatal(t *testing.T) {
	rec := testRecord(t)
	funder := &fakeFunder{balances: map[common.Address]*big.Int{}, setErr: errors.New("method not found")}

	f := NewFunding(FundingConfig{Amount: decimal.NewFromInt(10)}, funder, logger.Discard())
	_, err := f.Fund(context.Background(), localConn(), rec)
	if !apperror.HasCode(err, apperror.CodeWalletFundingFailed) {
		t.Fatalf("expected funding failure, got %v", err)
	}
	if apperror.IsFatal(err) {
		t.Fatalf("funding failure must not be fatal")
	}
}

func TestApplies(t *testing.T) {
	testnet := ledgerdomain.NewConnection(ledgerdomain.Endpoint{Tier: ledgerdomain.TierTestnet}, big.NewInt(11155111), nil)

	if !Applies(ledgerdomain.Development, localConn()) {
		t.Errorf("expected funding on development local dev")
	}
	if Applies(ledgerdomain.Development, testnet) {
		t.Errorf("no funding on testnet")
	}
	if Applies(ledgerdomain.Production, localConn()) {
		t.Errorf("no funding in production")
	}
}
