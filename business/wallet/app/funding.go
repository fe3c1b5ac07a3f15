package app

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/wallet/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/asset"
	"github.com/context0/memory-ledger/internal/logger"
)

// FundingConfig holds dev wallet funding settings.
type FundingConfig struct {
	Amount  decimal.Decimal // whole native units added per bootstrap
	Timeout time.Duration
}

// Funding credits the dev wallet on a local dev node.
type Funding struct {
	cfg    FundingConfig
	funder Funder
	log    logger.LoggerInterface
}

// NewFunding creates a Funding step.
func NewFunding(cfg FundingConfig, funder Funder, log logger.LoggerInterface) *Funding {
	return &Funding{cfg: cfg, funder: funder, log: log}
}

// Applies reports whether funding runs for env on conn.
func Applies(env ledgerdomain.Environment, conn *ledgerdomain.Connection) bool {
	return env == ledgerdomain.Development && conn != nil && conn.Tier() == ledgerdomain.TierLocalDev
}

// Fund adds the configured amount to the wallet balance and returns the
// resulting balance. Errors carry CodeWalletFundingFailed and are never
// fatal.
func (f *Funding) Fund(ctx context.Context, conn *ledgerdomain.Connection, rec *domain.Record) (asset.Amount, error) {
	native := asset.Native(conn.ChainID().Uint64())

	credit, err := asset.ParseDecimal(native, f.cfg.Amount)
	if err != nil {
		return asset.Amount{}, apperror.Degraded(apperror.CodeWalletFundingFailed, "funding amount", err)
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	addr := rec.Address()
	current, err := f.funder.Balance(ctx, addr)
	if err != nil {
		return asset.Amount{}, apperror.Degraded(apperror.CodeWalletFundingFailed, "read balance", err)
	}

	target := new(big.Int).Add(current, credit.Raw())
	if err := f.funder.SetBalance(ctx, addr, target); err != nil {
		return asset.Amount{}, apperror.Degraded(apperror.CodeWalletFundingFailed, "set balance", err)
	}

	balance, err := f.funder.Balance(ctx, addr)
	if err != nil {
		balance = target
	}
	amount, err := asset.NewAmount(native, balance)
	if err != nil {
		return asset.Amount{}, apperror.Degraded(apperror.CodeWalletFundingFailed, "balance", err)
	}

	f.log.Info(ctx, "dev wallet funded",
		"address", addr.Hex(), "credited", credit.String(), "balance", amount.String())
	return amount, nil
}
