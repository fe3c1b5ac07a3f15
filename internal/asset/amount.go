package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
)

// Amount is an immutable quantity of an asset held in its smallest unit (wei).
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount creates an Amount from a raw value. The raw value is copied.
func NewAmount(a *Asset, raw *big.Int) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if raw == nil {
		raw = new(big.Int)
	}
	if raw.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}, nil
}

// MustAmount is NewAmount for values known to be valid.
func MustAmount(a *Asset, raw *big.Int) Amount {
	amt, err := NewAmount(a, raw)
	if err != nil {
		panic(err)
	}
	return amt
}

// ParseDecimal converts a whole-unit decimal (e.g. 1.5 ETH) into an Amount.
func ParseDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}

	scaled := d.Shift(int32(a.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}
	return NewAmount(a, scaled.BigInt())
}

// ParseString parses a whole-unit decimal string.
func ParseString(a *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return ParseDecimal(a, d)
}

// Raw returns a copy of the smallest-unit value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

// Asset returns the denomination.
func (a Amount) Asset() *Asset { return a.asset }

// IsZero reports a zero amount.
func (a Amount) IsZero() bool { return a.raw == nil || a.raw.Sign() == 0 }

// Add adds two amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if !a.asset.Equals(b.asset) {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset, b.asset)
	}
	return NewAmount(a.asset, new(big.Int).Add(a.Raw(), b.Raw()))
}

// ToDecimal converts to whole units for display.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.Raw(), -int32(a.asset.Decimals()))
}

// String renders e.g. "10 ETH".
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.asset.Symbol())
}
