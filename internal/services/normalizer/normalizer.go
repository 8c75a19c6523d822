// Package normalizer converts user-entered decimal amounts into integer
// base-unit amounts for assets of arbitrary decimal precision.
package normalizer

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Web3Tester2023/swap3/internal/domain"
)

// OptionContractDecimals fixed precision of option-contract unit amounts.
const OptionContractDecimals = 8

// Normalize parses the decimal input and scales it by 10^decimals using
// exact decimal arithmetic. Empty, non-numeric or negative input is
// rejected with domain.ErrInvalidAmount. The result is rounded half-up to
// the nearest base unit.
func Normalize(input string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, errors.Wrap(domain.ErrInvalidAmount, "empty amount")
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidAmount, "not a number: %q", input)
	}
	if d.IsNegative() {
		return nil, errors.Wrapf(domain.ErrInvalidAmount, "negative amount: %q", input)
	}

	return d.Shift(int32(decimals)).Round(0).BigInt(), nil
}

// NormalizePositive is Normalize with an additional zero rejection, for
// dispatcher paths where a zero amount is a form error.
func NormalizePositive(input string, decimals uint8) (*big.Int, error) {
	amount, err := Normalize(input, decimals)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, errors.Wrap(domain.ErrInvalidAmount, "zero amount")
	}
	return amount, nil
}

// NormalizeOption converts an option-contract unit amount using the fixed
// 1e8 contract scale instead of the asset's own precision.
func NormalizeOption(input string) (*big.Int, error) {
	return NormalizePositive(input, OptionContractDecimals)
}
