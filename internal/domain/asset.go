// Package domain defines core data structures used throughout the vault client.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Asset an ERC-style token held by the user or the vault.
type Asset struct {
	// Symbol token ticker, e.g. WETH.
	Symbol string
	// Decimals decimal precision of the token.
	Decimals uint8
	// Balance current balance in the asset's own base units.
	Balance *big.Int
}

// DisplayAmount renders a base-unit amount in the asset's display units.
func (a *Asset) DisplayAmount(baseUnits *big.Int) string {
	if baseUnits == nil {
		return "0"
	}
	return decimal.NewFromBigInt(baseUnits, -int32(a.Decimals)).String()
}
