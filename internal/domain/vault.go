package domain

import (
	"math/big"
	"time"
)

// VaultState snapshot of the on-chain vault supplied by the caller.
// All big.Int fields are base-unit amounts.
type VaultState struct {
	// TotalSupply total vault share tokens minted.
	TotalSupply *big.Int
	// VaultBalance asset tokens held by the vault.
	VaultBalance *big.Int
	// CollateralAmount asset tokens locked as option collateral.
	CollateralAmount *big.Int
	// AssetDecimals decimal precision of the underlying asset.
	AssetDecimals uint8
	// AssetSymbol ticker of the underlying asset.
	AssetSymbol string
	// WithdrawalWindowExpiry unix expiry of the withdrawal window, -1 when unset.
	WithdrawalWindowExpiry int64
	// IsManager whether the current account manages the vault.
	IsManager bool
}

// WithdrawalWindowOpen reports whether withdrawals are currently allowed.
// The window is open once the manager has settled and the expiry has passed.
func (v *VaultState) WithdrawalWindowOpen(now time.Time) bool {
	return v.WithdrawalWindowExpiry != -1 && v.WithdrawalWindowExpiry < now.Unix()
}

// ShareRatio returns vault shares per one asset token:
// totalSupply / (vaultBalance + collateralAmount). Returns 0 when the vault
// holds nothing.
func (v *VaultState) ShareRatio() *big.Rat {
	denom := new(big.Int).Add(v.VaultBalance, v.CollateralAmount)
	if denom.Sign() == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(v.TotalSupply, denom)
}
