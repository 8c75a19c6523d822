package domain

import "math/big"

// BalanceVerdict outcome category of a balance check.
type BalanceVerdict int

const (
	// BalanceSufficient the asset balance alone covers the request.
	BalanceSufficient BalanceVerdict = iota
	// BalanceRequiresConversion asset balance falls short but native balance covers the gap.
	BalanceRequiresConversion
	// BalanceInsufficientTotal even asset plus native balance cannot cover the request.
	BalanceInsufficientTotal
)

// BalanceCheck result of a pre-submission funds check.
type BalanceCheck struct {
	Verdict BalanceVerdict
	// Shortfall base units that must be converted from native currency,
	// set only for BalanceRequiresConversion.
	Shortfall *big.Int
}
