// Package guard decides whether a requested base-unit amount is covered by
// the user's balances before anything is submitted to the ledger.
package guard

import (
	"math/big"

	"github.com/Web3Tester2023/swap3/internal/domain"
)

// Check compares the requested amount against the wrapped-asset balance and
// the native-currency balance, all in base units. It runs on every amount
// keystroke, so it is pure and allocation-light.
//
//   - requested <= assetBalance: sufficient
//   - requested <= assetBalance + nativeBalance: conversion of exactly the
//     shortfall (requested - assetBalance) covers it
//   - otherwise: insufficient in total
func Check(requested, assetBalance, nativeBalance *big.Int) domain.BalanceCheck {
	if requested.Cmp(assetBalance) <= 0 {
		return domain.BalanceCheck{Verdict: domain.BalanceSufficient}
	}

	total := new(big.Int).Add(assetBalance, nativeBalance)
	if requested.Cmp(total) <= 0 {
		return domain.BalanceCheck{
			Verdict:   domain.BalanceRequiresConversion,
			Shortfall: new(big.Int).Sub(requested, assetBalance),
		}
	}

	return domain.BalanceCheck{Verdict: domain.BalanceInsufficientTotal}
}
