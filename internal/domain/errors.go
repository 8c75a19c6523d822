package domain

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidAmount malformed, zero or negative numeric form input.
	ErrInvalidAmount = errors.New("form input error")
	// ErrInsufficientFunds requested amount exceeds asset plus native balance.
	ErrInsufficientFunds = errors.New("you don't have enough balance")
	// ErrWithdrawalWindowClosed withdrawal attempted outside the open window.
	ErrWithdrawalWindowClosed = errors.New("withdrawal window is closed")
	// ErrOperationInProgress another operation is already in flight.
	ErrOperationInProgress = errors.New("operation already in progress")
	// ErrDependentOperationAborted the approval step failed, the dependent action was never submitted.
	ErrDependentOperationAborted = errors.New("approval failed, dependent action aborted")
)

// RequiresConversionError signals that the user holds enough value overall
// but must wrap part of their native balance first.
type RequiresConversionError struct {
	// Shortfall base units missing from the wrapped-asset balance.
	Shortfall *big.Int
	// Symbol wrapped asset symbol for the user-facing message.
	Symbol string
	// Decimals display precision for the user-facing message.
	Decimals uint8
}

func (e *RequiresConversionError) Error() string {
	a := Asset{Symbol: e.Symbol, Decimals: e.Decimals}
	return fmt.Sprintf("you need to convert %s ETH to %s", a.DisplayAmount(e.Shortfall), e.Symbol)
}
