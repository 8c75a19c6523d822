package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OperationKind represents the type of vault action to be performed.
type OperationKind int

const (
	OpDeposit OperationKind = iota
	OpWithdraw
	OpInitialize
	OpWriteCall
	OpSellCall
	OpSettle
	OpApprove
	OpWrapNative
)

// kind string constants to avoid magic strings
const (
	kindStringDeposit    = "deposit"
	kindStringWithdraw   = "withdraw"
	kindStringInitialize = "initialize"
	kindStringWriteCall  = "write_call"
	kindStringSellCall   = "sell_call"
	kindStringSettle     = "settle_vault"
	kindStringApprove    = "approve"
	kindStringWrapNative = "wrap_native"
)

// String returns the string representation of the operation kind.
func (k OperationKind) String() string {
	switch k {
	case OpDeposit:
		return kindStringDeposit
	case OpWithdraw:
		return kindStringWithdraw
	case OpInitialize:
		return kindStringInitialize
	case OpWriteCall:
		return kindStringWriteCall
	case OpSellCall:
		return kindStringSellCall
	case OpSettle:
		return kindStringSettle
	case OpApprove:
		return kindStringApprove
	case OpWrapNative:
		return kindStringWrapNative
	default:
		return "unknown"
	}
}

// TxState lifecycle state of a submitted ledger operation.
// States only move forward; Confirmed and Failed are terminal.
type TxState int

const (
	StateCreated TxState = iota
	StateSubmitted
	StateHashReceived
	StateConfirming
	StateConfirmed
	StateFailed
)

// String returns the string representation of the state.
func (s TxState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSubmitted:
		return "submitted"
	case StateHashReceived:
		return "hash_received"
	case StateConfirming:
		return "confirming"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s TxState) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// PendingOperation a single in-flight vault action owned by the dispatcher.
type PendingOperation struct {
	// ID unique operation identifier.
	ID string
	// Kind type of the action.
	Kind OperationKind
	// Amount base-unit amount, nil for amountless actions (settle).
	Amount *big.Int
	// Initiator account that submitted the operation.
	Initiator common.Address
	// State current lifecycle state.
	State TxState
	// Confirmations confirmation count observed so far.
	Confirmations uint64
	// Hash transaction hash once known.
	Hash common.Hash
	// Err terminal failure cause, set only in StateFailed.
	Err error
}

// Advance moves the operation to a later state. Backward transitions and
// transitions out of a terminal state are ignored.
func (p *PendingOperation) Advance(next TxState) {
	if p.State.Terminal() || next < p.State {
		return
	}
	p.State = next
}
