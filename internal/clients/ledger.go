// Package clients contains ledger client implementations used by the vault
// orchestration services.
package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event a single asynchronous notification about a submitted transaction.
// Exactly one of the optional fields is meaningful: Err for failures,
// Confirmations > 0 for confirmation progress, otherwise the hash
// announcement.
type Event struct {
	// Hash transaction hash, set once known.
	Hash common.Hash
	// Confirmations blocks-deep count, non-decreasing per submission.
	Confirmations uint64
	// Err terminal failure reported by the ledger.
	Err error
}

// Submission handle to a broadcast transaction. The channel is closed when
// the ledger stops reporting, after an error, or when the submit context is
// cancelled. A broadcast transaction itself is irrevocable.
type Submission interface {
	Events() <-chan Event
}

// Ledger is the JSON-RPC surface the orchestration core consumes.
type Ledger interface {
	// SubmitCall signs and broadcasts a contract call and returns its
	// submission handle.
	SubmitCall(ctx context.Context, to common.Address, value *big.Int, data []byte) (Submission, error)
	// CallContract executes a read-only contract call.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	// GetBalance returns the native-currency balance in base units.
	GetBalance(ctx context.Context, account common.Address) (*big.Int, error)
}
