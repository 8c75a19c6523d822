package clients

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SimLedger is an in-memory ledger for local dry runs. Every submission is
// assigned a synthetic hash and confirmed after a short delay, so the full
// orchestration pipeline can be exercised without an RPC endpoint.
type SimLedger struct {
	mu            sync.Mutex
	balances      map[common.Address]*big.Int
	confirmations uint64
	delay         time.Duration
	l             *zap.Logger
}

// NewSimLedger creates a simulated ledger that reports confirmations
// confirmation events per submission.
func NewSimLedger(confirmations uint64, delay time.Duration, l *zap.Logger) *SimLedger {
	return &SimLedger{
		balances:      make(map[common.Address]*big.Int),
		confirmations: confirmations,
		delay:         delay,
		l:             l,
	}
}

// Fund credits a simulated native balance to account.
func (s *SimLedger) Fund(account common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] = new(big.Int).Set(amount)
}

// GetBalance returns the simulated native balance of account.
func (s *SimLedger) GetBalance(_ context.Context, account common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[account]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

// CallContract is not supported by the simulated ledger; vault state for
// dry runs is supplied directly by the caller.
func (s *SimLedger) CallContract(context.Context, common.Address, []byte) ([]byte, error) {
	return nil, errors.New("contract reads are not available in simulation")
}

// SubmitCall records the call and emits a scripted hash-then-confirmations
// event sequence.
func (s *SimLedger) SubmitCall(ctx context.Context, to common.Address, value *big.Int, data []byte) (Submission, error) {
	hash := crypto.Keccak256Hash([]byte(uuid.New().String()))

	s.l.Info("simulated transaction",
		zap.String("hash", hash.Hex()),
		zap.String("to", to.Hex()),
		zap.Int("calldata_bytes", len(data)))

	sub := &ethSubmission{events: make(chan Event, eventBuffer)}
	go func() {
		defer close(sub.events)
		sub.events <- Event{Hash: hash}
		for i := uint64(1); i <= s.confirmations; i++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.delay):
			}
			select {
			case sub.events <- Event{Hash: hash, Confirmations: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}
