// Package dispatcher is the façade over the vault: one entry point per user
// action, each wiring amount normalization, balance checking and transaction
// sequencing, reporting a single unified status to the presentation layer.
package dispatcher

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Web3Tester2023/swap3/internal/clients"
	"github.com/Web3Tester2023/swap3/internal/domain"
	"github.com/Web3Tester2023/swap3/internal/services/guard"
	"github.com/Web3Tester2023/swap3/internal/services/normalizer"
	"github.com/Web3Tester2023/swap3/internal/services/sequencer"
	"github.com/Web3Tester2023/swap3/internal/services/tracker"
)

// Binding is the contract surface the dispatcher drives.
type Binding interface {
	ApproveAsset(ctx context.Context, amount *big.Int) (clients.Submission, error)
	Deposit(ctx context.Context, amount *big.Int) (clients.Submission, error)
	Withdraw(ctx context.Context, amount *big.Int) (clients.Submission, error)
	Initialize(ctx context.Context, amount *big.Int) (clients.Submission, error)
	WriteCalls(ctx context.Context, amount *big.Int, oToken, marginPool common.Address) (clients.Submission, error)
	SellCalls(ctx context.Context, amount, premium *big.Int, otherParty common.Address) (clients.Submission, error)
	SettleVault(ctx context.Context) (clients.Submission, error)
	WrapNative(ctx context.Context, amount *big.Int) (clients.Submission, error)
	AssetBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// NativeBalancer reads the account's native-currency balance.
type NativeBalancer interface {
	GetBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// StateProvider supplies the current vault state snapshot. It is owned by an
// external collaborator; the dispatcher never computes vault state itself.
type StateProvider func(ctx context.Context) (*domain.VaultState, error)

// Dispatcher owns the single in-flight operation for a UI session.
type Dispatcher struct {
	binding  Binding
	ledger   NativeBalancer
	state    StateProvider
	seq      *sequencer.Sequencer
	account  common.Address
	required uint64
	now      func() time.Time
	l        *zap.Logger

	mu       sync.Mutex
	busy     bool
	current  *domain.PendingOperation
	status   domain.Status
	onStatus func(domain.Status)
}

// New creates a dispatcher for one account session. required is the
// confirmation depth at which an operation counts as done and at which an
// approval unlocks its dependent action.
func New(binding Binding, ledger NativeBalancer, state StateProvider, account common.Address, required uint64, l *zap.Logger) *Dispatcher {
	return &Dispatcher{
		binding:  binding,
		ledger:   ledger,
		state:    state,
		seq:      sequencer.New(required, l),
		account:  account,
		required: required,
		now:      time.Now,
		l:        l,
	}
}

// OnStatus registers a callback fired on every status change.
func (d *Dispatcher) OnStatus(fn func(domain.Status)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onStatus = fn
}

// Status returns the current status snapshot.
func (d *Dispatcher) Status() domain.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Busy reports whether an operation is currently in flight.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// CheckAmount runs the keystroke-time balance check for a candidate deposit
// amount. It is read-only against cached collaborator balances and updates
// the status with a conversion suggestion when one applies.
func (d *Dispatcher) CheckAmount(ctx context.Context, amount string) (domain.BalanceCheck, error) {
	vs, err := d.state(ctx)
	if err != nil {
		return domain.BalanceCheck{}, err
	}

	requested, err := normalizer.Normalize(amount, vs.AssetDecimals)
	if err != nil {
		return domain.BalanceCheck{}, err
	}

	assetBal, err := d.binding.AssetBalance(ctx, d.account)
	if err != nil {
		return domain.BalanceCheck{}, err
	}
	nativeBal, err := d.ledger.GetBalance(ctx, d.account)
	if err != nil {
		return domain.BalanceCheck{}, err
	}

	check := guard.Check(requested, assetBal, nativeBal)
	switch check.Verdict {
	case domain.BalanceInsufficientTotal:
		d.setStatus(domain.Status{
			Header: "Error", Message: domain.ErrInsufficientFunds.Error(),
			IsError: true, Icon: domain.IconError,
		})
	case domain.BalanceRequiresConversion:
		conv := &domain.RequiresConversionError{Shortfall: check.Shortfall, Symbol: vs.AssetSymbol, Decimals: vs.AssetDecimals}
		d.setStatus(domain.Status{
			Header: "Error", Message: conv.Error(),
			IsError: true, Icon: domain.IconError,
		})
	}
	return check, nil
}

// Deposit exchanges asset tokens for vault shares: approve, await the
// confirmation threshold, then deposit.
func (d *Dispatcher) Deposit(ctx context.Context, amount string) error {
	return d.approveThenCall(ctx, domain.OpDeposit, "Deposit", amount, d.binding.Deposit)
}

// Initialize seeds an empty vault through the same approve-then-call flow.
func (d *Dispatcher) Initialize(ctx context.Context, amount string) error {
	return d.approveThenCall(ctx, domain.OpInitialize, "Initialize", amount, d.binding.Initialize)
}

func (d *Dispatcher) approveThenCall(ctx context.Context, kind domain.OperationKind, label, amount string,
	call func(context.Context, *big.Int) (clients.Submission, error)) error {

	vs, err := d.state(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read vault state")
	}

	normalized, err := normalizer.NormalizePositive(amount, vs.AssetDecimals)
	if err != nil {
		d.formError()
		return err
	}

	if err := d.checkFunds(ctx, normalized, vs); err != nil {
		return err
	}

	release, err := d.acquire(kind, normalized)
	if err != nil {
		return err
	}

	// the operation owns its observation lifetime; release stops the
	// receipt watchers once a terminal state is recorded
	opCtx, cancel := context.WithCancel(ctx)
	release = stopOnRelease(release, cancel)

	approval, err := d.binding.ApproveAsset(opCtx, normalized)
	if err != nil {
		d.failStatus(label, tracker.ShortCause(err.Error()))
		release(domain.StateFailed, err)
		return errors.Wrap(err, "approval submission failed")
	}

	events := d.seq.Sequence(opCtx, approval, func() (clients.Submission, error) {
		return call(opCtx, normalized)
	})

	go d.runSequenced(label, events, release)
	return nil
}

// Withdraw burns vault shares. No approval step is needed, but the vault's
// withdrawal window must be open.
func (d *Dispatcher) Withdraw(ctx context.Context, amount string) error {
	vs, err := d.state(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read vault state")
	}

	if !vs.WithdrawalWindowOpen(d.now()) {
		d.setStatus(domain.Status{
			Header: "Error", Message: "withdrawal window is closed",
			IsError: true, Icon: domain.IconError,
		})
		return domain.ErrWithdrawalWindowClosed
	}

	normalized, err := normalizer.NormalizePositive(amount, vs.AssetDecimals)
	if err != nil {
		d.formError()
		return err
	}

	return d.single(ctx, domain.OpWithdraw, "Withdraw", normalized, func(ctx context.Context) (clients.Submission, error) {
		return d.binding.Withdraw(ctx, normalized)
	})
}

// WriteCall locks vault collateral to mint option tokens. Manager only.
func (d *Dispatcher) WriteCall(ctx context.Context, amount, oTokenAddress, marginPoolAddress string) error {
	vs, err := d.state(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read vault state")
	}

	normalized, err := normalizer.NormalizePositive(amount, vs.AssetDecimals)
	if err != nil {
		d.formError()
		return err
	}

	oToken, err := parseAddress(oTokenAddress)
	if err != nil {
		d.formError()
		return err
	}
	marginPool, err := parseAddress(marginPoolAddress)
	if err != nil {
		d.formError()
		return err
	}

	return d.single(ctx, domain.OpWriteCall, "Write Call", normalized, func(ctx context.Context) (clients.Submission, error) {
		return d.binding.WriteCalls(ctx, normalized, oToken, marginPool)
	})
}

// SellCall sells minted option tokens for a premium. The contract amount is
// denominated in fixed 1e8 option units; the premium uses the asset's own
// precision.
func (d *Dispatcher) SellCall(ctx context.Context, amount, premiumAmount, otherPartyAddress string) error {
	vs, err := d.state(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read vault state")
	}

	contracts, err := normalizer.NormalizeOption(amount)
	if err != nil {
		d.formError()
		return err
	}
	premium, err := normalizer.NormalizePositive(premiumAmount, vs.AssetDecimals)
	if err != nil {
		d.formError()
		return err
	}
	otherParty, err := parseAddress(otherPartyAddress)
	if err != nil {
		d.formError()
		return err
	}

	return d.single(ctx, domain.OpSellCall, "Sell Call", contracts, func(ctx context.Context) (clients.Submission, error) {
		return d.binding.SellCalls(ctx, contracts, premium, otherParty)
	})
}

// SettleVault settles the expired round. Manager only, no amount.
func (d *Dispatcher) SettleVault(ctx context.Context) error {
	return d.single(ctx, domain.OpSettle, "Settle Vault", nil, func(ctx context.Context) (clients.Submission, error) {
		return d.binding.SettleVault(ctx)
	})
}

// WrapNative converts native currency into its wrapped token form, typically
// for exactly the shortfall suggested by a balance check.
func (d *Dispatcher) WrapNative(ctx context.Context, amount string) error {
	nativeBal, err := d.ledger.GetBalance(ctx, d.account)
	if err != nil {
		return errors.Wrap(err, "failed to read native balance")
	}

	// native currency always uses the 18-decimal base scale
	normalized, err := normalizer.NormalizePositive(amount, 18)
	if err != nil {
		d.formError()
		return err
	}

	if normalized.Cmp(nativeBal) > 0 {
		d.setStatus(domain.Status{
			Header: "Error", Message: "not enough ether",
			IsError: true, Icon: domain.IconError,
		})
		return domain.ErrInsufficientFunds
	}

	return d.single(ctx, domain.OpWrapNative, "Converting to WETH", normalized, func(ctx context.Context) (clients.Submission, error) {
		return d.binding.WrapNative(ctx, normalized)
	})
}

// Dismiss acknowledges a terminal status, clearing the display and releasing
// the in-flight flag. Dismissing a non-terminal operation is a no-op: the
// broadcast transaction cannot be recalled. Idempotent.
func (d *Dispatcher) Dismiss() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && !d.current.State.Terminal() {
		return
	}

	d.current = nil
	d.busy = false
	d.status = domain.Status{Icon: domain.IconLoading}
	d.notifyLocked()
}

// single submits one transaction with no approval dependency and drives its
// lifecycle in the background.
func (d *Dispatcher) single(ctx context.Context, kind domain.OperationKind, label string, amount *big.Int,
	submit func(ctx context.Context) (clients.Submission, error)) error {

	release, err := d.acquire(kind, amount)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithCancel(ctx)
	release = stopOnRelease(release, cancel)

	sub, err := submit(opCtx)
	if err != nil {
		d.failStatus(label, tracker.ShortCause(err.Error()))
		release(domain.StateFailed, err)
		return errors.Wrapf(err, "%s submission failed", kind)
	}

	go d.runSingle(label, tracker.Track(opCtx, sub), release)
	return nil
}

// stopOnRelease chains watcher shutdown onto the terminal-state release.
func stopOnRelease(release func(domain.TxState, error), cancel context.CancelFunc) func(domain.TxState, error) {
	return func(final domain.TxState, err error) {
		release(final, err)
		cancel()
	}
}

// acquire takes the in-flight flag and publishes the sending status. The
// returned release func records the terminal state and frees the flag.
func (d *Dispatcher) acquire(kind domain.OperationKind, amount *big.Int) (func(domain.TxState, error), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.busy {
		return nil, domain.ErrOperationInProgress
	}

	d.busy = true
	d.current = &domain.PendingOperation{
		ID:        uuid.New().String(),
		Kind:      kind,
		Amount:    amount,
		Initiator: d.account,
		State:     domain.StateSubmitted,
	}
	d.status = domain.Status{
		Header: "MetaMask", Message: "Sending Transaction",
		Icon: domain.IconLoading, InputsDisabled: true,
	}
	d.notifyLocked()

	d.l.Info("operation accepted",
		zap.String("id", d.current.ID),
		zap.String("kind", kind.String()))

	return func(final domain.TxState, err error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.current != nil {
			d.current.Advance(final)
			d.current.Err = err
		}
		d.busy = false
		d.status.InputsDisabled = false
		d.notifyLocked()
	}, nil
}

func (d *Dispatcher) checkFunds(ctx context.Context, requested *big.Int, vs *domain.VaultState) error {
	assetBal, err := d.binding.AssetBalance(ctx, d.account)
	if err != nil {
		return errors.Wrap(err, "failed to read asset balance")
	}
	nativeBal, err := d.ledger.GetBalance(ctx, d.account)
	if err != nil {
		return errors.Wrap(err, "failed to read native balance")
	}

	check := guard.Check(requested, assetBal, nativeBal)
	switch check.Verdict {
	case domain.BalanceInsufficientTotal:
		d.setStatus(domain.Status{
			Header: "Error", Message: domain.ErrInsufficientFunds.Error(),
			IsError: true, Icon: domain.IconError,
		})
		return domain.ErrInsufficientFunds
	case domain.BalanceRequiresConversion:
		conv := &domain.RequiresConversionError{Shortfall: check.Shortfall, Symbol: vs.AssetSymbol, Decimals: vs.AssetDecimals}
		d.setStatus(domain.Status{
			Header: "Error", Message: conv.Error(),
			IsError: true, Icon: domain.IconError,
		})
		return conv
	}
	return nil
}

func (d *Dispatcher) runSingle(label string, events <-chan tracker.Event, release func(domain.TxState, error)) {
	for ev := range events {
		switch ev.Kind {
		case tracker.EventHash:
			d.recordHash(ev.Hash)
			d.setStatus(domain.Status{
				Header: "TX Hash Received", Message: ev.Hash.Hex(),
				TxHash: ev.Hash.Hex(), Icon: domain.IconLoading, InputsDisabled: true,
			})

		case tracker.EventConfirmation:
			d.recordConfirmation(ev.Confirmations)
			d.setStatus(domain.Status{
				Header:  label + " TX Confirmed",
				Message: fmt.Sprintf("%d Confirmation Received", ev.Confirmations),
				TxHash:  d.txHash(), Icon: domain.IconConfirmed, InputsDisabled: true,
			})
			if ev.Confirmations >= d.required {
				release(domain.StateConfirmed, nil)
				return
			}

		case tracker.EventError:
			d.failStatus(label, ev.Cause)
			release(domain.StateFailed, ev.Err)
			return
		}
	}
	// observation ended without a terminal event; the flag must not leak
	release(domain.StateFailed, errors.New("ledger stopped reporting"))
}

func (d *Dispatcher) runSequenced(label string, events <-chan sequencer.StagedEvent, release func(domain.TxState, error)) {
	for ev := range events {
		switch ev.Stage {
		case sequencer.StageAwaitingApprovalConfirmation:
			if ev.Event.Kind == tracker.EventHash {
				d.recordHash(ev.Event.Hash)
				d.setStatus(domain.Status{
					Header: "TX Hash Received", Message: ev.Event.Hash.Hex(),
					TxHash: ev.Event.Hash.Hex(), Icon: domain.IconLoading, InputsDisabled: true,
				})
			}

		case sequencer.StageActionSubmitted:
			d.setStatus(domain.Status{
				Header: "Approval TX Confirmed", Message: "Confirmation Received",
				TxHash: d.txHash(), Icon: domain.IconConfirmed, InputsDisabled: true,
			})

		case sequencer.StageAwaitingActionConfirmation:
			if ev.Event.Kind == tracker.EventHash {
				d.recordHash(ev.Event.Hash)
				d.setStatus(domain.Status{
					Header: "TX Hash Received", Message: ev.Event.Hash.Hex(),
					TxHash: ev.Event.Hash.Hex(), Icon: domain.IconLoading, InputsDisabled: true,
				})
			} else {
				d.recordConfirmation(ev.Event.Confirmations)
			}

		case sequencer.StageDone:
			d.recordConfirmation(ev.Event.Confirmations)
			d.setStatus(domain.Status{
				Header:  label + " TX Confirmed",
				Message: fmt.Sprintf("%d Confirmation Received", ev.Event.Confirmations),
				TxHash:  d.txHash(), Icon: domain.IconConfirmed, InputsDisabled: true,
			})
			release(domain.StateConfirmed, nil)
			return

		case sequencer.StageError:
			d.failStatus(label, ev.Event.Cause)
			release(domain.StateFailed, ev.Event.Err)
			return
		}
	}
	release(domain.StateFailed, errors.New("ledger stopped reporting"))
}

func (d *Dispatcher) recordHash(hash common.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.Hash = hash
		d.current.Advance(domain.StateHashReceived)
	}
}

func (d *Dispatcher) recordConfirmation(count uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.Confirmations = count
		d.current.Advance(domain.StateConfirming)
	}
}

func (d *Dispatcher) txHash() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil || d.current.Hash == (common.Hash{}) {
		return ""
	}
	return d.current.Hash.Hex()
}

func (d *Dispatcher) formError() {
	d.setStatus(domain.Status{
		Header: "Error", Message: "Form input Error",
		IsError: true, Icon: domain.IconError,
	})
}

func (d *Dispatcher) failStatus(label, cause string) {
	d.setStatus(domain.Status{
		Header: label + " TX Error", Message: cause,
		IsError: true, TxHash: d.txHash(), Icon: domain.IconError,
	})
}

func (d *Dispatcher) setStatus(s domain.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = s
	d.notifyLocked()
}

func (d *Dispatcher) notifyLocked() {
	if d.onStatus != nil {
		d.onStatus(d.status)
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(domain.ErrInvalidAmount, "invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
