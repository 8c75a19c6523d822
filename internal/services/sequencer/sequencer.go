// Package sequencer composes an approval transaction with a dependent
// action transaction, submitting the action only after the approval is
// confirmed deep enough.
package sequencer

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Web3Tester2023/swap3/internal/clients"
	"github.com/Web3Tester2023/swap3/internal/domain"
	"github.com/Web3Tester2023/swap3/internal/services/tracker"
)

// Stage position of the composed operation in its state machine.
type Stage int

const (
	StageAwaitingApprovalHash Stage = iota
	StageAwaitingApprovalConfirmation
	StageActionSubmitted
	StageAwaitingActionConfirmation
	StageDone
	StageError
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageAwaitingApprovalHash:
		return "awaiting_approval_hash"
	case StageAwaitingApprovalConfirmation:
		return "awaiting_approval_confirmation"
	case StageActionSubmitted:
		return "action_submitted"
	case StageAwaitingActionConfirmation:
		return "awaiting_action_confirmation"
	case StageDone:
		return "done"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// StagedEvent a lifecycle event annotated with the composed operation's stage.
type StagedEvent struct {
	Stage Stage
	Event tracker.Event
}

// ActionFactory builds and submits the dependent action. It is deferred so
// the action can pick up state that exists only after the approval is mined,
// such as the account's next nonce.
type ActionFactory func() (clients.Submission, error)

// Sequencer drives approve-then-act flows against a confirmation threshold.
type Sequencer struct {
	// required confirmation depth the approval must reach before the
	// dependent action is submitted. Injected, commonly 1.
	required uint64
	l        *zap.Logger
}

// New creates a Sequencer with the given confirmation requirement.
func New(required uint64, l *zap.Logger) *Sequencer {
	return &Sequencer{required: required, l: l}
}

// Sequence tracks approval and, once it reaches the required confirmation
// count, invokes action exactly once and tracks the resulting submission.
// An approval failure aborts the whole sequence; the action factory is
// never called. The returned channel closes after StageDone, StageError, or
// when observation stops.
func (s *Sequencer) Sequence(ctx context.Context, approval clients.Submission, action ActionFactory) <-chan StagedEvent {
	out := make(chan StagedEvent)

	go func() {
		defer close(out)

		approvalCtx, cancelApproval := context.WithCancel(ctx)
		defer cancelApproval()

		stage := StageAwaitingApprovalHash
		for ev := range tracker.Track(approvalCtx, approval) {
			switch ev.Kind {
			case tracker.EventError:
				s.l.Warn("approval failed, aborting dependent action", zap.String("cause", ev.Cause))
				ev.Err = errors.Wrap(domain.ErrDependentOperationAborted, ev.Cause)
				emit(ctx, out, StagedEvent{Stage: StageError, Event: ev})
				return

			case tracker.EventHash:
				stage = StageAwaitingApprovalConfirmation
				if !emit(ctx, out, StagedEvent{Stage: stage, Event: ev}) {
					return
				}

			case tracker.EventConfirmation:
				// a single callback may already satisfy the threshold
				if ev.Confirmations >= s.required {
					cancelApproval()
					s.runAction(ctx, out, action, ev)
					return
				}
				if !emit(ctx, out, StagedEvent{Stage: stage, Event: ev}) {
					return
				}
			}
		}
	}()

	return out
}

func (s *Sequencer) runAction(ctx context.Context, out chan<- StagedEvent, action ActionFactory, approvalEv tracker.Event) {
	sub, err := action()
	if err != nil {
		emit(ctx, out, StagedEvent{Stage: StageError, Event: tracker.Event{
			Kind:  tracker.EventError,
			Cause: tracker.ShortCause(err.Error()),
			Err:   err,
		}})
		return
	}

	s.l.Info("approval confirmed, dependent action submitted",
		zap.Uint64("approval_confirmations", approvalEv.Confirmations))

	if !emit(ctx, out, StagedEvent{Stage: StageActionSubmitted, Event: approvalEv}) {
		return
	}

	for ev := range tracker.Track(ctx, sub) {
		switch ev.Kind {
		case tracker.EventError:
			emit(ctx, out, StagedEvent{Stage: StageError, Event: ev})
			return

		case tracker.EventHash:
			if !emit(ctx, out, StagedEvent{Stage: StageAwaitingActionConfirmation, Event: ev}) {
				return
			}

		case tracker.EventConfirmation:
			stage := StageAwaitingActionConfirmation
			if ev.Confirmations >= s.required {
				stage = StageDone
			}
			if !emit(ctx, out, StagedEvent{Stage: stage, Event: ev}) {
				return
			}
			if stage == StageDone {
				return
			}
		}
	}
}

func emit(ctx context.Context, out chan<- StagedEvent, ev StagedEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
