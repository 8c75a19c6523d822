package sequencer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Web3Tester2023/swap3/internal/clients"
	"github.com/Web3Tester2023/swap3/internal/domain"
)

type scriptedSubmission struct {
	events chan clients.Event
}

func newScriptedSubmission(events ...clients.Event) *scriptedSubmission {
	ch := make(chan clients.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &scriptedSubmission{events: ch}
}

func (s *scriptedSubmission) Events() <-chan clients.Event {
	return s.events
}

func collect(t *testing.T, ch <-chan StagedEvent) []StagedEvent {
	t.Helper()
	var out []StagedEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for sequencer events")
		}
	}
}

func TestSequenceHappyPath(t *testing.T) {
	approvalHash := common.HexToHash("0xaaa1")
	actionHash := common.HexToHash("0xbbb1")

	approval := newScriptedSubmission(
		clients.Event{Hash: approvalHash},
		clients.Event{Hash: approvalHash, Confirmations: 1},
	)

	var actionCalls atomic.Int32
	action := func() (clients.Submission, error) {
		actionCalls.Add(1)
		return newScriptedSubmission(
			clients.Event{Hash: actionHash},
			clients.Event{Hash: actionHash, Confirmations: 1},
		), nil
	}

	seq := New(1, zap.NewNop())
	events := collect(t, seq.Sequence(context.Background(), approval, action))

	assert.Equal(t, int32(1), actionCalls.Load(), "action must be submitted exactly once")

	require.NotEmpty(t, events)
	assert.Equal(t, StageAwaitingApprovalConfirmation, events[0].Stage)

	last := events[len(events)-1]
	assert.Equal(t, StageDone, last.Stage)
	assert.Equal(t, actionHash, last.Event.Hash)

	var sawActionSubmitted bool
	for _, ev := range events {
		if ev.Stage == StageActionSubmitted {
			sawActionSubmitted = true
		}
	}
	assert.True(t, sawActionSubmitted)
}

// The very first confirmation callback may already satisfy the threshold.
func TestSequenceFirstConfirmationSatisfiesThreshold(t *testing.T) {
	approval := newScriptedSubmission(
		clients.Event{Hash: common.HexToHash("0xaaa2")},
		clients.Event{Hash: common.HexToHash("0xaaa2"), Confirmations: 3},
	)

	var actionCalls atomic.Int32
	action := func() (clients.Submission, error) {
		actionCalls.Add(1)
		return newScriptedSubmission(
			clients.Event{Hash: common.HexToHash("0xbbb2")},
			clients.Event{Hash: common.HexToHash("0xbbb2"), Confirmations: 3},
		), nil
	}

	seq := New(3, zap.NewNop())
	events := collect(t, seq.Sequence(context.Background(), approval, action))

	assert.Equal(t, int32(1), actionCalls.Load())
	assert.Equal(t, StageDone, events[len(events)-1].Stage)
}

func TestSequenceApprovalErrorAbortsAction(t *testing.T) {
	approval := newScriptedSubmission(
		clients.Event{Hash: common.HexToHash("0xaaa3")},
		clients.Event{Err: errors.New("execution reverted: allowance")},
	)

	var actionCalls atomic.Int32
	action := func() (clients.Submission, error) {
		actionCalls.Add(1)
		return nil, nil
	}

	seq := New(1, zap.NewNop())
	events := collect(t, seq.Sequence(context.Background(), approval, action))

	assert.Zero(t, actionCalls.Load(), "action factory must never be invoked after approval failure")

	last := events[len(events)-1]
	assert.Equal(t, StageError, last.Stage)
	assert.ErrorIs(t, last.Event.Err, domain.ErrDependentOperationAborted)
}

func TestSequenceActionErrorEndsSequence(t *testing.T) {
	approval := newScriptedSubmission(
		clients.Event{Hash: common.HexToHash("0xaaa4")},
		clients.Event{Hash: common.HexToHash("0xaaa4"), Confirmations: 1},
	)

	var actionCalls atomic.Int32
	action := func() (clients.Submission, error) {
		actionCalls.Add(1)
		return newScriptedSubmission(
			clients.Event{Hash: common.HexToHash("0xbbb4")},
			clients.Event{Err: errors.New("nonce too low")},
		), nil
	}

	seq := New(1, zap.NewNop())
	events := collect(t, seq.Sequence(context.Background(), approval, action))

	assert.Equal(t, int32(1), actionCalls.Load(), "no resubmission after action failure")

	last := events[len(events)-1]
	assert.Equal(t, StageError, last.Stage)
	assert.Equal(t, "nonce too low", last.Event.Cause)
	assert.NotErrorIs(t, last.Event.Err, domain.ErrDependentOperationAborted)
}

func TestSequenceFactoryErrorSurfaces(t *testing.T) {
	approval := newScriptedSubmission(
		clients.Event{Hash: common.HexToHash("0xaaa5")},
		clients.Event{Hash: common.HexToHash("0xaaa5"), Confirmations: 1},
	)

	action := func() (clients.Submission, error) {
		return nil, errors.New("gas estimation failed: insufficient funds")
	}

	seq := New(1, zap.NewNop())
	events := collect(t, seq.Sequence(context.Background(), approval, action))

	last := events[len(events)-1]
	assert.Equal(t, StageError, last.Stage)
	assert.Equal(t, "gas estimation failed", last.Event.Cause)
}
