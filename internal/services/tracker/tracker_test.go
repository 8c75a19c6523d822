package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Web3Tester2023/swap3/internal/clients"
)

// scriptedSubmission replays a fixed event sequence.
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

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for tracker events")
		}
	}
}

func TestTrackOrdering(t *testing.T) {
	hash := common.HexToHash("0xabc1")
	sub := newScriptedSubmission(
		clients.Event{Hash: hash},
		clients.Event{Hash: hash, Confirmations: 1},
		clients.Event{Hash: hash, Confirmations: 2},
		clients.Event{Hash: hash, Confirmations: 3},
	)

	events := collect(t, Track(context.Background(), sub))

	require.Len(t, events, 4)
	assert.Equal(t, EventHash, events[0].Kind)
	assert.Equal(t, hash, events[0].Hash)
	for i, want := range []uint64{1, 2, 3} {
		assert.Equal(t, EventConfirmation, events[i+1].Kind)
		assert.Equal(t, want, events[i+1].Confirmations)
	}
}

func TestTrackErrorTerminatesStream(t *testing.T) {
	hash := common.HexToHash("0xabc2")
	sub := newScriptedSubmission(
		clients.Event{Hash: hash},
		clients.Event{Hash: hash, Err: errors.New("execution reverted: out of funds")},
		// anything after an error must never be delivered
		clients.Event{Hash: hash, Confirmations: 5},
	)

	events := collect(t, Track(context.Background(), sub))

	require.Len(t, events, 2)
	last := events[1]
	assert.Equal(t, EventError, last.Kind)
	assert.Equal(t, "execution reverted", last.Cause)
	require.Error(t, last.Err)
}

func TestTrackSingleErrorOnly(t *testing.T) {
	sub := newScriptedSubmission(
		clients.Event{Err: errors.New("first failure")},
		clients.Event{Err: errors.New("second failure")},
	)

	events := collect(t, Track(context.Background(), sub))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
}

func TestTrackContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &scriptedSubmission{events: make(chan clients.Event)} // never emits

	ch := Track(ctx, sub)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("tracker did not stop after context cancellation")
	}
}

func TestShortCause(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		expected string
	}{
		{
			name:     "cuts at first colon",
			msg:      "execution reverted: ERC20: transfer amount exceeds allowance",
			expected: "execution reverted",
		},
		{
			name:     "no colon, short message kept whole",
			msg:      "nonce too low",
			expected: "nonce too low",
		},
		{
			name:     "no colon, long message truncated to 40 chars",
			msg:      "this is a very long raw ledger error message without any separator",
			expected: "this is a very long raw ledger error mes",
		},
		{
			name:     "leading colon falls back to length cap",
			msg:      ": odd message",
			expected: ": odd message",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ShortCause(tc.msg))
		})
	}
}
