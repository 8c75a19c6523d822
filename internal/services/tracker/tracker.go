// Package tracker turns raw ledger submission notifications into an ordered
// lifecycle event stream with classified error messages.
package tracker

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Web3Tester2023/swap3/internal/clients"
)

// maxCauseLen caps the classified error message when it carries no colon.
const maxCauseLen = 40

// EventKind lifecycle event discriminator.
type EventKind int

const (
	// EventHash the ledger assigned a transaction hash.
	EventHash EventKind = iota
	// EventConfirmation one more confirmation was observed.
	EventConfirmation
	// EventError the submission failed; always the last event.
	EventError
)

// Event a single lifecycle notification for a tracked submission.
type Event struct {
	Kind EventKind
	// Hash transaction hash, set from the first hash event onward.
	Hash common.Hash
	// Confirmations confirmation count for EventConfirmation.
	Confirmations uint64
	// Cause short human-readable failure cause for EventError.
	Cause string
	// Err underlying error for EventError.
	Err error
}

// Track observes a ledger submission and relays its lifecycle events in the
// order the ledger reports them. At most one EventError is ever delivered;
// it terminates the stream. The channel is closed when the ledger stops
// reporting or ctx is cancelled. Cancelling does not revoke the broadcast
// transaction; it only stops observation.
func Track(ctx context.Context, sub clients.Submission) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		var hash common.Hash
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}

				if ev.Hash != (common.Hash{}) {
					hash = ev.Hash
				}

				var mapped Event
				switch {
				case ev.Err != nil:
					mapped = Event{Kind: EventError, Hash: hash, Cause: ShortCause(ev.Err.Error()), Err: ev.Err}
				case ev.Confirmations > 0:
					mapped = Event{Kind: EventConfirmation, Hash: hash, Confirmations: ev.Confirmations}
				default:
					mapped = Event{Kind: EventHash, Hash: hash}
				}

				select {
				case out <- mapped:
				case <-ctx.Done():
					return
				}

				if mapped.Kind == EventError {
					return
				}
			}
		}
	}()

	return out
}

// ShortCause extracts a short human-readable cause from a raw ledger error
// message: the substring before the first colon, or the first 40 characters
// when no colon exists. The raw message is never surfaced whole.
func ShortCause(msg string) string {
	if i := strings.Index(msg, ":"); i > 0 {
		return msg[:i]
	}
	if len(msg) > maxCauseLen {
		return msg[:maxCauseLen]
	}
	return msg
}
