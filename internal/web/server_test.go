package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Web3Tester2023/swap3/internal/domain"
)

func TestPublishReachesSubscriber(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	ch, unsubscribe := s.subscribe()
	defer unsubscribe()

	// the initial (zero) status is delivered on subscription
	first := <-ch
	assert.Empty(t, first.Header)

	s.Publish(domain.Status{Header: "TX Hash Received", Icon: domain.IconLoading})

	select {
	case got := <-ch:
		assert.Equal(t, "TX Hash Received", got.Header)
	case <-time.After(time.Second):
		t.Fatal("status update not delivered")
	}
}

func TestLateSubscriberSeesLastStatus(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.Publish(domain.Status{Header: "Deposit TX Confirmed", Icon: domain.IconConfirmed})

	ch, unsubscribe := s.subscribe()
	defer unsubscribe()

	got := <-ch
	assert.Equal(t, "Deposit TX Confirmed", got.Header)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	_, unsubscribe := s.subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		// more updates than the subscriber buffer holds
		for i := 0; i < 100; i++ {
			s.Publish(domain.Status{Header: "update"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	require.NotNil(t, s)
}
