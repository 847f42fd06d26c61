package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub()

	ch1, unsub1 := h.Subscribe(1)
	ch2, unsub2 := h.Subscribe(1)
	defer unsub1()
	defer unsub2()

	h.Publish(OrderSnapshot{OrderID: 1, Status: "in-progress"})

	require.Equal(t, "in-progress", (<-ch1).Status)
	require.Equal(t, "in-progress", (<-ch2).Status)
}

func TestHubScopesByOrder(t *testing.T) {
	h := NewHub()

	ch, unsub := h.Subscribe(2)
	defer unsub()

	h.Publish(OrderSnapshot{OrderID: 1, Status: "ready"})

	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot for other order: %+v", snap)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()

	ch, unsub := h.Subscribe(1)
	unsub()
	unsub() // idempotent

	_, ok := <-ch
	require.False(t, ok)

	// publishing after unsubscribe must not panic
	h.Publish(OrderSnapshot{OrderID: 1, Status: "ready"})
}

func TestHubSkipsSlowSubscriber(t *testing.T) {
	h := NewHub()

	ch, unsub := h.Subscribe(1)
	defer unsub()

	// fill the buffer and keep going; publish must never block
	for i := 0; i < 20; i++ {
		h.Publish(OrderSnapshot{OrderID: 1, Status: "new"})
	}
	require.Equal(t, "new", (<-ch).Status)
}
