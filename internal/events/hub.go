package events

import "sync"

// OrderSnapshot is what subscribers receive whenever an order changes.
type OrderSnapshot struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
	Rating  *int   `json:"rating,omitempty"`
}

// Hub fans order snapshots out to live subscribers (SSE streams). It is an
// in-process complement to the durable Kafka event stream: Kafka feeds
// downstream consumers, the hub feeds customers currently watching an order.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint]map[chan OrderSnapshot]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[chan OrderSnapshot]struct{})}
}

// Subscribe returns a buffered channel of snapshots for the given order and
// an unsubscribe func. Unsubscribe closes the channel; it is safe to call
// more than once.
func (h *Hub) Subscribe(orderID uint) (<-chan OrderSnapshot, func()) {
	ch := make(chan OrderSnapshot, 8)

	h.mu.Lock()
	if h.subs[orderID] == nil {
		h.subs[orderID] = make(map[chan OrderSnapshot]struct{})
	}
	h.subs[orderID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[orderID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, orderID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Publish delivers the snapshot to every subscriber of the order. Slow
// subscribers whose buffer is full are skipped rather than blocking the
// request that triggered the update.
func (h *Hub) Publish(snap OrderSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[snap.OrderID] {
		select {
		case ch <- snap:
		default:
		}
	}
}
