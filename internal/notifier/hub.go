package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultBuffer = 32

// Hub fans frames out to in-process subscribers. A subscriber that cannot
// keep up misses frames; nothing is replayed.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]chan []byte
	buffer int
	closed bool
	log    logrus.FieldLogger
}

func NewHub(buffer int, log logrus.FieldLogger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]chan []byte),
		buffer: buffer,
		log:    log,
	}
}

var _ Publisher = (*Hub)(nil)

// Subscribe registers a viewer. cancel is idempotent and closes frames.
func (h *Hub) Subscribe() (id string, frames <-chan []byte, cancel func()) {
	id = uuid.NewString()
	ch := make(chan []byte, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return id, ch, func() {}
	}
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return id, ch, cancel
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	frame, err := Encode(ev)
	if err != nil {
		return err
	}
	h.Broadcast(frame)
	return nil
}

// Broadcast hands frame to every subscriber without blocking. Frames reach
// each subscriber in the order Broadcast was called.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- frame:
		default:
			h.log.WithField("subscriber", id).Warn("subscriber buffer full, frame dropped")
		}
	}
}

// Len is the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
