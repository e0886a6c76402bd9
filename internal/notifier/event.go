package notifier

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	EventNewOrder           = "new-order"
	EventOrderStatusUpdated = "order-status-updated"
)

// Event is one broadcast. Order is the joined order snapshot.
type Event struct {
	Name  string `json:"event"`
	Order any    `json:"order"`
}

// Publisher delivers events to every connected viewer, best-effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Encode renders the wire frame {"event": ..., "order": ...}.
func Encode(ev Event) ([]byte, error) {
	if ev.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Name, err)
	}
	return b, nil
}
