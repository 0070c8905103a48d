package chat

import (
	"github.com/google/uuid"

	"github.com/motormarket/motorchat-server/internal/metrics"
)

// Client is one live socket connection as seen by the messaging core.
type Client struct {
	ID     string
	UserID int64
	Name   string
	Events chan *Event
}

// NewClient constructs a connection handle with an initialized event channel.
func NewClient(userID int64, name string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Events: make(chan *Event, 32),
	}
}

// Deliver hands an event to the connection without blocking. Slow consumers
// lose events; real-time delivery is at-most-once and clients reconcile over
// REST.
func (c *Client) Deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		metrics.EventsDropped.Inc()
		return false
	}
}
