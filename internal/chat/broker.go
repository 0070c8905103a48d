package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/metrics"
)

// Broker manages ephemeral pub/sub groups keyed by conversation id and fans
// events out to their members. Membership is never persisted.
type Broker struct {
	mu          sync.RWMutex
	registry    *Registry
	rooms       map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}
	log         *zerolog.Logger
}

// NewBroker constructs a broker backed by the given registry.
func NewBroker(registry *Registry, logger *zerolog.Logger) *Broker {
	return &Broker{
		registry:    registry,
		rooms:       make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
		log:         logger,
	}
}

// Join subscribes the client to a conversation room.
func (b *Broker) Join(c *Client, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room, ok := b.rooms[key]
	if !ok {
		room = make(map[*Client]struct{})
		b.rooms[key] = room
	}
	room[c] = struct{}{}

	member, ok := b.memberships[c]
	if !ok {
		member = make(map[string]struct{})
		b.memberships[c] = member
	}
	member[key] = struct{}{}
}

// Leave unsubscribes the client from a conversation room.
func (b *Broker) Leave(c *Client, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(c, key)
}

// DropClient removes the client from every room it joined.
func (b *Broker) DropClient(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key := range b.memberships[c] {
		b.leaveLocked(c, key)
	}
}

func (b *Broker) leaveLocked(c *Client, key string) {
	if room, ok := b.rooms[key]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(b.rooms, key)
		}
	}
	if member, ok := b.memberships[c]; ok {
		delete(member, key)
		if len(member) == 0 {
			delete(b.memberships, c)
		}
	}
}

// Publish delivers an event to every room member except the optional excluded
// handle. Excluding the sender's own socket avoids echoing a message back to
// its author.
func (b *Broker) Publish(key string, ev *Event, exclude *Client) {
	b.mu.RLock()
	members := make([]*Client, 0, len(b.rooms[key]))
	for c := range b.rooms[key] {
		if c != exclude {
			members = append(members, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range members {
		if c.Deliver(ev) {
			metrics.EventsDelivered.WithLabelValues("room").Inc()
		} else {
			b.log.Warn().Str("event", ev.Name).Str("room", key).Str("client_id", c.ID).Msg("dropped room event")
		}
	}
}

// EmitDirect delivers an event to the user's addressable connection. Returns
// false, not an error, when the user is offline; callers decide whether that
// matters.
func (b *Broker) EmitDirect(userID int64, ev *Event) bool {
	c, ok := b.registry.ClientFor(userID)
	if !ok {
		return false
	}
	if c.Deliver(ev) {
		metrics.EventsDelivered.WithLabelValues("direct").Inc()
	} else {
		b.log.Warn().Str("event", ev.Name).Int64("user_id", userID).Msg("dropped direct event")
	}
	return true
}

// BroadcastAll fans an event out to every connected handle. Used only for
// presence changes; this is the O(n) hot path and the first scaling ceiling.
func (b *Broker) BroadcastAll(ev *Event) {
	for _, c := range b.registry.Clients() {
		if c.Deliver(ev) {
			metrics.EventsDelivered.WithLabelValues("broadcast").Inc()
		} else {
			b.log.Warn().Str("event", ev.Name).Str("client_id", c.ID).Msg("dropped broadcast event")
		}
	}
}
