package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/metrics"
	"github.com/motormarket/motorchat-server/internal/store"
)

// Service orchestrates the messaging core over one process: connection
// lifecycle, message sending, read receipts, rooms and presence. Construct
// one per server; tests construct their own isolated instances.
type Service struct {
	store    store.Store
	registry *Registry
	broker   *Broker
	gateway  *Gateway
	receipts *ReadReceiptCoordinator
	presence *PresenceBroadcaster
	log      *zerolog.Logger
}

// NewService wires the messaging core around a message store.
func NewService(st store.Store, logger *zerolog.Logger) *Service {
	registry := NewRegistry()
	broker := NewBroker(registry, logger)

	return &Service{
		store:    st,
		registry: registry,
		broker:   broker,
		gateway:  NewGateway(st, registry, broker, logger),
		receipts: NewReadReceiptCoordinator(st, broker, logger),
		presence: NewPresenceBroadcaster(broker),
		log:      logger,
	}
}

// Gateway returns the message gateway; the REST send path uses the same
// instance as the socket path.
func (s *Service) Gateway() *Gateway {
	return s.gateway
}

// Receipts returns the read receipt coordinator shared by all read triggers.
func (s *Service) Receipts() *ReadReceiptCoordinator {
	return s.receipts
}

// Registry exposes presence lookups.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Connect registers a fresh connection, announces presence and pushes the
// initial unread count to the new handle.
func (s *Service) Connect(ctx context.Context, c *Client) {
	s.registry.Register(c)
	metrics.ConnectionsActive.Inc()

	s.presence.Online(c.UserID)

	count, err := s.store.CountUnread(ctx, c.UserID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", c.UserID).Msg("initial unread count failed")
		return
	}
	c.Deliver(&Event{Name: EventUnreadCount, Data: UnreadCountData{Count: count}})
}

// Disconnect drops room memberships and presence for a closing connection.
// The offline broadcast only fires when the user has no addressable
// connection left; a stale handle from before a reconnect stays silent.
func (s *Service) Disconnect(c *Client) {
	s.broker.DropClient(c)
	metrics.ConnectionsActive.Dec()

	userID, ok := s.registry.Unregister(c)
	if !ok {
		return
	}
	if s.registry.IsOnline(userID) {
		return
	}
	s.presence.Offline(userID, time.Now().UTC())
}

// Send routes a message through the gateway on behalf of a connection.
func (s *Service) Send(ctx context.Context, c *Client, in SendInput) (*MessageView, error) {
	return s.gateway.Send(ctx, c.UserID, in)
}

// JoinConversation subscribes the connection to the conversation room and
// auto-marks the thread read; joining a room is itself evidence of active
// viewing. The key is recomputed server-side so both sides of the socket
// apply identical scoping rules.
func (s *Service) JoinConversation(ctx context.Context, c *Client, otherUserID int64, listingID *int64) (string, error) {
	if otherUserID == 0 {
		return "", validationError("other user is required")
	}

	key := ConversationKey(c.UserID, otherUserID, listingID)
	s.broker.Join(c, key)

	if err := s.receipts.MarkRead(ctx, c.UserID, otherUserID, listingID); err != nil {
		return key, err
	}
	return key, nil
}

// LeaveConversation unsubscribes the connection from a conversation room.
func (s *Service) LeaveConversation(c *Client, key string) {
	s.broker.Leave(c, key)
}

// MarkRead funnels a socket mark-read request through the coordinator.
func (s *Service) MarkRead(ctx context.Context, c *Client, otherUserID int64, listingID *int64) error {
	return s.receipts.MarkRead(ctx, c.UserID, otherUserID, listingID)
}

// Typing relays a typing indicator to the rest of the room.
func (s *Service) Typing(c *Client, key string, active bool) {
	name := EventTypingStop
	if active {
		name = EventTypingStart
	}
	s.broker.Publish(key, &Event{
		Name: name,
		Data: TypingData{ConversationKey: key, UserID: c.UserID},
	}, c)
}
