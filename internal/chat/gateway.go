package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/store"
)

// maxBodyLength is the maximum message body length in characters, counted
// after trimming.
const maxBodyLength = 10000

// SendInput carries a new message request from either entry point.
type SendInput struct {
	RecipientID int64
	ListingID   *int64
	Subject     string
	Body        string
}

// Gateway validates and persists new messages, then fans them out. The REST
// handler and the socket handler both call Send; the validate, persist,
// fan-out sequence is identical regardless of entry point.
type Gateway struct {
	store    store.Store
	registry *Registry
	broker   *Broker
	log      *zerolog.Logger
}

// NewGateway constructs a message gateway.
func NewGateway(st store.Store, registry *Registry, broker *Broker, logger *zerolog.Logger) *Gateway {
	return &Gateway{
		store:    st,
		registry: registry,
		broker:   broker,
		log:      logger,
	}
}

// Send validates, persists and fans out a new message. Any store failure
// aborts the whole operation before fan-out; fan-out failures never fail the
// send. Returns the persisted message enriched with sender display fields.
func (g *Gateway) Send(ctx context.Context, senderID int64, in SendInput) (*MessageView, error) {
	if in.RecipientID == 0 {
		return nil, validationError("recipient is required")
	}
	if senderID == in.RecipientID {
		return nil, selfMessageError()
	}

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, validationError("message body is required")
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return nil, validationError(fmt.Sprintf("message body exceeds %d characters", maxBodyLength))
	}

	if _, err := g.store.GetUserByID(ctx, in.RecipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("recipient not found")
		}
		return nil, infrastructureError(err)
	}

	sender, err := g.store.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, infrastructureError(err)
	}

	msg := &store.Message{
		SenderID:    senderID,
		RecipientID: in.RecipientID,
		ListingID:   in.ListingID,
		Subject:     strings.TrimSpace(in.Subject),
		Body:        body,
	}
	if err := g.store.CreateMessage(ctx, msg); err != nil {
		return nil, infrastructureError(err)
	}

	view := viewOf(msg, sender.DisplayName)
	g.fanOut(senderID, msg, view)

	return view, nil
}

// fanOut pushes the persisted message to the conversation room and directly
// to the recipient, then reports delivery back to the sender when the
// recipient is online. At-most-once: nothing here is retried or fatal.
func (g *Gateway) fanOut(senderID int64, msg *store.Message, view *MessageView) {
	key := ConversationKey(senderID, msg.RecipientID, msg.ListingID)
	ev := &Event{
		Name: EventMessageReceived,
		Data: MessageReceivedData{Message: *view, ConversationKey: key},
	}

	// Room members currently viewing the thread, minus the sender's own
	// socket.
	var exclude *Client
	if c, ok := g.registry.ClientFor(senderID); ok {
		exclude = c
	}
	g.broker.Publish(key, ev, exclude)

	// Direct emit covers a recipient who is connected but not viewing this
	// conversation.
	delivered := g.broker.EmitDirect(msg.RecipientID, ev)
	if !delivered {
		g.log.Debug().Int64("recipient_id", msg.RecipientID).Int64("message_id", msg.ID).Msg("recipient offline, skipping delivered status")
		return
	}

	g.broker.EmitDirect(senderID, &Event{
		Name: EventMessageStatus,
		Data: StatusUpdateData{
			MessageID: msg.ID,
			Status:    StatusDelivered,
			Timestamp: time.Now().UTC(),
		},
	})
}
