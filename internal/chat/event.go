package chat

import (
	"time"

	"github.com/motormarket/motorchat-server/internal/store"
)

// Outbound event names as they appear on the wire.
const (
	EventMessageReceived = "message:received"
	EventMessageStatus   = "message:status_update"
	EventMessagesRead    = "messages:read"
	EventUnreadCount     = "unread_count:update"
	EventUserPresence    = "user:presence"
	EventTypingStart     = "typing:start"
	EventTypingStop      = "typing:stop"
	EventError           = "error"
	EventPong            = "pong"

	// EventMessageAck carries the acknowledgment for message:send; the
	// transport wraps it in an ack envelope rather than a plain event.
	EventMessageAck = "message:ack"
)

// Delivery statuses for message:status_update. Delivered is best-effort and
// informational; read is the only persisted transition.
const (
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Presence statuses for user:presence.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// Event is a notification emitted to connected clients. Data is one of the
// payload structs below and marshals directly onto the wire.
type Event struct {
	Name string
	Data any
}

// MessageView is a persisted message enriched with sender display fields.
type MessageView struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	ListingID   *int64    `json:"listing_id,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
	SenderName  string    `json:"sender_name,omitempty"`
}

func viewOf(msg *store.Message, senderName string) *MessageView {
	return &MessageView{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		ListingID:   msg.ListingID,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Read:        msg.Read,
		CreatedAt:   msg.CreatedAt,
		SenderName:  senderName,
	}
}

// MessageReceivedData is the payload of message:received.
type MessageReceivedData struct {
	Message         MessageView `json:"message"`
	ConversationKey string      `json:"conversation_key"`
}

// StatusUpdateData is the payload of message:status_update.
type StatusUpdateData struct {
	MessageID int64     `json:"message_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagesReadData is the payload of messages:read.
type MessagesReadData struct {
	ReaderID        int64     `json:"reader_id"`
	ConversationKey string    `json:"conversation_key"`
	ReadAt          time.Time `json:"read_at"`
}

// UnreadCountData is the payload of unread_count:update.
type UnreadCountData struct {
	Count int64 `json:"count"`
}

// PresenceData is the payload of user:presence.
type PresenceData struct {
	UserID   int64      `json:"user_id"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// TypingData is the payload of typing:start and typing:stop.
type TypingData struct {
	ConversationKey string `json:"conversation_key"`
	UserID          int64  `json:"user_id"`
}

// ErrorData is the payload of the generic error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// SendAck acknowledges a message:send, echoing the client's tempId so an
// optimistically rendered message can be reconciled or rolled back.
type SendAck struct {
	Success bool         `json:"success"`
	TempID  string       `json:"temp_id,omitempty"`
	Message *MessageView `json:"message,omitempty"`
	Error   *ErrorData   `json:"error,omitempty"`
}
