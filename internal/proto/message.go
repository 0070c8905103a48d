package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeSend      = "message:send"
	InboundTypeMarkRead  = "messages:mark_read"
	InboundTypeJoin      = "conversation:join"
	InboundTypeLeave     = "conversation:leave"
	InboundTypeTypingOn  = "typing:start"
	InboundTypeTypingOff = "typing:stop"
	InboundTypePing      = "ping"

	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"
)

// SendData is a new message from the client. TempID is an optional
// client-generated correlation id echoed back in the acknowledgment.
type SendData struct {
	RecipientID int64  `json:"recipient_id"`
	ListingID   *int64 `json:"listing_id,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	TempID      string `json:"temp_id,omitempty"`
}

// MarkReadData asks to mark a conversation read.
type MarkReadData struct {
	ConversationKey string `json:"conversation_key,omitempty"`
	SenderID        int64  `json:"sender_id"`
	ListingID       *int64 `json:"listing_id,omitempty"`
}

// JoinData subscribes the connection to a conversation room.
type JoinData struct {
	ConversationKey string `json:"conversation_key,omitempty"`
	OtherUserID     int64  `json:"other_user_id"`
	ListingID       *int64 `json:"listing_id,omitempty"`
}

// LeaveData unsubscribes the connection from a conversation room.
type LeaveData struct {
	ConversationKey string `json:"conversation_key"`
}

// TypingData signals typing activity in a conversation.
type TypingData struct {
	ConversationKey string `json:"conversation_key"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code  string `json:"code"`
	Msg   string `json:"msg"`
	Event string `json:"event,omitempty"`
}
