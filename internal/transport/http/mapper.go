package http

import (
	"context"
	"encoding/json"

	"github.com/motormarket/motorchat-server/internal/chat"
	"github.com/motormarket/motorchat-server/internal/metrics"
	"github.com/motormarket/motorchat-server/internal/proto"
)

// dispatch routes one inbound socket event to the messaging core. Domain
// errors on one-way events come back to the originating connection as error
// events; message:send gets a proper acknowledgment either way.
func (h *WSHandler) dispatch(ctx context.Context, client *chat.Client, inbound proto.Inbound) {
	switch inbound.Type {
	case proto.InboundTypeSend:
		h.handleSend(ctx, client, inbound)

	case proto.InboundTypeMarkRead:
		var data proto.MarkReadData
		if !decode(client, inbound, &data) {
			return
		}
		if err := h.svc.MarkRead(ctx, client, data.SenderID, data.ListingID); err != nil {
			pushChatError(client, err, inbound.Type)
		}

	case proto.InboundTypeJoin:
		var data proto.JoinData
		if !decode(client, inbound, &data) {
			return
		}
		if _, err := h.svc.JoinConversation(ctx, client, data.OtherUserID, data.ListingID); err != nil {
			pushChatError(client, err, inbound.Type)
		}

	case proto.InboundTypeLeave:
		var data proto.LeaveData
		if !decode(client, inbound, &data) {
			return
		}
		if data.ConversationKey == "" {
			pushError(client, chat.ErrCodeValidation, "conversation_key is required", inbound.Type)
			return
		}
		h.svc.LeaveConversation(client, data.ConversationKey)

	case proto.InboundTypeTypingOn, proto.InboundTypeTypingOff:
		var data proto.TypingData
		if !decode(client, inbound, &data) {
			return
		}
		if data.ConversationKey == "" {
			pushError(client, chat.ErrCodeValidation, "conversation_key is required", inbound.Type)
			return
		}
		h.svc.Typing(client, data.ConversationKey, inbound.Type == proto.InboundTypeTypingOn)

	case proto.InboundTypePing:
		client.Deliver(&chat.Event{Name: chat.EventPong})

	default:
		pushError(client, "invalid_message", "unknown message type", inbound.Type)
	}
}

func (h *WSHandler) handleSend(ctx context.Context, client *chat.Client, inbound proto.Inbound) {
	var data proto.SendData
	if !decode(client, inbound, &data) {
		return
	}

	view, err := h.svc.Send(ctx, client, chat.SendInput{
		RecipientID: data.RecipientID,
		ListingID:   data.ListingID,
		Subject:     data.Subject,
		Body:        data.Body,
	})

	ack := chat.SendAck{TempID: data.TempID}
	if err != nil {
		ack.Error = errorData(err, inbound.Type)
	} else {
		ack.Success = true
		ack.Message = view
		metrics.MessagesSent.WithLabelValues("socket").Inc()
	}

	// Same at-most-once discipline as core fan-out: if the connection's
	// buffer is full the write loop is gone or hopelessly behind, and
	// blocking here would wedge the read loop.
	client.Deliver(&chat.Event{Name: chat.EventMessageAck, Data: ack})
}

// outboundFromEvent wraps a core event into its wire envelope.
func outboundFromEvent(event *chat.Event) proto.Outbound {
	switch event.Name {
	case chat.EventMessageAck:
		return proto.Outbound{
			Type:  proto.OutboundTypeAck,
			Event: proto.InboundTypeSend,
			Data:  event.Data,
		}
	case chat.EventError:
		data, ok := event.Data.(chat.ErrorData)
		if !ok {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: data.Code, Msg: data.Message, Event: data.Event},
		}
	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Name,
			Data:  event.Data,
		}
	}
}

func decode(client *chat.Client, inbound proto.Inbound, dst any) bool {
	if err := json.Unmarshal(inbound.Data, dst); err != nil {
		pushError(client, chat.ErrCodeValidation, "malformed payload", inbound.Type)
		return false
	}
	return true
}

func errorData(err error, event string) *chat.ErrorData {
	if ce, ok := chat.AsChatError(err); ok {
		return &chat.ErrorData{Code: ce.Code, Message: ce.Message, Event: event}
	}
	return &chat.ErrorData{Code: chat.ErrCodeInfrastructure, Message: "internal error", Event: event}
}

func pushChatError(client *chat.Client, err error, event string) {
	data := errorData(err, event)
	client.Deliver(&chat.Event{Name: chat.EventError, Data: *data})
}

func pushError(client *chat.Client, code, msg, event string) {
	client.Deliver(&chat.Event{Name: chat.EventError, Data: chat.ErrorData{Code: code, Message: msg, Event: event}})
}
