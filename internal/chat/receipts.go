package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/metrics"
	"github.com/motormarket/motorchat-server/internal/store"
)

// ReadReceiptCoordinator marks messages read, recomputes unread counts and
// notifies both parties. All three read triggers funnel through MarkRead: the
// explicit REST call, the thread fetch side effect, and a socket
// conversation join.
type ReadReceiptCoordinator struct {
	store  store.Store
	broker *Broker
	log    *zerolog.Logger
}

// NewReadReceiptCoordinator constructs a read receipt coordinator.
func NewReadReceiptCoordinator(st store.Store, broker *Broker, logger *zerolog.Logger) *ReadReceiptCoordinator {
	return &ReadReceiptCoordinator{
		store:  st,
		broker: broker,
		log:    logger,
	}
}

// MarkRead flips read on every unread message from otherID to readerID in the
// given listing scope. Idempotent: a call with nothing left unread updates
// zero rows and succeeds. The reader gets a fresh unread count; the other
// party gets a messages:read event when anything actually changed.
func (r *ReadReceiptCoordinator) MarkRead(ctx context.Context, readerID, otherID int64, listingID *int64) error {
	if otherID == 0 {
		return validationError("sender is required")
	}

	updated, err := r.store.MarkConversationRead(ctx, readerID, otherID, listingID)
	if err != nil {
		return infrastructureError(err)
	}

	count, err := r.store.CountUnread(ctx, readerID)
	if err != nil {
		return infrastructureError(err)
	}

	r.broker.EmitDirect(readerID, &Event{
		Name: EventUnreadCount,
		Data: UnreadCountData{Count: count},
	})

	if updated == 0 {
		return nil
	}
	metrics.MessagesRead.Add(float64(updated))

	key := ConversationKey(readerID, otherID, listingID)
	r.broker.EmitDirect(otherID, &Event{
		Name: EventMessagesRead,
		Data: MessagesReadData{
			ReaderID:        readerID,
			ConversationKey: key,
			ReadAt:          time.Now().UTC(),
		},
	})

	r.log.Debug().
		Int64("reader_id", readerID).
		Int64("other_id", otherID).
		Int64("updated", updated).
		Msg("conversation marked read")

	return nil
}
