package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// User represents a marketplace account, as far as messaging needs to know it.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Message represents a persisted message between two users, optionally scoped
// to a car listing.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	ListingID   *int64
	Subject     string
	Body        string
	Read        bool
	CreatedAt   time.Time
}

// ConversationSummary is one row of the conversation list: the latest message
// of a (pair, listing) thread plus the viewer's unread count for it.
type ConversationSummary struct {
	OtherUserID   int64
	OtherUsername string
	ListingID     *int64
	LastMessage   *Message
	UnreadCount   int64
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, displayName, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID. Returns ErrNotFound when missing.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username. Returns ErrNotFound when missing.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MessageStore handles message persistence and the read-model queries the
// messaging core depends on.
type MessageStore interface {
	// CreateMessage persists a message and fills in ID and CreatedAt.
	CreateMessage(ctx context.Context, msg *Message) error

	// ListThread returns messages between two users, oldest first, optionally
	// scoped to a listing, along with the total row count for pagination.
	ListThread(ctx context.Context, userA, userB int64, listingID *int64, limit, offset int) ([]*Message, int64, error)

	// CountUnread returns the number of unread messages addressed to userID.
	CountUnread(ctx context.Context, userID int64) (int64, error)

	// MarkConversationRead flips read on every unread message from otherID to
	// readerID in the given listing scope. Returns rows affected; zero is not
	// an error.
	MarkConversationRead(ctx context.Context, readerID, otherID int64, listingID *int64) (int64, error)

	// ListConversations returns, per conversation the user participates in,
	// the most recent message plus the user's unread count, newest first.
	ListConversations(ctx context.Context, userID int64, limit, offset int) ([]*ConversationSummary, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
