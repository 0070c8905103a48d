package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/motormarket/motorchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    INTEGER NOT NULL,
	recipient_id INTEGER NOT NULL,
	listing_id   INTEGER,
	subject      TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL,
	read         BOOLEAN NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages(recipient_id, read);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(sender_id, recipient_id, created_at);
`

// New creates a new SQLite store and ensures the schema exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, displayName, email, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, display_name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, displayName, email, passwordHash, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, display_name, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, display_name, email, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== MessageStore implementation ====

// CreateMessage persists a message and fills in ID and CreatedAt.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (sender_id, recipient_id, listing_id, subject, body, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.SenderID,
		msg.RecipientID,
		nullableID(msg.ListingID),
		msg.Subject,
		msg.Body,
		msg.Read,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id

	return nil
}

// ListThread returns messages between two users, oldest first, with the total count.
func (s *SQLiteStore) ListThread(ctx context.Context, userA, userB int64, listingID *int64, limit, offset int) ([]*store.Message, int64, error) {
	pair := `((sender_id = ?1 AND recipient_id = ?2) OR (sender_id = ?2 AND recipient_id = ?1))`
	scope, scopeArgs := listingScope(listingID)

	args := []any{userA, userB}
	args = append(args, scopeArgs...)

	var total int64
	countQuery := `SELECT COUNT(*) FROM messages WHERE ` + pair + scope
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count thread: %w", err)
	}

	query := `
		SELECT id, sender_id, recipient_id, listing_id, subject, body, read, created_at
		FROM messages
		WHERE ` + pair + scope + `
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query thread: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// CountUnread returns the number of unread messages addressed to userID.
func (s *SQLiteStore) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM messages WHERE recipient_id = ? AND read = 0`
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkConversationRead flips read on unread messages from otherID to readerID.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, readerID, otherID int64, listingID *int64) (int64, error) {
	scope, scopeArgs := listingScope(listingID)

	query := `
		UPDATE messages
		SET read = 1
		WHERE recipient_id = ?1 AND sender_id = ?2 AND read = 0` + scope
	args := append([]any{readerID, otherID}, scopeArgs...)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// ListConversations returns the latest message per conversation the user
// participates in, newest first, with per-conversation unread counts.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64, limit, offset int) ([]*store.ConversationSummary, error) {
	// Conversations are grouped by the unordered user pair plus listing scope,
	// which mirrors how conversation keys are derived. The newest row id per
	// group stands in for the most recent message.
	query := `
		SELECT
			m.id, m.sender_id, m.recipient_id, m.listing_id, m.subject, m.body, m.read, m.created_at,
			u.id, u.username,
			(
				SELECT COUNT(*)
				FROM messages x
				WHERE x.recipient_id = ?1
				  AND x.sender_id = CASE WHEN m.sender_id = ?1 THEN m.recipient_id ELSE m.sender_id END
				  AND COALESCE(x.listing_id, -1) = COALESCE(m.listing_id, -1)
				  AND x.read = 0
			) AS unread
		FROM messages m
		JOIN (
			SELECT MAX(id) AS last_id
			FROM messages
			WHERE sender_id = ?1 OR recipient_id = ?1
			GROUP BY MIN(sender_id, recipient_id), MAX(sender_id, recipient_id), COALESCE(listing_id, -1)
		) latest ON latest.last_id = m.id
		JOIN users u ON u.id = CASE WHEN m.sender_id = ?1 THEN m.recipient_id ELSE m.sender_id END
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?2 OFFSET ?3
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]*store.ConversationSummary, 0)
	for rows.Next() {
		var (
			msg       store.Message
			listingID sql.NullInt64
			summary   store.ConversationSummary
		)
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RecipientID,
			&listingID,
			&msg.Subject,
			&msg.Body,
			&msg.Read,
			&msg.CreatedAt,
			&summary.OtherUserID,
			&summary.OtherUsername,
			&summary.UnreadCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if listingID.Valid {
			v := listingID.Int64
			msg.ListingID = &v
			summary.ListingID = &v
		}
		summary.LastMessage = &msg
		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return summaries, nil
}

func scanMessages(rows *sql.Rows) ([]*store.Message, error) {
	messages := make([]*store.Message, 0)
	for rows.Next() {
		var (
			msg       store.Message
			listingID sql.NullInt64
		)
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RecipientID,
			&listingID,
			&msg.Subject,
			&msg.Body,
			&msg.Read,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if listingID.Valid {
			v := listingID.Int64
			msg.ListingID = &v
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// listingScope returns the SQL fragment that pins a query to one listing
// scope. A nil listing means the general (listing-less) conversation, not a
// wildcard; the same rule the conversation key applies.
func listingScope(listingID *int64) (string, []any) {
	if listingID == nil {
		return ` AND listing_id IS NULL`, nil
	}
	return ` AND listing_id = ?`, []any{*listingID}
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
