package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/motormarket/motorchat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s *SQLiteStore, username string) int64 {
	t.Helper()

	u, err := s.CreateUser(context.Background(), username, username, username+"@example.com", "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u.ID
}

func createMessage(t *testing.T, s *SQLiteStore, from, to int64, listingID *int64, body string, at time.Time) int64 {
	t.Helper()

	msg := &store.Message{
		SenderID:    from,
		RecipientID: to,
		ListingID:   listingID,
		Body:        body,
		CreatedAt:   at,
	}
	if err := s.CreateMessage(context.Background(), msg); err != nil {
		t.Fatalf("create message: %v", err)
	}
	return msg.ID
}

func TestGetUserByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetUserByID(context.Background(), 404); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListThreadPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	carol := createUser(t, s, "carol")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createMessage(t, s, alice, bob, nil, "one", base)
	createMessage(t, s, bob, alice, nil, "two", base.Add(time.Minute))
	createMessage(t, s, alice, bob, nil, "three", base.Add(2*time.Minute))
	// Noise from another pair must not leak into the thread.
	createMessage(t, s, alice, carol, nil, "other thread", base.Add(3*time.Minute))

	messages, total, err := s.ListThread(ctx, alice, bob, nil, 2, 0)
	if err != nil {
		t.Fatalf("list thread: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(messages) != 2 {
		t.Fatalf("page size = %d, want 2", len(messages))
	}
	if messages[0].Body != "one" || messages[1].Body != "two" {
		t.Fatalf("unexpected ordering: %q, %q", messages[0].Body, messages[1].Body)
	}

	rest, _, err := s.ListThread(ctx, alice, bob, nil, 2, 2)
	if err != nil {
		t.Fatalf("list thread page 2: %v", err)
	}
	if len(rest) != 1 || rest[0].Body != "three" {
		t.Fatalf("unexpected second page: %+v", rest)
	}
}

func TestListThreadListingScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	listing := int64(5)

	now := time.Now().UTC()
	createMessage(t, s, alice, bob, nil, "general", now)
	createMessage(t, s, alice, bob, &listing, "scoped", now.Add(time.Second))

	general, total, err := s.ListThread(ctx, alice, bob, nil, 10, 0)
	if err != nil {
		t.Fatalf("list general: %v", err)
	}
	if total != 1 || general[0].Body != "general" {
		t.Fatalf("general scope leaked: total=%d", total)
	}

	scoped, total, err := s.ListThread(ctx, alice, bob, &listing, 10, 0)
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if total != 1 || scoped[0].Body != "scoped" {
		t.Fatalf("listing scope leaked: total=%d", total)
	}
}

func TestMarkConversationRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	carol := createUser(t, s, "carol")

	now := time.Now().UTC()
	createMessage(t, s, bob, alice, nil, "from bob 1", now)
	createMessage(t, s, bob, alice, nil, "from bob 2", now.Add(time.Second))
	createMessage(t, s, carol, alice, nil, "from carol", now.Add(2*time.Second))

	affected, err := s.MarkConversationRead(ctx, alice, bob, nil)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected = %d, want 2", affected)
	}

	count, err := s.CountUnread(ctx, alice)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread = %d, want 1", count)
	}

	// Second run has nothing left to update.
	affected, err = s.MarkConversationRead(ctx, alice, bob, nil)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second run affected = %d, want 0", affected)
	}
}

func TestListConversationsGrouping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	carol := createUser(t, s, "carol")
	listing := int64(9)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	createMessage(t, s, bob, alice, nil, "bob general old", base)
	createMessage(t, s, bob, alice, nil, "bob general new", base.Add(time.Minute))
	createMessage(t, s, bob, alice, &listing, "bob listing", base.Add(2*time.Minute))
	createMessage(t, s, alice, carol, nil, "to carol", base.Add(3*time.Minute))

	summaries, err := s.ListConversations(ctx, alice, 10, 0)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}

	// Three conversations: bob general, bob listing-scoped, carol. Newest
	// first.
	if len(summaries) != 3 {
		t.Fatalf("conversations = %d, want 3", len(summaries))
	}
	if summaries[0].OtherUserID != carol {
		t.Fatalf("newest conversation should be carol, got user %d", summaries[0].OtherUserID)
	}
	if summaries[1].OtherUserID != bob || summaries[1].ListingID == nil {
		t.Fatalf("expected bob listing conversation second, got %+v", summaries[1])
	}
	if summaries[2].LastMessage == nil || summaries[2].LastMessage.Body != "bob general new" {
		t.Fatalf("general conversation should surface its latest message, got %+v", summaries[2].LastMessage)
	}

	// Unread counts are per conversation and viewer-relative.
	if summaries[2].UnreadCount != 2 {
		t.Fatalf("bob general unread = %d, want 2", summaries[2].UnreadCount)
	}
	if summaries[1].UnreadCount != 1 {
		t.Fatalf("bob listing unread = %d, want 1", summaries[1].UnreadCount)
	}
	if summaries[0].UnreadCount != 0 {
		t.Fatalf("carol unread = %d, want 0", summaries[0].UnreadCount)
	}
}

func TestListConversationsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		other := createUser(t, s, "user"+string(rune('a'+i)))
		createMessage(t, s, other, alice, nil, "hello", base.Add(time.Duration(i)*time.Minute))
	}

	page, err := s.ListConversations(ctx, alice, 2, 0)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}

	rest, err := s.ListConversations(ctx, alice, 10, 2)
	if err != nil {
		t.Fatalf("list conversations offset: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("remaining = %d, want 3", len(rest))
	}
}
