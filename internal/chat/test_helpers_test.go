package chat

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/store"
	"github.com/motormarket/motorchat-server/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func createTestUser(t *testing.T, st store.Store, username string) int64 {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, username, username+"@example.com", "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user.ID
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// mustEvent drains the channel until an event with the given name arrives.
// Fan-out is synchronous, so pending events are already buffered; the
// deadline only guards against a genuinely missing event.
func mustEvent(t *testing.T, ch <-chan *Event, name string) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Name == name {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event %q not received", name)
	return nil
}

// mustNoEvent asserts that no buffered event carries the given name.
func mustNoEvent(t *testing.T, ch <-chan *Event, name string) {
	t.Helper()

	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Name == name {
				t.Fatalf("unexpected event %q received: %+v", name, ev)
			}
		default:
			return
		}
	}
}

func drainEvents(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
