package chat

import "testing"

func TestBrokerPublishExcludesSender(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry, testLogger())

	alice := NewClient(1, "alice")
	bob := NewClient(2, "bob")

	broker.Join(alice, "1-2:general")
	broker.Join(bob, "1-2:general")

	broker.Publish("1-2:general", &Event{Name: EventTypingStart}, alice)

	mustEvent(t, bob.Events, EventTypingStart)
	mustNoEvent(t, alice.Events, EventTypingStart)
}

func TestBrokerEmitDirectOffline(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry, testLogger())

	if broker.EmitDirect(42, &Event{Name: EventUnreadCount}) {
		t.Fatal("emit to an offline user should report false")
	}
}

func TestBrokerEmitDirectOnline(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry, testLogger())

	bob := NewClient(2, "bob")
	registry.Register(bob)

	if !broker.EmitDirect(2, &Event{Name: EventUnreadCount, Data: UnreadCountData{Count: 3}}) {
		t.Fatal("emit to an online user should report true")
	}

	ev := mustEvent(t, bob.Events, EventUnreadCount)
	if data, ok := ev.Data.(UnreadCountData); !ok || data.Count != 3 {
		t.Fatalf("unexpected payload: %+v", ev.Data)
	}
}

func TestBrokerLeaveStopsDelivery(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry, testLogger())

	bob := NewClient(2, "bob")
	broker.Join(bob, "1-2:general")
	broker.Leave(bob, "1-2:general")

	broker.Publish("1-2:general", &Event{Name: EventTypingStart}, nil)
	mustNoEvent(t, bob.Events, EventTypingStart)
}

func TestBrokerDropClientClearsMemberships(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry, testLogger())

	bob := NewClient(2, "bob")
	broker.Join(bob, "1-2:general")
	broker.Join(bob, "2-3:7")

	broker.DropClient(bob)

	broker.Publish("1-2:general", &Event{Name: EventTypingStart}, nil)
	broker.Publish("2-3:7", &Event{Name: EventTypingStart}, nil)
	mustNoEvent(t, bob.Events, EventTypingStart)
}

func TestBrokerBroadcastAllReachesEveryConnection(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry, testLogger())

	clients := []*Client{NewClient(1, "a"), NewClient(2, "b"), NewClient(3, "c")}
	for _, c := range clients {
		registry.Register(c)
	}

	broker.BroadcastAll(&Event{Name: EventUserPresence, Data: PresenceData{UserID: 1, Status: PresenceOnline}})

	for _, c := range clients {
		mustEvent(t, c.Events, EventUserPresence)
	}
}
