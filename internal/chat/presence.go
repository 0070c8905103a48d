package chat

import "time"

// PresenceBroadcaster announces online/offline transitions to every connected
// peer.
type PresenceBroadcaster struct {
	broker *Broker
}

// NewPresenceBroadcaster constructs a presence broadcaster.
func NewPresenceBroadcaster(broker *Broker) *PresenceBroadcaster {
	return &PresenceBroadcaster{broker: broker}
}

// Online announces that a user came online.
func (p *PresenceBroadcaster) Online(userID int64) {
	p.broker.BroadcastAll(&Event{
		Name: EventUserPresence,
		Data: PresenceData{UserID: userID, Status: PresenceOnline},
	})
}

// Offline announces that a user went fully offline.
func (p *PresenceBroadcaster) Offline(userID int64, lastSeen time.Time) {
	p.broker.BroadcastAll(&Event{
		Name: EventUserPresence,
		Data: PresenceData{UserID: userID, Status: PresenceOffline, LastSeen: &lastSeen},
	})
}
