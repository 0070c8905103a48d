package chat

import "sync"

// Registry is the presence source of truth: a bidirectional map between user
// ids and their active connection handle. One addressable connection per user;
// the last registered wins. Guarded by a mutex because register/unregister
// race with lookups from other connections' handlers.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]*Client
	byConn map[*Client]int64
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]*Client),
		byConn: make(map[*Client]int64),
	}
}

// Register records the client as the addressable connection for its user. A
// prior handle for the same user loses its reverse mapping but is not closed;
// a second tab keeps its socket, it just stops being addressable by user id.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[c.UserID]; ok && prev != c {
		delete(r.byConn, prev)
	}
	r.byUser[c.UserID] = c
	r.byConn[c] = c.UserID
}

// Unregister removes the client. The reverse mapping goes unconditionally;
// the forward mapping only if it still points at this handle, so a stale
// disconnect cannot evict a fresh reconnect. Returns the affected user id,
// or ok=false for a handle that was already superseded.
func (r *Registry) Unregister(c *Client) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[c]
	if !ok {
		return 0, false
	}
	delete(r.byConn, c)

	if current, exists := r.byUser[userID]; exists && current == c {
		delete(r.byUser, userID)
	}
	return userID, true
}

// IsOnline reports whether the user has an addressable connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// ClientFor returns the user's addressable connection, if any.
func (r *Registry) ClientFor(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Clients returns a snapshot of every registered connection.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.byConn))
	for c := range r.byConn {
		clients = append(clients, c)
	}
	return clients
}
