package realtime

import "sync"

// Tracker is the in-memory presence registry: which users currently have
// at least one live websocket connection, and which connections those are.
// State is process-local and rebuilt empty on restart; durable delivery
// never depends on it (an entry lost with the process just means the next
// send takes the offline path).
//
// Locking is two-level: the registry lock is held only to find or create a
// user's entry, and each entry has its own lock for connection membership.
// Fan-out to one user never contends with registration traffic for others.
type Tracker struct {
	mu      sync.RWMutex
	users   map[int64]*userEntry
	byConn  map[string]int64 // connection ID -> owning user
}

type userEntry struct {
	mu    sync.RWMutex
	conns map[string]*Client
}

func NewTracker() *Tracker {
	return &Tracker{
		users:  make(map[int64]*userEntry),
		byConn: make(map[string]int64),
	}
}

// Register adds a connection for a user. Returns true when this is the
// user's first live connection (the offline -> online transition).
func (t *Tracker) Register(c *Client) bool {
	t.mu.Lock()
	entry, ok := t.users[c.userID]
	if !ok {
		entry = &userEntry{conns: make(map[string]*Client)}
		t.users[c.userID] = entry
	}
	t.byConn[c.ID] = c.userID
	t.mu.Unlock()

	entry.mu.Lock()
	wasEmpty := len(entry.conns) == 0
	entry.conns[c.ID] = c
	entry.mu.Unlock()

	return wasEmpty
}

// Unregister removes a connection by ID. Returns the owning user and true
// when this was the user's last connection (the online -> offline
// transition). Unknown IDs are no-ops.
func (t *Tracker) Unregister(connID string) (int64, bool) {
	t.mu.Lock()
	userID, ok := t.byConn[connID]
	if !ok {
		t.mu.Unlock()
		return 0, false
	}
	delete(t.byConn, connID)
	entry := t.users[userID]
	t.mu.Unlock()

	if entry == nil {
		return userID, false
	}

	entry.mu.Lock()
	delete(entry.conns, connID)
	nowEmpty := len(entry.conns) == 0
	entry.mu.Unlock()

	return userID, nowEmpty
}

// IsOnline reports whether the user has at least one live connection.
func (t *Tracker) IsOnline(userID int64) bool {
	return len(t.ConnectionsFor(userID)) > 0
}

// ConnectionsFor returns a snapshot of the user's live connections.
func (t *Tracker) ConnectionsFor(userID int64) []*Client {
	t.mu.RLock()
	entry, ok := t.users[userID]
	t.mu.RUnlock()

	if !ok {
		return nil
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	if len(entry.conns) == 0 {
		return nil
	}

	clients := make([]*Client, 0, len(entry.conns))
	for _, c := range entry.conns {
		clients = append(clients, c)
	}
	return clients
}

// AllClients returns a snapshot of every live connection, for shutdown.
func (t *Tracker) AllClients() []*Client {
	t.mu.RLock()
	entries := make([]*userEntry, 0, len(t.users))
	for _, e := range t.users {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	var clients []*Client
	for _, e := range entries {
		e.mu.RLock()
		for _, c := range e.conns {
			clients = append(clients, c)
		}
		e.mu.RUnlock()
	}
	return clients
}
