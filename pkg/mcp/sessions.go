package mcp

import "sync"

// SessionRegistry maps playback session IDs to the MCP client sessions that
// loaded them. Populated when a client calls recviz.run.
type SessionRegistry struct {
	mu      sync.RWMutex
	clients map[string]string // playback session ID → MCP client session ID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{clients: make(map[string]string)}
}

// Register associates a playback session with an MCP client session.
// A later run from another client takes the session over.
func (r *SessionRegistry) Register(sessionID, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[sessionID] = clientID
}

// ClientFor returns the MCP client session watching the playback session.
func (r *SessionRegistry) ClientFor(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.clients[sessionID]
	return cid, ok
}

// Forget drops a single playback session, e.g. once it expired.
func (r *SessionRegistry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, sessionID)
}

// Remove deletes every playback mapping of the given MCP client session.
// Called when the client disconnects.
func (r *SessionRegistry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, cid := range r.clients {
		if cid == clientID {
			delete(r.clients, sid)
		}
	}
}
