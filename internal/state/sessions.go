package state

import "sync"

// SessionMap is the active-course map named in C9's responsibility list: a
// mapping from game-session id to the host that session is currently
// exploring. The consuming game layer is out of scope here; C9 only owns
// the map's storage and concurrency discipline, per the exclusive-writer /
// many-reader policy for the Shared State's maps.
type SessionMap struct {
	mu    sync.RWMutex
	hosts map[string]string
}

// NewSessionMap returns an empty SessionMap.
func NewSessionMap() *SessionMap {
	return &SessionMap{hosts: make(map[string]string)}
}

// Set records that sessionID is currently exploring host, overwriting any
// prior host recorded for the same session.
func (m *SessionMap) Set(sessionID, host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts[sessionID] = host
}

// Get returns the host recorded for sessionID, if any.
func (m *SessionMap) Get(sessionID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	host, ok := m.hosts[sessionID]
	return host, ok
}

// Delete removes sessionID's entry, if present.
func (m *SessionMap) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hosts, sessionID)
}

// Len returns the number of active sessions currently tracked.
func (m *SessionMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hosts)
}
