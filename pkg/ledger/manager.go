package ledger

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Manager caches one Session per chain and owns their lifecycle. Sessions are
// invalidated when the active account or a chain endpoint changes, so a stale
// handle is never used to sign on behalf of a no-longer-active account.
type Manager struct {
	mu         sync.Mutex
	endpoints  map[uint64]Endpoint
	privateKey string
	sessions   map[uint64]*Session
}

// NewManager creates a session manager for the configured endpoints.
func NewManager(endpoints map[uint64]Endpoint, privateKeyHex string) *Manager {
	return &Manager{
		endpoints:  endpoints,
		privateKey: privateKeyHex,
		sessions:   make(map[uint64]*Session),
	}
}

// Session returns the cached session for the chain, dialing one on first use.
func (m *Manager) Session(chainID uint64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[chainID]; ok {
		return s, nil
	}

	endpoint, ok := m.endpoints[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d not configured", chainID)
	}

	s, err := NewSession(endpoint, m.privateKey)
	if err != nil {
		return nil, err
	}
	m.sessions[chainID] = s
	return s, nil
}

// OnAccountChanged replaces the signing key and drops every cached session.
func (m *Manager) OnAccountChanged(privateKeyHex string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.privateKey = privateKeyHex
	m.invalidateAllLocked()
	log.Info("active account changed, ledger sessions invalidated")
}

// OnChainChanged drops the cached session for one chain, typically after its
// endpoint configuration changed.
func (m *Manager) OnChainChanged(chainID uint64, endpoint Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.endpoints[chainID] = endpoint
	if s, ok := m.sessions[chainID]; ok {
		s.Close()
		delete(m.sessions, chainID)
	}
	log.WithField("chain", chainID).Info("chain endpoint changed, session invalidated")
}

// Close releases every cached session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateAllLocked()
}

func (m *Manager) invalidateAllLocked() {
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}
