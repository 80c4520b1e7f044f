// Package runtime handles connection sessions, room membership, command
// routing, and event propagation. It orchestrates the system without
// containing business rules.
package runtime

import (
	"sync"

	"teamchat/contract"
)

type session struct {
	userID string
	sink   contract.EventSink
}

// Registry binds transport-level connections to their verified identity
// and delivery sink for the lifetime of the transport session.
// Re-authentication requires a new connection, so a session is written
// once on Register and only ever read afterwards.
type Registry struct {
	mu       sync.RWMutex
	sessions map[contract.ConnID]session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[contract.ConnID]session)}
}

func (r *Registry) Register(connID contract.ConnID, userID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = session{userID: userID, sink: sink}
}

func (r *Registry) Unregister(connID contract.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

func (r *Registry) SinkOf(connID contract.ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

func (r *Registry) UserOf(connID contract.ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok {
		return "", false
	}
	return s.userID, true
}
