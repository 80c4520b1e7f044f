package runtime

import (
	"sync"

	"teamchat/contract"
	"teamchat/domain"
)

type connSet map[contract.ConnID]struct{}

// RoomManager maintains the in-memory membership set of every team room.
// Rooms are created on first join and removed when their last member
// leaves; they are never an authoritative membership record.
type RoomManager struct {
	mu        sync.RWMutex
	registry  *Registry
	rooms     map[domain.TeamID]connSet
	connRooms map[contract.ConnID]map[domain.TeamID]struct{}
}

func NewRoomManager(registry *Registry) *RoomManager {
	return &RoomManager{
		registry:  registry,
		rooms:     make(map[domain.TeamID]connSet),
		connRooms: make(map[contract.ConnID]map[domain.TeamID]struct{}),
	}
}

// Join adds the connection to the room's member set. Joining twice is a
// no-op: the set insert is naturally idempotent.
func (m *RoomManager) Join(connID contract.ConnID, teamID domain.TeamID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[teamID]; !ok {
		m.rooms[teamID] = make(connSet)
	}
	m.rooms[teamID][connID] = struct{}{}

	if _, ok := m.connRooms[connID]; !ok {
		m.connRooms[connID] = make(map[domain.TeamID]struct{})
	}
	m.connRooms[connID][teamID] = struct{}{}
}

// Leave removes the connection from the room. Leaving a room never
// joined is a no-op. Empty rooms are deleted so the map does not grow
// with dead team ids.
func (m *RoomManager) Leave(connID contract.ConnID, teamID domain.TeamID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(connID, teamID)
}

// LeaveAll enforces the cleanup invariant: after a connection
// terminates, no room may still list it as a member.
func (m *RoomManager) LeaveAll(connID contract.ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for teamID := range m.connRooms[connID] {
		m.leaveLocked(connID, teamID)
	}
}

func (m *RoomManager) leaveLocked(connID contract.ConnID, teamID domain.TeamID) {
	if members, ok := m.rooms[teamID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.rooms, teamID)
		}
	}
	if joined, ok := m.connRooms[connID]; ok {
		delete(joined, teamID)
		if len(joined) == 0 {
			delete(m.connRooms, connID)
		}
	}
}

// MembersOf returns a snapshot of the room's member set.
func (m *RoomManager) MembersOf(teamID domain.TeamID) []contract.ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members, ok := m.rooms[teamID]
	if !ok {
		return nil
	}
	res := make([]contract.ConnID, 0, len(members))
	for connID := range members {
		res = append(res, connID)
	}
	return res
}

// GetSinksForRoom resolves the room's members into their delivery sinks.
// The membership snapshot is taken under the read lock, so a concurrent
// leave happens strictly before or strictly after it, never mid-iteration.
// A member whose session is already gone is simply skipped.
func (m *RoomManager) GetSinksForRoom(teamID domain.TeamID) []contract.EventSink {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members, ok := m.rooms[teamID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for connID := range members {
		if sink, exists := m.registry.SinkOf(connID); exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
