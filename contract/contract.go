//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"teamchat/domain"
	"teamchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor recovers its panics.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without manual naming.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one consumer of routed domain events. A connection's sink
// receives each broadcast event at most once.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ConnID identifies one live transport session.
type ConnID string

// IRegistry binds authenticated connections to their delivery sinks.
type IRegistry interface {
	Register(connID ConnID, userID string, sink EventSink)
	Unregister(connID ConnID)
	SinkOf(connID ConnID) (EventSink, bool)
	UserOf(connID ConnID) (string, bool)
}

// IRoomManager tracks which connections joined which team rooms.
type IRoomManager interface {
	Join(connID ConnID, teamID domain.TeamID)
	Leave(connID ConnID, teamID domain.TeamID)
	LeaveAll(connID ConnID)
	MembersOf(teamID domain.TeamID) []ConnID
	GetSinksForRoom(teamID domain.TeamID) []EventSink
}

// ITeamDirectory is the narrow interface onto the external team
// membership collaborator the core authorizes against.
type ITeamDirectory interface {
	TeamExists(teamID domain.TeamID) (bool, error)
	IsMember(userID string, teamID domain.TeamID) (bool, error)
}
