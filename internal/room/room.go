package room

import (
	"errors"

	"github.com/adred-codev/cloudvar/internal/wire"
)

const (
	// MaxRoomNameLength is the longest legal project id, in bytes.
	MaxRoomNameLength = wire.MaxRoomNameLength
	// MaxRoomVariables is the maximum number of distinct variables a room
	// may hold.
	MaxRoomVariables = wire.MaxRoomVariables
	// MaxRoomSubscribers is the maximum number of concurrent sessions a
	// room may hold.
	MaxRoomSubscribers = wire.MaxRoomSubscribers
)

// ErrVariableNameTooLong is returned by GetOrCreateVariableIndex when name
// exceeds MaxVariableNameLength.
var ErrVariableNameTooLong = errors.New("room: variable name too long")

// ErrVariableCapacity is returned by GetOrCreateVariableIndex when the room
// already holds MaxRoomVariables distinct variables and name is new.
var ErrVariableCapacity = errors.New("room: variable capacity reached")

// ErrSubscriberCapacity is returned by AddSubscriber when the room already
// holds MaxRoomSubscribers sessions.
var ErrSubscriberCapacity = errors.New("room: subscriber capacity reached")

// Subscriber is the subset of session behavior a Room needs: an identity to
// key its subscriber set, and a way to flag that the session owes its peer a
// writable-triggered catch-up. Room holds subscribers only through this
// interface so the room package never depends on the session package.
type Subscriber interface {
	SessionID() uint64
	MarkTxDue()
}

// Room is a named set of variables and subscribing sessions. Variables are
// append-only: once created, a variable's index into Variables never
// changes for the lifetime of the room.
type Room struct {
	Name        string
	Variables   []*Variable
	subscribers map[uint64]Subscriber
}

func newRoom(name string) *Room {
	return &Room{
		Name:        name,
		subscribers: make(map[uint64]Subscriber),
	}
}

// VariableIndex returns the index of the variable named name, or -1 if the
// room has no such variable yet.
func (r *Room) VariableIndex(name string) int {
	for i, v := range r.Variables {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// GetOrCreateVariableIndex returns the stable index of the variable named
// name, creating it (with Seq 0 and an empty value) if this is the room's
// first reference to that name.
func (r *Room) GetOrCreateVariableIndex(name string) (int, error) {
	if i := r.VariableIndex(name); i >= 0 {
		return i, nil
	}
	if len(name) > MaxVariableNameLength {
		return -1, ErrVariableNameTooLong
	}
	if len(r.Variables) >= MaxRoomVariables {
		return -1, ErrVariableCapacity
	}
	r.Variables = append(r.Variables, newVariable(name))
	return len(r.Variables) - 1, nil
}

// AddSubscriber adds s to the room's subscriber set.
func (r *Room) AddSubscriber(s Subscriber) error {
	if len(r.subscribers) >= MaxRoomSubscribers {
		return ErrSubscriberCapacity
	}
	r.subscribers[s.SessionID()] = s
	return nil
}

// RemoveSubscriber removes the subscriber with the given session id, if
// present. Safe to call even if the session never joined this room.
func (r *Room) RemoveSubscriber(id uint64) {
	delete(r.subscribers, id)
}

// SubscriberCount returns the number of sessions currently subscribed.
func (r *Room) SubscriberCount() int {
	return len(r.subscribers)
}

// Subscribers returns every other subscriber except the one whose session id
// is except (used to fan out a set without echoing it back to the writer).
func (r *Room) Subscribers(except uint64) []Subscriber {
	out := make([]Subscriber, 0, len(r.subscribers))
	for id, s := range r.subscribers {
		if id == except {
			continue
		}
		out = append(out, s)
	}
	return out
}
