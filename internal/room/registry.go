// Package room implements the per-room variable store and the process-wide
// room registry.
//
// Grounded on the original protocol's fixed room-slot array
// (protocol_cloud.c: room_get_or_create / room_add_connection /
// room_get_or_create_variable_idx), reshaped per spec.md §9's guidance: a map
// keyed by project id instead of a fixed array of active-flagged slots, with
// an append-only variable vector per room so variable indices stay stable.
//
// Registry (and every Room/Variable it owns) is touched only from the single
// engine goroutine — see internal/engine — so nothing here takes a lock.
package room

import (
	"errors"

	"github.com/adred-codev/cloudvar/internal/wire"
)

// MaxRooms is the maximum number of concurrently active rooms.
const MaxRooms = wire.MaxRooms

// ErrRoomNameTooLong is returned by GetOrCreate when name exceeds
// MaxRoomNameLength.
var ErrRoomNameTooLong = errors.New("room: name too long")

// ErrRegistryFull is returned by GetOrCreate when MaxRooms active rooms
// already exist and name does not name one of them.
var ErrRegistryFull = errors.New("room: registry at capacity")

// Registry maps project ids to rooms. Rooms are created on first join and,
// by deliberate policy (see DESIGN.md), are never freed on last departure —
// they all go away at once only when the engine's Destroy handling replaces
// the whole registry, same as the original's PROTOCOL_DESTROY.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the active room named name, creating it if no room by
// that name is currently active.
func (reg *Registry) GetOrCreate(name string) (*Room, error) {
	if len(name) > MaxRoomNameLength {
		return nil, ErrRoomNameTooLong
	}
	if r, ok := reg.rooms[name]; ok {
		return r, nil
	}
	if len(reg.rooms) >= MaxRooms {
		return nil, ErrRegistryFull
	}
	r := newRoom(name)
	reg.rooms[name] = r
	return r, nil
}

// Get returns the active room named name, if any.
func (reg *Registry) Get(name string) (*Room, bool) {
	r, ok := reg.rooms[name]
	return r, ok
}

// Count returns the number of currently active rooms.
func (reg *Registry) Count() int {
	return len(reg.rooms)
}

// Rooms returns every active room. Used only by metrics sampling.
func (reg *Registry) Rooms() []*Room {
	out := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}
