// Package wire holds the numeric limits shared across the protocol, room,
// and session packages so each doesn't need to import the others just to
// agree on a constant.
package wire

const (
	// MaxRoomNameLength is the longest legal project id, in bytes.
	MaxRoomNameLength = 128
	// MaxVariableNameLength is the longest legal variable name, in bytes.
	MaxVariableNameLength = 128
	// MaxVariableValueLength is the longest legal stored variable value,
	// in bytes.
	MaxVariableValueLength = 100000
	// MaxRooms is the maximum number of concurrently active rooms.
	MaxRooms = 2048
	// MaxRoomVariables is the maximum number of distinct variables a room
	// may hold.
	MaxRoomVariables = 128
	// MaxRoomSubscribers is the maximum number of concurrent sessions a
	// room may hold.
	MaxRoomSubscribers = 128
	// jsonEnvelopePadding accounts for the surrounding
	// {"method":"set","name":"","value":} envelope and its quoting.
	jsonEnvelopePadding = 100
	// MaxMessageSize is the largest legal single protocol message: a
	// full-length variable name plus a full-length value plus JSON
	// envelope padding.
	MaxMessageSize = MaxVariableNameLength + MaxVariableValueLength + jsonEnvelopePadding
)
