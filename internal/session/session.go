// Package session holds per-connection state: handshake state machine
// position, room membership, the per-variable last-seen vector used for
// catch-up, and the rx/tx buffers. Grounded on the teacher's Client struct
// (internal/shared/connection.go) for the field shape, adapted to the
// cloud-variable protocol's handshake/session-state split described in
// the original protocol's cloud_per_session_data.
package session

import (
	"github.com/adred-codev/cloudvar/internal/buffer"
	"github.com/adred-codev/cloudvar/internal/protocol"
	"github.com/adred-codev/cloudvar/internal/room"
)

// State is a session's position in the handshake state machine.
type State int

const (
	// Connected is the state after CONNECTION_ESTABLISHED and a passed
	// header screen. Only a handshake message is accepted.
	Connected State = iota
	// Joined is the state after a successful handshake. Only set messages
	// are accepted; anything else is logged and ignored.
	Joined
	// Closed marks a session that has been torn down. Present so teardown
	// can be called more than once without effect.
	Closed
)

// Transport is the minimal write surface a session needs from its
// connection. Implemented by internal/transport's per-connection handle.
type Transport interface {
	// WriteText sends one WebSocket text frame. Called only from the
	// engine goroutine.
	WriteText(payload []byte) error
	// RequestWritable asks the transport to deliver a writable event for
	// this session as soon as the socket can accept more bytes.
	RequestWritable()
	// Close closes the underlying connection with a protocol close code
	// and a short human-readable reason.
	Close(code int, reason string)
}

// Session is one connected WebSocket, from CONNECTION_ESTABLISHED (after the
// header screen) to CONNECTION_CLOSED. It is only ever touched from the
// single engine goroutine.
type Session struct {
	id        uint64
	transport Transport

	rx protocol.Reassembler
	tx buffer.Buffer

	state State
	// TxDue is true when a writable callback is pending for real work
	// (catch-up has something to send).
	TxDue bool

	Room *room.Room
	// LastSeenSequence[i] is the highest sequence number of
	// Room.Variables[i] this session has been informed of. Indexed
	// parallel to Room.Variables; grows lazily as the room's variable
	// vector grows (see internal/catchup).
	LastSeenSequence []uint64

	Username  string
	ProjectID string
}

// New creates a session bound to transport, in the Connected state.
func New(id uint64, transport Transport) *Session {
	s := &Session{
		id:        id,
		transport: transport,
		state:     Connected,
	}
	s.rx.Init()
	s.tx.Init(protocol.MaxMessageSize)
	return s
}

// SessionID implements room.Subscriber.
func (s *Session) SessionID() uint64 { return s.id }

// MarkTxDue implements room.Subscriber: it flags this session as having
// pending catch-up work and asks the transport for a writable callback.
func (s *Session) MarkTxDue() {
	s.TxDue = true
	s.transport.RequestWritable()
}

// State returns the session's current handshake-machine state.
func (s *Session) State() State { return s.state }

// Join transitions the session into Joined, binding it to r and sizing the
// last-seen vector to the room's current variable count. Called only after
// the handshake validation sequence in internal/handshake succeeds.
func (s *Session) Join(r *room.Room) {
	s.state = Joined
	s.Room = r
	s.LastSeenSequence = make([]uint64, len(r.Variables))
}

// GrowLastSeen extends LastSeenSequence to cover n variables, zero-filling
// new entries. Called whenever the room's variable vector grows past the
// session's current vector length.
func (s *Session) GrowLastSeen(n int) {
	for len(s.LastSeenSequence) < n {
		s.LastSeenSequence = append(s.LastSeenSequence, 0)
	}
}

// RX returns the session's frame reassembler.
func (s *Session) RX() *protocol.Reassembler { return &s.rx }

// TX returns the session's tx build buffer, used by the catch-up writer.
func (s *Session) TX() *buffer.Buffer { return &s.tx }

// Transport returns the session's transport handle.
func (s *Session) Transport() Transport { return s.transport }

// Close tears the session down. Idempotent: a session with no room
// membership, or one already closed, is safe to close again. Removes the
// session from its room's subscriber set if it was joined.
func (s *Session) Close(code int, reason string) {
	if s.state == Closed {
		return
	}
	if s.Room != nil {
		s.Room.RemoveSubscriber(s.id)
	}
	s.state = Closed
	s.tx.Free()
	s.transport.Close(code, reason)
}
