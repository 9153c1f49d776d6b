// Package engine is the single-threaded event dispatcher at the center of
// the server: every lifecycle event (established/received/writable/closed/
// destroy) is translated here into registry, room, and session operations.
// Grounded on spec.md §9's "event-loop callbacks → state machine" design
// note and modeled on the teacher's Server type (internal/single/core), but
// collapsed onto a single goroutine reading a single channel instead of the
// teacher's worker-pool dispatch, since the protocol's core is explicitly
// single-threaded and lock-free (spec.md §5).
package engine

import (
	"sync/atomic"

	"github.com/adred-codev/cloudvar/internal/audit"
	"github.com/adred-codev/cloudvar/internal/catchup"
	"github.com/adred-codev/cloudvar/internal/handshake"
	"github.com/adred-codev/cloudvar/internal/metrics"
	"github.com/adred-codev/cloudvar/internal/protocol"
	"github.com/adred-codev/cloudvar/internal/room"
	"github.com/adred-codev/cloudvar/internal/session"
	"github.com/rs/zerolog"
)

// EventKind identifies the lifecycle event carried by an Event.
type EventKind int

const (
	// Established fires once per connection, after the transport's header
	// screen has already passed.
	Established EventKind = iota
	// Received carries one WebSocket frame payload and its FIN bit.
	Received
	// Writable fires when the transport's socket can accept more bytes.
	Writable
	// Closed fires once the underlying connection has gone away, for
	// whatever reason (client close, transport error, server-initiated
	// close).
	Closed
	// Destroy fires once at server shutdown and tears down every room.
	Destroy
)

// Event is the engine's sole unit of work. Any goroutine may submit one via
// Submit; only the goroutine running Run ever reads from the engine's channel.
type Event struct {
	Kind      EventKind
	SessionID uint64
	Transport session.Transport
	Payload   []byte
	Final     bool
}

// Engine owns every room, every session, and the registry, and is the only
// thing that ever mutates them. No lock is needed because only the Run
// goroutine ever touches this state.
type Engine struct {
	registry *room.Registry
	sessions map[uint64]*session.Session
	nextID   atomic.Uint64

	events chan Event

	logger zerolog.Logger
	audit  *audit.Logger
}

// New builds an Engine with an empty registry.
func New(logger zerolog.Logger, auditLogger *audit.Logger) *Engine {
	return &Engine{
		registry: room.NewRegistry(),
		sessions: make(map[uint64]*session.Session),
		events:   make(chan Event, 256),
		logger:   logger,
		audit:    auditLogger,
	}
}

// NextSessionID allocates a session id for a new connection. Safe to call
// from any goroutine — it is the one piece of engine state that is
// deliberately atomic, because transport goroutines need an id before they
// can submit the Established event.
func (e *Engine) NextSessionID() uint64 {
	return e.nextID.Add(1)
}

// Submit enqueues an event for processing by Run. Safe to call from any
// goroutine.
func (e *Engine) Submit(ev Event) {
	e.events <- ev
}

// Run processes events until the channel is closed by Stop. It must run on
// its own goroutine and must be the only goroutine that ever reads from
// e.events.
func (e *Engine) Run() {
	for ev := range e.events {
		switch ev.Kind {
		case Established:
			e.handleEstablished(ev)
		case Received:
			e.handleReceived(ev)
		case Writable:
			e.handleWritable(ev)
		case Closed:
			e.handleClosed(ev)
		case Destroy:
			e.handleDestroy()
		}
	}
}

// Stop closes the event channel, causing Run to return once the queue
// drains.
func (e *Engine) Stop() {
	close(e.events)
}

func (e *Engine) handleEstablished(ev Event) {
	sess := session.New(ev.SessionID, ev.Transport)
	e.sessions[ev.SessionID] = sess
	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	e.audit.Info("SessionEstablished", "connection established", ev.SessionID, nil)
}

func (e *Engine) handleReceived(ev Event) {
	sess, ok := e.sessions[ev.SessionID]
	if !ok {
		return
	}

	msgBytes, ready, err := sess.RX().Feed(ev.Payload, ev.Final)
	if err != nil {
		// Reassembly failure is always fatal, regardless of handshake
		// state: the rx buffer is in an unrecoverable condition.
		e.closeSession(sess, handshake.CodeGeneric, "message too large")
		return
	}
	if !ready {
		return
	}

	msg, err := protocol.Parse(msgBytes)
	if err != nil {
		if sess.State() == session.Connected {
			e.closeSession(sess, handshake.CodeGeneric, "malformed message")
			return
		}
		e.logger.Debug().Uint64("session_id", ev.SessionID).Err(err).Msg("ignoring malformed post-handshake message")
		return
	}

	switch sess.State() {
	case session.Connected:
		e.handleHandshake(sess, msg)
	case session.Joined:
		e.handleSet(sess, msg)
	}
}

func (e *Engine) handleHandshake(sess *session.Session, msg *protocol.Message) {
	ok, code, reason := handshake.Validate(sess, msg, e.registry)
	if !ok {
		e.closeSession(sess, code, reason)
		return
	}
	metrics.RoomsActive.Set(float64(e.registry.Count()))
	e.audit.Info("SessionJoined", "handshake succeeded", sess.SessionID(), map[string]any{
		"project_id": sess.ProjectID,
		"username":   sess.Username,
	})
}

func (e *Engine) handleSet(sess *session.Session, msg *protocol.Message) {
	method, ok := msg.Method()
	if !ok || method != "set" {
		return
	}
	name, ok := msg.String("name")
	if !ok {
		return
	}
	value, ok := msg.Raw("value")
	if !ok || !protocol.IsStringOrPrimitive(value) {
		return
	}

	r := sess.Room
	idx, err := r.GetOrCreateVariableIndex(name)
	if err != nil {
		return
	}

	v := r.Variables[idx]
	if err := v.Set(value); err != nil {
		// Too large to store, or out of memory: logged and ignored, the
		// connection stays open (spec.md §4.9 / §7).
		e.logger.Debug().Uint64("session_id", sess.SessionID()).Str("name", name).Err(err).Msg("set rejected")
		return
	}
	metrics.VariablesTotal.Set(float64(countVariables(e.registry)))
	metrics.MessagesTotal.WithLabelValues("rx", "set").Inc()

	sess.GrowLastSeen(idx + 1)
	sess.LastSeenSequence[idx] = v.Seq

	for _, sub := range r.Subscribers(sess.SessionID()) {
		sub.MarkTxDue()
	}
}

func (e *Engine) handleWritable(ev Event) {
	sess, ok := e.sessions[ev.SessionID]
	if !ok {
		return
	}
	if err := catchup.Write(sess); err != nil {
		e.closeSession(sess, 0, "")
		return
	}
	if sess.TxDue {
		return
	}
	metrics.MessagesTotal.WithLabelValues("tx", "set").Inc()
}

func (e *Engine) handleClosed(ev Event) {
	sess, ok := e.sessions[ev.SessionID]
	if !ok {
		return
	}
	e.closeSession(sess, 0, "")
}

func (e *Engine) closeSession(sess *session.Session, code int, reason string) {
	delete(e.sessions, sess.SessionID())
	sess.Close(code, reason)
	metrics.SessionsActive.Dec()
	if code != 0 {
		metrics.ClosesTotal.WithLabelValues(codeLabel(code)).Inc()
	}
	e.audit.Info("SessionClosed", reason, sess.SessionID(), map[string]any{"code": code})
}

func (e *Engine) handleDestroy() {
	for _, sess := range e.sessions {
		sess.Close(0, "")
	}
	e.sessions = make(map[uint64]*session.Session)
	e.registry = room.NewRegistry()
}

func countVariables(reg *room.Registry) int {
	n := 0
	for _, r := range reg.Rooms() {
		n += len(r.Variables)
	}
	return n
}

func codeLabel(code int) string {
	switch code {
	case handshake.CodeGeneric:
		return "4000"
	case handshake.CodeBadUsername:
		return "4002"
	case handshake.CodeOverloaded:
		return "4003"
	case handshake.CodeProjectDisabled:
		return "4004"
	case handshake.CodeSecurity:
		return "4005"
	case handshake.CodeIdentify:
		return "4006"
	default:
		return "other"
	}
}
