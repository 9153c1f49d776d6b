// Package transport is the thin driver over internal/engine: it owns the
// HTTP listener, the WebSocket upgrade and permessage-deflate negotiation,
// the static playground file mount, and the per-connection readPump/
// writePump goroutines that are this server's only suspension points.
// Grounded on the teacher's internal/single/core (handlers_ws.go,
// pump_write.go) for the pump shape, adapted from wsutil's auto-reassembling
// reader to raw ws.ReadHeader plus a direct payload read so the engine's
// Reassembler sees each frame's FIN bit itself (spec.md §4.3).
package transport

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/adred-codev/cloudvar/internal/engine"
	"github.com/adred-codev/cloudvar/internal/handshake"
	"github.com/adred-codev/cloudvar/internal/metrics"
	"github.com/adred-codev/cloudvar/internal/resourceguard"
	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"
)

// Per-session receive buffer sizing hint, per spec.md §6.
const recvBufferSize = 1 << 18

const (
	pingPeriod = 50 * time.Second
	writeWait  = 10 * time.Second
)

// Server owns the HTTP listener that accepts WebSocket upgrades and serves
// the static playground directory.
type Server struct {
	Engine  *engine.Engine
	Guard   *resourceguard.Guard
	WebRoot string
	Logger  zerolog.Logger
}

// conn is the per-connection transport handle, implementing
// session.Transport. One is created per accepted WebSocket.
type conn struct {
	id     uint64
	nc     net.Conn
	br     *bufio.Reader
	eng    *engine.Engine
	logger zerolog.Logger

	writeMu   sync.Mutex
	writable  chan struct{}
	closeOnce sync.Once
}

// ServeHTTP upgrades eligible requests to WebSocket connections, subject to
// the resource guard's admission check and the protocol's header screen,
// and falls back to serving static files from WebRoot for everything else.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Upgrade") != "websocket" {
		http.FileServer(http.Dir(s.WebRoot)).ServeHTTP(w, r)
		return
	}

	if s.Guard != nil {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if ok, reason := s.Guard.AllowAccept(host); !ok {
			s.Logger.Debug().Str("reason", reason).Str("remote", host).Msg("connection rejected by resource guard")
			metrics.ConnectionsRejected.WithLabelValues(reason).Inc()
			http.Error(w, "server overloaded", http.StatusServiceUnavailable)
			return
		}
	}

	// The header screen is an application-level close with a specific
	// protocol close code (spec.md §4.7), which only exists once the
	// connection has actually been upgraded — so it runs against the
	// already-upgraded conn below, not as an HTTP-level rejection here.
	screenOK, screenCode, screenReason := handshake.ScreenHeaders(r.Header.Get("User-Agent"), r.Header.Get("Cookie"))

	var extensionOffered bool
	var deflate wsflate.Parameters
	upgrader := ws.HTTPUpgrader{
		Protocol: func(p string) bool {
			return p == "cloud"
		},
		Negotiate: func(opt httphead.Option) (httphead.Option, error) {
			p, accepted, err := wsflate.Negotiate(opt)
			if err != nil || !accepted {
				return httphead.Option{}, err
			}
			deflate = p
			extensionOffered = true
			return opt, nil
		},
	}

	nc, _, _, err := upgrader.Upgrade(r, w)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if extensionOffered {
		s.Logger.Debug().Interface("deflate_params", deflate).Msg("permessage-deflate negotiated")
	}

	id := s.Engine.NextSessionID()
	c := &conn{
		id:       id,
		nc:       nc,
		br:       bufio.NewReaderSize(nc, recvBufferSize),
		eng:      s.Engine,
		logger:   s.Logger,
		writable: make(chan struct{}, 1),
	}

	if !screenOK {
		s.Logger.Debug().Int("code", screenCode).Str("reason", screenReason).Msg("connection rejected by header screen")
		metrics.ConnectionsRejected.WithLabelValues("header_screen").Inc()
		c.Close(screenCode, screenReason)
		return
	}

	s.Engine.Submit(engine.Event{Kind: engine.Established, SessionID: id, Transport: c})

	go c.writePump()
	go c.readPump()
}

// WriteText implements session.Transport.
func (c *conn) WriteText(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.nc.SetWriteDeadline(time.Now().Add(writeWait))
	return wsutil.WriteServerMessage(c.nc, ws.OpText, payload)
}

// RequestWritable implements session.Transport: it wakes the writePump
// goroutine, which re-enters the engine with a Writable event.
func (c *conn) RequestWritable() {
	select {
	case c.writable <- struct{}{}:
	default:
	}
}

// Close implements session.Transport.
func (c *conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		if code != 0 {
			msg := ws.NewCloseFrameBody(ws.StatusCode(code), reason)
			wsutil.WriteServerMessage(c.nc, ws.OpClose, msg)
		}
		c.writeMu.Unlock()
		c.nc.Close()
	})
}

// readPump is this connection's only suspension point for inbound data. It
// reads raw frames (not wsutil's auto-joined messages) so the engine's
// Reassembler can see each frame's FIN bit itself.
func (c *conn) readPump() {
	defer func() {
		c.Close(0, "")
		c.eng.Submit(engine.Event{Kind: engine.Closed, SessionID: c.id})
	}()

	for {
		header, err := ws.ReadHeader(c.br)
		if err != nil {
			if err != io.EOF {
				c.logger.Debug().Uint64("session_id", c.id).Err(err).Msg("read header failed")
			}
			return
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.br, payload); err != nil {
			c.logger.Debug().Uint64("session_id", c.id).Err(err).Msg("read payload failed")
			return
		}
		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpPing:
			c.writeMu.Lock()
			wsutil.WriteServerMessage(c.nc, ws.OpPong, payload)
			c.writeMu.Unlock()
			continue
		case ws.OpPong:
			continue
		case ws.OpText, ws.OpContinuation:
			c.eng.Submit(engine.Event{
				Kind:      engine.Received,
				SessionID: c.id,
				Payload:   payload,
				Final:     header.Fin,
			})
		}
	}
}

// writePump is this connection's only suspension point for the writable
// signal and keepalive pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.writable:
			c.eng.Submit(engine.Event{Kind: engine.Writable, SessionID: c.id})
		case <-ticker.C:
			c.writeMu.Lock()
			err := wsutil.WriteServerMessage(c.nc, ws.OpPing, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
