// Package handshake implements the pre-join header screen and the
// handshake message validation sequence. Grounded on spec.md §4.7: both are
// ordered checks where the first failure closes the connection with a
// specific code, modeled on the teacher's handleWebSocket admission checks
// (internal/single/core/handlers_ws.go) generalized from HTTP-level
// rejection to protocol-level close codes.
package handshake

import (
	"strings"

	"github.com/adred-codev/cloudvar/internal/protocol"
	"github.com/adred-codev/cloudvar/internal/room"
	"github.com/adred-codev/cloudvar/internal/session"
	"github.com/adred-codev/cloudvar/internal/username"
)

// Close codes, per spec.md §6.
const (
	CodeGeneric        = 4000
	CodeBadUsername    = 4002
	CodeOverloaded     = 4003
	CodeProjectDisabled = 4004
	CodeSecurity       = 4005
	CodeIdentify       = 4006
)

const scratchCookiePrefix = "scratchsessionsid="
const maxCookieBytes = 511

// ScreenHeaders runs the pre-join header screen against the incoming
// request's User-Agent and Cookie values. It returns ok=false with a close
// code and reason when the connection must be rejected before a session is
// even created.
func ScreenHeaders(userAgent, cookie string) (ok bool, code int, reason string) {
	if userAgent == "" {
		return false, CodeBadUsername, "Provide a valid User-Agent"
	}

	examine := cookie
	if len(examine) > maxCookieBytes {
		examine = examine[:maxCookieBytes]
	}
	if strings.HasPrefix(examine, scratchCookiePrefix) {
		return false, CodeSecurity, "Stop including Scratch cookies"
	}

	return true, 0, ""
}

// Validate runs the ordered handshake validation sequence against a parsed
// handshake message. On success it joins sess to the resolved room and
// marks it tx-due, triggering the initial catch-up replay. On failure it
// returns the close code and reason the caller must use to reject the
// connection; sess is left unmodified.
func Validate(sess *session.Session, msg *protocol.Message, registry *room.Registry) (ok bool, code int, reason string) {
	method, isStr := msg.Method()
	if !isStr || method != "handshake" {
		return false, CodeGeneric, "expected handshake"
	}

	user, isStr := msg.String("user")
	if !isStr {
		return false, CodeGeneric, "user must be a string"
	}

	projectID, isStr := msg.String("project_id")
	if !isStr {
		return false, CodeProjectDisabled, "project_id must be a string"
	}

	if !username.Validate([]byte(user)) {
		return false, CodeBadUsername, "invalid username"
	}

	r, err := registry.GetOrCreate(projectID)
	if err != nil {
		return false, CodeOverloaded, "room unavailable"
	}

	if err := r.AddSubscriber(sess); err != nil {
		return false, CodeOverloaded, "room at capacity"
	}

	sess.Username = user
	sess.ProjectID = projectID
	sess.Join(r)
	sess.MarkTxDue()

	return true, 0, ""
}
