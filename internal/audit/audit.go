// Package audit provides structured lifecycle-event logging, separate from
// the line-by-line operational logging in internal/logging. Adapted from the
// teacher's old_ws/audit_logger.go: the same leveled-event model
// (event name + message + metadata, gated by a minimum level), ported onto
// zerolog instead of a raw stdlib *log.Logger to match the rest of this
// server's logging stack, and keyed by session id instead of an int64 client
// id.
package audit

import (
	"github.com/rs/zerolog"
)

// Level is the severity of an audit event.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Critical
)

func (l Level) zerologLevel() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Warning:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	case Critical:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger logs auditable lifecycle events. The engine records sessions
// established, handshakes succeeded, and sessions closed (a rejected
// handshake shows up as a close carrying its close code); room and variable
// creation and admission rejections are not audited. Events below MinLevel
// are dropped.
type Logger struct {
	base     zerolog.Logger
	MinLevel Level
}

// New returns an audit Logger writing through base.
func New(base zerolog.Logger, minLevel Level) *Logger {
	return &Logger{base: base.With().Str("log_type", "audit").Logger(), MinLevel: minLevel}
}

// Event records one auditable occurrence.
func (l *Logger) Event(level Level, event, message string, sessionID uint64, fields map[string]any) {
	if level < l.MinLevel {
		return
	}
	e := l.base.WithLevel(level.zerologLevel()).Str("event", event)
	if sessionID != 0 {
		e = e.Uint64("session_id", sessionID)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(message)
}

func (l *Logger) Debug(event, message string, sessionID uint64, fields map[string]any) {
	l.Event(Debug, event, message, sessionID, fields)
}

func (l *Logger) Info(event, message string, sessionID uint64, fields map[string]any) {
	l.Event(Info, event, message, sessionID, fields)
}

func (l *Logger) Warning(event, message string, sessionID uint64, fields map[string]any) {
	l.Event(Warning, event, message, sessionID, fields)
}

func (l *Logger) Critical(event, message string, sessionID uint64, fields map[string]any) {
	l.Event(Critical, event, message, sessionID, fields)
}
