// Package protocol implements the wire-level pieces of the cloud variable
// protocol: frame reassembly and JSON message decoding.
//
// The original protocol parses with a bounded-token parser (jsmn, capped at
// 64 tokens) that walks only the first level of the top-level object and
// skips nested values by their reported token-subtree size. encoding/json's
// map[string]json.RawMessage gives the same shape in Go: each field decodes
// to its exact raw source span (quotes included for strings), and nested
// objects/arrays are never descended into. No example in the retrieval pack
// demonstrates a token-bounded JSON library in actual use (the only
// candidate, gjson, appears solely in a dependency manifest with no call
// site to ground against), so this stays on the standard library — see
// DESIGN.md.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
)

// maxTopLevelFields stands in for the original's 64-token budget: a message
// with more top-level keys than this is rejected before any field is
// inspected. Real handshake/set messages use 2-3 keys.
const maxTopLevelFields = 32

// ErrNotObject is returned when the message's top level is not a JSON
// object.
var ErrNotObject = errors.New("protocol: top-level value is not an object")

// ErrTooManyFields is returned when the top-level object has more than
// maxTopLevelFields keys.
var ErrTooManyFields = errors.New("protocol: too many top-level fields")

// ErrMethodMissing is returned when "method" is absent or not a string.
var ErrMethodMissing = errors.New("protocol: method missing or not a string")

// Message is a parsed top-level JSON object. Field lookups return the raw
// source bytes for that key; nested object/array structure is never
// descended into, matching the original decoder.
type Message struct {
	fields map[string]json.RawMessage
}

// Parse decodes data as a single top-level JSON object.
func Parse(data []byte) (*Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, ErrNotObject
	}
	if len(fields) > maxTopLevelFields {
		return nil, ErrTooManyFields
	}
	return &Message{fields: fields}, nil
}

// Method returns the message's "method" field as a string, or ok=false if
// the key is absent or its value is not a JSON string.
func (m *Message) Method() (string, bool) {
	return m.String("method")
}

// String returns the field named key decoded as a JSON string, or ok=false
// if the key is absent or its value is not a string.
func (m *Message) String(key string) (string, bool) {
	raw, present := m.fields[key]
	if !present {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Raw returns the unparsed source bytes of the field named key, or
// ok=false if the key is absent.
func (m *Message) Raw(key string) (json.RawMessage, bool) {
	raw, present := m.fields[key]
	return raw, present
}

// IsStringOrPrimitive reports whether raw is a JSON string or a JSON
// primitive (number, true, false, or null) rather than an object or array.
// This is the shape a "set" message's value must have: its raw span,
// quotes and all, is what gets stored verbatim.
func IsStringOrPrimitive(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '{', '[':
		return false
	default:
		return true
	}
}
