package room

import (
	"github.com/adred-codev/cloudvar/internal/buffer"
	"github.com/adred-codev/cloudvar/internal/wire"
)

// MaxVariableNameLength is the longest legal variable name, in bytes.
const MaxVariableNameLength = wire.MaxVariableNameLength

// MaxVariableValueLength is the longest legal stored variable value, in bytes.
const MaxVariableValueLength = wire.MaxVariableValueLength

// Variable is a named, sequence-numbered byte-string value inside a Room.
// Its index within Room.Variables is stable for the room's lifetime — Session
// last-seen vectors are addressed in parallel with that index.
type Variable struct {
	Name  string
	Seq   uint64
	value buffer.Buffer
}

func newVariable(name string) *Variable {
	v := &Variable{Name: name}
	v.value.Init(MaxVariableValueLength)
	return v
}

// Value returns the variable's current stored bytes: the raw JSON value
// token as received (quotes included for strings, bare for primitives).
func (v *Variable) Value() []byte { return v.value.Bytes() }

// Set stores data as the variable's new value and increments Seq.
//
// The write happens into a scratch buffer first and is only swapped into
// place on success, so a value that is too large to store leaves the
// variable's previous value intact instead of losing it (see DESIGN.md,
// "oversize set" open question).
func (v *Variable) Set(data []byte) error {
	var scratch buffer.Buffer
	scratch.Init(MaxVariableValueLength)
	if err := scratch.Push(data); err != nil {
		return err
	}
	v.value.Free()
	v.value = scratch
	v.Seq++
	return nil
}
