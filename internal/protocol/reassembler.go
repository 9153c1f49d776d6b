package protocol

import (
	"github.com/adred-codev/cloudvar/internal/buffer"
	"github.com/adred-codev/cloudvar/internal/wire"
)

// MaxMessageSize is the largest legal single protocol message: a full-length
// variable name plus a full-length value plus JSON envelope padding. It
// sizes the reassembler's rx buffer.
const MaxMessageSize = wire.MaxMessageSize

// Reassembler joins fragmented WebSocket payloads into whole messages. One
// Reassembler belongs to exactly one session and is only ever touched from
// that session's owning goroutine.
type Reassembler struct {
	rx buffer.Buffer
}

// Init prepares the reassembler's rx buffer.
func (r *Reassembler) Init() {
	r.rx.Init(MaxMessageSize)
}

// Feed processes one received WebSocket frame payload. final is the frame's
// FIN bit.
//
//   - final == false: payload is appended to the rx buffer and accumulation
//     continues; ok is always false. A non-nil error means the rx buffer
//     overflowed or could not grow (ErrFull/ErrOOM) and the caller must fail
//     the connection.
//   - final == true and the rx buffer is empty: payload is delivered
//     directly, with no copy.
//   - final == true and the rx buffer is non-empty: payload is appended and
//     the joined message is delivered; the rx buffer is cleared before
//     returning, whether or not the append succeeded.
//
// The returned message is only valid until the next call to Feed.
func (r *Reassembler) Feed(payload []byte, final bool) (msg []byte, ok bool, err error) {
	if !final {
		if err := r.rx.Push(payload); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	if r.rx.Len() == 0 {
		return payload, true, nil
	}

	defer r.rx.Clear()

	if err := r.rx.Push(payload); err != nil {
		return nil, false, err
	}
	return r.rx.Bytes(), true, nil
}
