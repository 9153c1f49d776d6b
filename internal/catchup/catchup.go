// Package catchup implements the catch-up writer: building a session's next
// outbound batch from the diff between its last-seen vector and its room's
// variable sequence numbers. Grounded on spec.md §4.8.
package catchup

import (
	"github.com/adred-codev/cloudvar/internal/buffer"
	"github.com/adred-codev/cloudvar/internal/session"
)

// Write runs the catch-up writer for sess if it is tx-due. It resets
// TxDue, diffs sess.LastSeenSequence against sess.Room.Variables, and writes
// one text frame batching every variable that has advanced since the
// session last saw it, in variable-index order, separated by "\n".
//
// If building the batch fails partway through (the tx buffer is full or
// out of memory), the batch is truncated to the last variable that fully
// succeeded; LastSeenSequence is only advanced for variables that made it
// into the truncated frame. If at least one variable succeeded before the
// failure, TxDue is set again so the remainder is retried on the next
// writable callback; if none did, rescheduling is suppressed to avoid a
// busy loop on an always-oversized variable.
func Write(sess *session.Session) error {
	if !sess.TxDue {
		return nil
	}
	sess.TxDue = false

	r := sess.Room
	if r == nil {
		return nil
	}
	sess.GrowLastSeen(len(r.Variables))

	tx := sess.TX()
	tx.Clear()

	truncateTo := 0
	progressed := false
	failed := false

	for i, v := range r.Variables {
		if sess.LastSeenSequence[i] == v.Seq {
			continue
		}

		if err := appendVariable(tx, truncateTo > 0, v.Name, v.Value()); err != nil {
			failed = true
			break
		}

		sess.LastSeenSequence[i] = v.Seq
		truncateTo = tx.Len()
		progressed = true
	}

	if truncateTo == 0 {
		return nil
	}

	tx.Truncate(truncateTo)
	if err := sess.Transport().WriteText(tx.Bytes()); err != nil {
		return err
	}

	if failed && progressed {
		sess.MarkTxDue()
	}

	return nil
}

func appendVariable(tx *buffer.Buffer, needsSeparator bool, name string, value []byte) error {
	if needsSeparator {
		if err := tx.Push([]byte("\n")); err != nil {
			return err
		}
	}
	if err := tx.Push([]byte(`{"method":"set","name":"`)); err != nil {
		return err
	}
	if err := tx.Push([]byte(name)); err != nil {
		return err
	}
	if err := tx.Push([]byte(`","value":`)); err != nil {
		return err
	}
	if err := tx.Push(value); err != nil {
		return err
	}
	return tx.Push([]byte("}"))
}
