package session

import (
	"testing"

	"github.com/adred-codev/cloudvar/internal/room"
)

type fakeTransport struct {
	writes    [][]byte
	writable  int
	closed    bool
	closeCode int
}

func (f *fakeTransport) WriteText(payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeTransport) RequestWritable() { f.writable++ }

func (f *fakeTransport) Close(code int, reason string) {
	f.closed = true
	f.closeCode = code
}

func TestNewSessionStartsConnected(t *testing.T) {
	ft := &fakeTransport{}
	s := New(1, ft)
	if s.State() != Connected {
		t.Errorf("State() = %v, want Connected", s.State())
	}
	if s.SessionID() != 1 {
		t.Errorf("SessionID() = %d, want 1", s.SessionID())
	}
}

func TestMarkTxDueRequestsWritable(t *testing.T) {
	ft := &fakeTransport{}
	s := New(1, ft)
	s.MarkTxDue()
	if !s.TxDue {
		t.Error("TxDue not set")
	}
	if ft.writable != 1 {
		t.Errorf("RequestWritable called %d times, want 1", ft.writable)
	}
}

func TestJoinSizesLastSeenVector(t *testing.T) {
	reg := room.NewRegistry()
	r, err := reg.GetOrCreate("p1")
	if err != nil {
		t.Fatal(err)
	}
	r.GetOrCreateVariableIndex("x")
	r.GetOrCreateVariableIndex("y")

	ft := &fakeTransport{}
	s := New(1, ft)
	s.Join(r)

	if s.State() != Joined {
		t.Errorf("State() = %v, want Joined", s.State())
	}
	if len(s.LastSeenSequence) != 2 {
		t.Errorf("len(LastSeenSequence) = %d, want 2", len(s.LastSeenSequence))
	}
}

func TestGrowLastSeenExtendsWithZeros(t *testing.T) {
	ft := &fakeTransport{}
	s := New(1, ft)
	s.LastSeenSequence = []uint64{5}
	s.GrowLastSeen(3)
	if len(s.LastSeenSequence) != 3 {
		t.Fatalf("len = %d, want 3", len(s.LastSeenSequence))
	}
	if s.LastSeenSequence[0] != 5 || s.LastSeenSequence[1] != 0 || s.LastSeenSequence[2] != 0 {
		t.Errorf("LastSeenSequence = %v, want [5 0 0]", s.LastSeenSequence)
	}
}

func TestCloseIsIdempotentAndRemovesFromRoom(t *testing.T) {
	reg := room.NewRegistry()
	r, _ := reg.GetOrCreate("p1")

	ft := &fakeTransport{}
	s := New(1, ft)
	s.Join(r)
	r.AddSubscriber(s)

	if r.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", r.SubscriberCount())
	}

	s.Close(4000, "bye")
	if r.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() after close = %d, want 0", r.SubscriberCount())
	}
	if !ft.closed || ft.closeCode != 4000 {
		t.Errorf("transport not closed with expected code: closed=%v code=%d", ft.closed, ft.closeCode)
	}

	// Second close must be a no-op, not a panic or double transport close.
	s.Close(4001, "bye again")
	if ft.closeCode != 4000 {
		t.Errorf("second Close mutated closeCode to %d", ft.closeCode)
	}
}

func TestCloseNeverJoinedIsSafe(t *testing.T) {
	ft := &fakeTransport{}
	s := New(1, ft)
	s.Close(0, "")
	if !ft.closed {
		t.Error("transport not closed")
	}
}
