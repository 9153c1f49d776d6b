package catchup

import (
	"strings"
	"testing"

	"github.com/adred-codev/cloudvar/internal/room"
	"github.com/adred-codev/cloudvar/internal/session"
)

type fakeTransport struct {
	writes   [][]byte
	writable int
}

func (f *fakeTransport) WriteText(payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.writes = append(f.writes, cp)
	return nil
}
func (f *fakeTransport) RequestWritable()              { f.writable++ }
func (f *fakeTransport) Close(code int, reason string) {}

func TestWriteNoopWhenNotTxDue(t *testing.T) {
	ft := &fakeTransport{}
	sess := session.New(1, ft)

	if err := Write(sess); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(ft.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(ft.writes))
	}
}

func TestWriteSingleVariable(t *testing.T) {
	reg := room.NewRegistry()
	r, _ := reg.GetOrCreate("p1")
	idx, _ := r.GetOrCreateVariableIndex("x")
	r.Variables[idx].Set([]byte(`"42"`))

	ft := &fakeTransport{}
	sess := session.New(1, ft)
	sess.Join(r)
	sess.MarkTxDue()

	if err := Write(sess); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(ft.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(ft.writes))
	}
	want := `{"method":"set","name":"x","value":"42"}`
	if string(ft.writes[0]) != want {
		t.Errorf("wrote %q, want %q", ft.writes[0], want)
	}
	if sess.TxDue {
		t.Error("TxDue still set after a clean write")
	}
}

func TestWriteBatchesMultipleVariablesInIndexOrder(t *testing.T) {
	reg := room.NewRegistry()
	r, _ := reg.GetOrCreate("p1")
	ix, _ := r.GetOrCreateVariableIndex("x")
	iy, _ := r.GetOrCreateVariableIndex("y")
	iz, _ := r.GetOrCreateVariableIndex("z")
	r.Variables[ix].Set([]byte("1"))
	r.Variables[iy].Set([]byte("2"))
	r.Variables[iz].Set([]byte("3"))

	ft := &fakeTransport{}
	sess := session.New(1, ft)
	sess.Join(r)
	sess.MarkTxDue()

	if err := Write(sess); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(ft.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(ft.writes))
	}
	want := `{"method":"set","name":"x","value":1}` + "\n" +
		`{"method":"set","name":"y","value":2}` + "\n" +
		`{"method":"set","name":"z","value":3}`
	if string(ft.writes[0]) != want {
		t.Errorf("wrote %q, want %q", ft.writes[0], want)
	}
}

func TestWriteSkipsVariablesAlreadySeen(t *testing.T) {
	reg := room.NewRegistry()
	r, _ := reg.GetOrCreate("p1")
	ix, _ := r.GetOrCreateVariableIndex("x")
	iy, _ := r.GetOrCreateVariableIndex("y")
	r.Variables[ix].Set([]byte("1"))
	r.Variables[iy].Set([]byte("2"))

	ft := &fakeTransport{}
	sess := session.New(1, ft)
	sess.Join(r)
	sess.LastSeenSequence[ix] = r.Variables[ix].Seq // already caught up on x

	sess.MarkTxDue()
	if err := Write(sess); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(ft.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(ft.writes))
	}
	if strings.Contains(string(ft.writes[0]), `"name":"x"`) {
		t.Errorf("wrote already-seen variable x: %q", ft.writes[0])
	}
	if !strings.Contains(string(ft.writes[0]), `"name":"y"`) {
		t.Errorf("did not write pending variable y: %q", ft.writes[0])
	}
}

func TestWriteNoProgressSuppressesReschedule(t *testing.T) {
	reg := room.NewRegistry()
	r, _ := reg.GetOrCreate("p1")

	ft := &fakeTransport{}
	sess := session.New(1, ft)
	sess.Join(r)
	sess.MarkTxDue()

	if err := Write(sess); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(ft.writes) != 0 {
		t.Errorf("writes = %d, want 0 (nothing pending)", len(ft.writes))
	}
	if ft.writable != 1 {
		t.Errorf("writable requests = %d, want 1 (only the initial MarkTxDue)", ft.writable)
	}
}
