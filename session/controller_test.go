package session

import (
	"net"
	"testing"
	"time"

	"github.com/ibmterm/emucore/internal/display"
	"github.com/ibmterm/emucore/internal/ebcdic"
	"github.com/ibmterm/emucore/internal/field"
	"github.com/ibmterm/emucore/internal/proto"
	"github.com/ibmterm/emucore/internal/proto3270"
)

// newConnectedController builds a Controller with a live in-memory pipe
// standing in for a socket, bypassing dialAndRun/telnet negotiation so
// the façade methods can be exercised directly against a 3270 Processor.
func newConnectedController(t *testing.T) (*Controller, net.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close(); clientSide.Close() })

	cfg := DefaultConfig()
	c := New(cfg)
	st := proto.NewState(display.Model2)

	c.mu.Lock()
	c.conn = clientSide
	c.state = st
	c.active = proto3270.NewProcessor(st, proto3270.Mode12Bit, false)
	c.connected = true
	st.UnlockKeyboard() // a new Display starts locked
	c.mu.Unlock()

	return c, serverSide
}

// insertField plants a field descriptor via StartField and then pins its
// Length (StartField/Insert recompute Length from neighboring fields,
// which the tests want full control over). A later insertField call
// recomputes the Lengths of fields inserted before it.
func insertField(st *proto.State, row, col int, attr byte, length int, autoEnter, trigger bool) *field.Field {
	g := st.Geometry()
	st.SetCursor(g.Address(row, col))
	f := st.StartField(attr, field.ExtendedAttrs{})
	f.Length = length
	f.AutoEnter = autoEnter
	f.Trigger = trigger
	return f
}

func TestTypeCharWritesAndAdvancesCursor(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	insertField(c.state, 0, 0, 0x00, 5, false, false) // unprotected field starting at (0,1)
	c.state.SetCursor(c.state.Geometry().Address(0, 1))

	if err := c.TypeChar('A'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}
	row, col := c.Cursor()
	if row != 1 || col != 3 {
		t.Fatalf("cursor after type = (%d,%d), want (1,3)", row, col)
	}
}

func TestTypeCharRejectsWhenLocked(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	insertField(c.state, 0, 0, 0x00, 5, false, false)
	c.state.SetCursor(c.state.Geometry().Address(0, 1))
	c.state.LockKeyboard()

	if err := c.TypeChar('A'); err != ErrLocked {
		t.Fatalf("TypeChar on locked keyboard = %v, want ErrLocked", err)
	}
}

func TestTypeCharOnProtectedFieldRejected(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	insertField(c.state, 0, 0, field.AttrProtected, 5, false, false)
	c.state.SetCursor(c.state.Geometry().Address(0, 1))

	if err := c.TypeChar('A'); err != field.ErrInvalidCharacter {
		t.Fatalf("TypeChar on protected field = %v, want ErrInvalidCharacter", err)
	}
}

func TestAutoAdvanceMovesToNextUnprotectedField(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	// Field1 (Auto-Enter set, per spec §8 scenario 5) spans its SF (col0)
	// plus one data cell (col1); leaving col2 unused before field2's SF
	// (col3) keeps field1's fill boundary from landing exactly on
	// field2's own SF address.
	field1 := insertField(c.state, 0, 0, 0x00, 2, true, false)
	insertField(c.state, 0, 3, 0x00, 5, false, false)
	field1.Length = 2 // re-pin: inserting field2 recomputed it to 3
	c.state.SetCursor(c.state.Geometry().Address(0, 1))

	if err := c.TypeChar('X'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}
	row, col := c.Cursor()
	if row != 1 || col != 5 {
		t.Fatalf("cursor after auto-advance = (%d,%d), want (1,5)", row, col)
	}
}

func TestAutoAdvanceWithTriggerSendsAIDReply(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	insertField(c.state, 0, 0, 0x00, 2, false, true)
	c.state.SetCursor(c.state.Geometry().Address(0, 1))

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		done <- buf[:n]
	}()

	if err := c.TypeChar('X'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}

	select {
	case reply := <-done:
		if len(reply) == 0 || reply[0] != proto3270.AIDEnter {
			t.Fatalf("trigger reply = % x, want to start with AIDEnter", reply)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for synthesized Enter AID reply")
	}
	if !c.pendingAID {
		t.Fatal("pendingAID not set after trigger")
	}
}

func TestTabAndShiftTabCycleFields(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	insertField(c.state, 0, 0, 0x00, 3, false, false)
	insertField(c.state, 0, 10, 0x00, 3, false, false)
	c.state.SetCursor(c.state.Geometry().Address(0, 0))

	if err := c.Tab(); err != nil {
		t.Fatalf("Tab: %v", err)
	}
	firstRow, firstCol := c.Cursor()

	if err := c.Tab(); err != nil {
		t.Fatalf("Tab: %v", err)
	}

	if err := c.ShiftTab(); err != nil {
		t.Fatalf("ShiftTab: %v", err)
	}
	row, col := c.Cursor()
	if row != firstRow || col != firstCol {
		t.Fatalf("ShiftTab landed at (%d,%d), want back at first field (%d,%d)", row, col, firstRow, firstCol)
	}
}

func TestSendAIDRequiresConnection(t *testing.T) {
	c := New(DefaultConfig())
	if err := c.SendAID(AIDEnter); err != ErrNotConnected {
		t.Fatalf("SendAID on fresh controller = %v, want ErrNotConnected", err)
	}
}

func TestSendAIDWritesReplyAndSetsPendingAID(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		done <- buf[:n]
	}()

	if err := c.SendAID(AIDEnter); err != nil {
		t.Fatalf("SendAID: %v", err)
	}
	select {
	case reply := <-done:
		if len(reply) == 0 || reply[0] != proto3270.AIDEnter {
			t.Fatalf("SendAID reply = % x, want to start with AIDEnter", reply)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for AID reply")
	}
	if !c.pendingAID {
		t.Fatal("pendingAID not set after SendAID")
	}
}

func TestReadModifiedSnapshotRequiresPriorAID(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	if _, err := c.ReadModifiedSnapshot(); err != ErrNoTriggeringAID {
		t.Fatalf("ReadModifiedSnapshot before any AID = %v, want ErrNoTriggeringAID", err)
	}

	go func() {
		buf := make([]byte, 64)
		conn.Read(buf)
	}()
	if err := c.SendAID(AIDEnter); err != nil {
		t.Fatalf("SendAID: %v", err)
	}
	if _, err := c.ReadModifiedSnapshot(); err != nil {
		t.Fatalf("ReadModifiedSnapshot after SendAID: %v", err)
	}
}

func TestSetCursorRejectsOutOfRange(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	if err := c.SetCursor(100, 1); err != ErrInvalidPosition {
		t.Fatalf("SetCursor out of range = %v, want ErrInvalidPosition", err)
	}
	if err := c.SetCursor(1, 1); err != nil {
		t.Fatalf("SetCursor in range: %v", err)
	}
}

func TestFieldsSkipsProtectedAndUsesItAsLabel(t *testing.T) {
	c, conn := newConnectedController(t)
	defer conn.Close()

	// Length 5 = attribute cell (col0) + 4 data cells (col1-4); the next
	// field's SF at col5 is what Insert would recompute this to anyway.
	insertField(c.state, 0, 0, field.AttrProtected, 5, false, false)
	protected := c.state.FieldAt(c.state.Geometry().Address(0, 1))
	for i, ch := range "NAME" {
		addr := display.BufferAddress((int(protected.Address) + 1 + i) % c.state.BufferSize())
		c.state.SetCursor(addr)
		c.state.WriteHost(ebcdic.FromASCII(ch))
	}
	insertField(c.state, 0, 5, 0x00, 6, false, false)

	fields := c.Fields()
	if len(fields) != 1 {
		t.Fatalf("Fields() returned %d entries, want 1 (protected field excluded)", len(fields))
	}
	if fields[0].Label != "NAME" {
		t.Fatalf("Fields()[0].Label = %q, want %q", fields[0].Label, "NAME")
	}
}
