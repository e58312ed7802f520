package session

import (
	"net"

	"github.com/ibmterm/emucore/internal/display"
	"github.com/ibmterm/emucore/internal/ebcdic"
	"github.com/ibmterm/emucore/internal/field"
)

// SendAID transmits the reply for a pressed attention key: the active
// processor's BuildAIDReply framing, written as one contiguous write
// (spec §5, "reply bytes generated by an AID are emitted as one
// contiguous write").
func (c *Controller) SendAID(key AIDKey) error {
	c.mu.Lock()
	if !c.connected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.active == nil {
		c.mu.Unlock()
		return ErrNoActiveProcessor
	}

	aid, ok := c.aidByte(key)
	if !ok {
		c.mu.Unlock()
		return ErrNoActiveProcessor
	}

	reply := c.active.BuildAIDReply(aid)
	c.pendingAID = true
	conn := c.conn
	c.mu.Unlock()

	_, err := conn.Write(reply)
	return err
}

func (c *Controller) aidByte(key AIDKey) (byte, bool) {
	if c.active == nil {
		return 0, false
	}
	switch c.active.Name() {
	case "3270":
		b, ok := three270AID[key]
		return b, ok
	case "5250":
		b, ok := five250AID[key]
		return b, ok
	default:
		return 0, false
	}
}

// TypeChar converts ch to EBCDIC (after the field safety filter) and
// writes it at the cursor as user input, then auto-advances past a
// field that is now full.
func (c *Controller) TypeChar(ch rune) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.state == nil {
		c.mu.Unlock()
		return ErrNoActiveProcessor
	}
	if c.state.IsLocked() {
		c.mu.Unlock()
		return ErrLocked
	}

	filtered, err := field.SafetyFilter(ch)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	f := c.state.FieldAt(c.state.Cursor())
	if f == nil {
		c.mu.Unlock()
		return field.ErrNoActiveField
	}
	transformed, ok := field.Validate(f.Category, filtered)
	if !ok {
		c.mu.Unlock()
		return field.ErrInvalidCharacter
	}
	eb := ebcdic.FromASCII(transformed)

	before := c.state.Cursor()
	if err := c.state.WriteUser(eb); err != nil {
		c.mu.Unlock()
		return err
	}
	conn, reply := c.autoAdvance(before, f)
	c.mu.Unlock()

	if conn != nil && reply != nil {
		conn.Write(reply)
	}
	return nil
}

// autoAdvance implements spec §4.7's "full unprotected field with
// Auto-Enter moves focus to the next navigable field; if Enter is set,
// synthesizes an Enter AID". It is called with c.mu already held and
// returns the reply to write (if any) for the caller to send after
// unlocking.
func (c *Controller) autoAdvance(writtenAt display.BufferAddress, f *field.Field) (net.Conn, []byte) {
	fieldEnd := display.BufferAddress((int(f.Address) + f.Length) % max(1, c.state.BufferSize()))
	cursorNow := c.state.Cursor()
	if cursorNow != fieldEnd {
		return nil, nil
	}
	if f.Trigger {
		c.pendingAID = true
		reply := c.active.BuildAIDReply(c.enterByte())
		return c.conn, reply
	}
	if f.AutoEnter {
		if next, ok := c.state.NextUnprotected(cursorNow); ok {
			c.state.SetCursor(next)
		}
	}
	return nil, nil
}

func (c *Controller) enterByte() byte {
	b, _ := c.aidByte(AIDEnter)
	return b
}

// Backspace moves the cursor back one position within the current
// field and nulls that cell.
func (c *Controller) Backspace() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.state == nil {
		return ErrNotConnected
	}
	if c.state.IsLocked() {
		return ErrLocked
	}
	cur := c.state.Cursor()
	prev := display.BufferAddress((int(cur) - 1 + c.state.BufferSize()) % c.state.BufferSize())
	f := c.state.FieldAt(prev)
	if f == nil || f.Protected() || prev == f.Address {
		return field.ErrCursorProtected
	}
	c.state.SetCursor(prev)
	if err := c.state.WriteUser(0x00); err != nil {
		return err
	}
	c.state.SetCursor(prev)
	return nil
}

// Delete nulls the cell at the cursor without moving it.
func (c *Controller) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.state == nil {
		return ErrNotConnected
	}
	if c.state.IsLocked() {
		return ErrLocked
	}
	cur := c.state.Cursor()
	if err := c.state.WriteUser(0x00); err != nil {
		return err
	}
	c.state.SetCursor(cur)
	return nil
}

// Tab moves to the next unprotected field.
func (c *Controller) Tab() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.state == nil {
		return ErrNotConnected
	}
	if next, ok := c.state.NextUnprotected(c.state.Cursor()); ok {
		c.state.SetCursor(next)
		return nil
	}
	return field.ErrNoActiveField
}

// ShiftTab moves to the previous unprotected field. The field table has
// no reverse scan, so this walks NextUnprotected forward all the way
// around the ring back to the field the cursor started in; the field
// visited immediately before that closes the ring is the predecessor.
func (c *Controller) ShiftTab() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.state == nil {
		return ErrNotConnected
	}
	current := c.state.FieldAt(c.state.Cursor())
	if current == nil {
		return field.ErrNoActiveField
	}
	start := current.Address
	prev := start
	walk := start
	for {
		next, ok := c.state.NextUnprotected(walk)
		if !ok {
			return field.ErrNoActiveField
		}
		nf := c.state.FieldAt(next)
		if nf == nil || nf.Address == start {
			break
		}
		prev = nf.Address
		walk = next
	}
	c.state.SetCursor(display.BufferAddress((int(prev) + 1) % c.state.BufferSize()))
	return nil
}

// SetCursor moves the cursor to a 1-based (row, col) position.
func (c *Controller) SetCursor(row, col int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.state == nil {
		return ErrNotConnected
	}
	g := c.state.Geometry()
	if row < 1 || row > g.Rows || col < 1 || col > g.Cols {
		return ErrInvalidPosition
	}
	c.state.SetCursor(g.Address(row-1, col-1))
	return nil
}

// ClickAt moves the cursor to a 1-based (row, col) and reports whether
// the target cell sits inside an active (unprotected) field.
func (c *Controller) ClickAt(row, col int) bool {
	if err := c.SetCursor(row, col); err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.state.FieldAt(c.state.Cursor())
	return f != nil && !f.Protected()
}

// ReadModifiedSnapshot returns the same framing SendAID would have
// transmitted, for a caller that wants to inspect the pending reply
// without writing it to the wire again (e.g. diagnostics). It requires
// that a real SendAID call preceded it in this session; calling it
// without one returns ErrNoTriggeringAID rather than fabricating an AID
// byte, replacing the teacher-observed bug where an unsolicited Read
// Modified emitted a placeholder AID.
func (c *Controller) ReadModifiedSnapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pendingAID || c.active == nil {
		return nil, ErrNoTriggeringAID
	}
	return c.active.BuildAIDReply(0), nil
}

// Cursor returns the current cursor as a 1-based (row, col) pair.
func (c *Controller) Cursor() (row, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return 0, 0
	}
	return c.state.CursorPosition().UI()
}

// ScreenText renders the whole screen as newline-joined rows.
func (c *Controller) ScreenText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return ""
	}
	g := c.state.Geometry()
	out := make([]byte, 0, g.Rows*(g.Cols+1))
	for i := 0; i < g.Rows; i++ {
		row, _ := c.state.Row(i, ebcdic.ToASCII)
		out = append(out, row...)
		if i+1 < g.Rows {
			out = append(out, '\n')
		}
	}
	return string(out)
}

// Fields returns a snapshot of every unprotected field on screen, each
// labeled with the text of the nearest protected field before it.
// Protected fields themselves are not listed.
func (c *Controller) Fields() []FieldInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return nil
	}
	g := c.state.Geometry()
	cur := c.state.Cursor()
	var out []FieldInfo
	var lastProtectedContent string
	for _, f := range c.state.AllFields() {
		pos := display.FromAddress(f.Address, g)
		row, col := pos.UI()
		content := make([]byte, 0, f.Length-1)
		for off := 0; off < f.Length-1; off++ {
			addr := display.BufferAddress((int(f.Address) + 1 + off) % c.state.BufferSize())
			ch := c.state.CellAt(addr).Char
			content = append(content, byte(ebcdic.ToASCII(ch)))
		}
		if f.Protected() {
			lastProtectedContent = string(content)
			continue
		}
		active := addressWithinField(cur, f, c.state.BufferSize())
		out = append(out, FieldInfo{
			Label:   lastProtectedContent,
			Content: string(content),
			Active:  active,
			Row:     row,
			Col:     col,
			Length:  f.Length,
		})
	}
	return out
}

func addressWithinField(addr display.BufferAddress, f *field.Field, bufferSize int) bool {
	start := int(f.Address)
	end := start + f.Length
	a := int(addr)
	if a < start {
		a += bufferSize
	}
	return a > start && a < end
}
