package proto5250

import (
	"github.com/ibmterm/emucore/internal/display"
	"github.com/ibmterm/emucore/internal/field"
	"github.com/ibmterm/emucore/internal/proto"
)

// Processor implements the 5250 command/order/structured-field
// interpreter described in spec §4.6. Like Processor3270 it owns no
// buffer state of its own; the display and field data live in the
// shared *proto.State.
type Processor struct {
	state *proto.State

	rows, cols int
	language   string

	violations int
}

// NewProcessor creates a Processor over state, reporting the given
// device capability (screen size, language feature code) in Query
// Command replies.
func NewProcessor(state *proto.State, rows, cols int, language string) *Processor {
	return &Processor{state: state, rows: rows, cols: cols, language: language}
}

// Name identifies this processor variant, satisfying the spec §9
// processor capability set.
func (p *Processor) Name() string { return "5250" }

// Violations returns the running count of protocol violations on this
// connection, consulted by internal/recovery's per-connection threshold.
func (p *Processor) Violations() int { return p.violations }

// ProcessBytes dispatches one ESC-prefixed command and returns any
// bytes that must be written back to the host immediately.
func (p *Processor) ProcessBytes(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &IncompleteDataError{Expected: 2, Got: 0}
	}
	if data[0] != ESC {
		return nil, &MissingESCError{Got: data[0]}
	}
	if len(data) < 2 {
		return nil, &IncompleteDataError{Expected: 2, Got: 1}
	}
	cmd := data[1]
	body := data[2:]
	switch cmd {
	case CmdWriteToDisplay:
		return nil, p.processWriteToDisplay(body)
	case CmdClearUnit:
		p.state.Clear()
		p.state.UnlockKeyboard()
		return nil, nil
	case CmdClearUnitAlternate:
		p.state.Clear()
		p.state.UnlockKeyboard()
		return nil, nil
	case CmdReadInputFields:
		return p.buildInputReply(AIDNoAID), nil
	case CmdReadMDTFields, CmdReadMDTFieldsAlternate:
		return p.buildInputReply(AIDNoAID), nil
	case CmdWriteStructuredField:
		return p.processStructuredField(body)
	default:
		return nil, &InvalidCommandError{Code: cmd}
	}
}

func (p *Processor) processWriteToDisplay(data []byte) error {
	i := 0
	for i < len(data) {
		b := data[i]
		switch b {
		case ESC:
			n, err := p.applyOrder(data[i+1:])
			if err != nil {
				return err
			}
			i += 1 + n
		default:
			p.state.WriteHost(b)
			i++
		}
	}
	return nil
}

// applyOrder executes one ESC-prefixed order within a Write to Display
// payload, returning how many bytes after the ESC it consumed.
func (p *Processor) applyOrder(rest []byte) (int, error) {
	if len(rest) < 1 {
		return 0, &IncompleteDataError{Expected: 1, Got: 0}
	}
	switch rest[0] {
	case OrderSBA:
		if len(rest) < 3 {
			return 0, &IncompleteDataError{Expected: 3, Got: len(rest)}
		}
		row, col := int(rest[1]), int(rest[2])
		addr, ok := p.rowColToAddress(row, col)
		if !ok {
			p.violations++
			return 0, &InvalidCursorPositionError{Row: row, Col: col}
		}
		p.state.SetCursor(addr)
		return 3, nil

	case OrderStartOfField:
		// [ESC, 0x1D, attr, ffw1, ffw2, length_hi, length_lo]
		if len(rest) < 6 {
			return 0, &IncompleteDataError{Expected: 6, Got: len(rest)}
		}
		baseAttr := rest[1]
		ffw1, ffw2 := rest[2], rest[3]
		f := p.state.StartField(baseAttr, field.ExtendedAttrs{})
		f.Bypass = ffw1&FFWBypass != 0
		f.Mandatory = ffw1&FFWMandatoryFill != 0
		f.AutoEnter = ffw2&FFWAutoEnter != 0
		f.Trigger = baseAttr == AttrAutoEnter
		return 6, nil

	case OrderRepeatToAddr:
		if len(rest) < 4 {
			return 0, &IncompleteDataError{Expected: 4, Got: len(rest)}
		}
		row, col := int(rest[1]), int(rest[2])
		target, ok := p.rowColToAddress(row, col)
		if !ok {
			p.violations++
			return 0, &InvalidCursorPositionError{Row: row, Col: col}
		}
		p.state.RepeatTo(rest[3], target)
		return 4, nil

	case OrderEraseToAddr:
		if len(rest) < 3 {
			return 0, &IncompleteDataError{Expected: 3, Got: len(rest)}
		}
		row, col := int(rest[1]), int(rest[2])
		target, ok := p.rowColToAddress(row, col)
		if !ok {
			p.violations++
			return 0, &InvalidCursorPositionError{Row: row, Col: col}
		}
		p.state.EraseUnprotectedTo(target)
		return 3, nil

	case OrderInsertCursor:
		return 1, nil

	default:
		return 0, &InvalidOrderError{Code: rest[0]}
	}
}

// rowColToAddress converts 1-based (row, col) to a linear buffer
// address, per spec §9.1's resolution pinning 5250 cursor addressing to
// (row, col) pairs rather than the 12/14-bit 3270 scheme.
func (p *Processor) rowColToAddress(row, col int) (display.BufferAddress, bool) {
	g := p.state.Geometry()
	if row < 1 || row > g.Rows || col < 1 || col > g.Cols {
		return 0, false
	}
	return g.Address(row-1, col-1), true
}

func (p *Processor) addressToRowCol(a display.BufferAddress) (int, int) {
	pos := display.FromAddress(a, p.state.Geometry())
	return pos.Row + 1, pos.Col + 1
}

// processStructuredField validates the class discriminator then
// dispatches on the structured-field ID.
func (p *Processor) processStructuredField(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, &IncompleteDataError{Expected: 4, Got: len(data)}
	}
	// [length_hi, length_lo, class, id, ...data]
	class := data[2]
	if class != SFClass {
		return nil, &InvalidSFClassError{Class: class}
	}
	id := data[3]
	payload := data[4:]
	switch id {
	case SFQueryCommand:
		return p.buildQueryCommandReply(), nil
	case SFEraseReset:
		if len(payload) < 1 {
			return nil, &IncompleteDataError{Expected: 1, Got: 0}
		}
		switch payload[0] {
		case EraseResetToNull:
			p.state.Clear()
		case EraseResetToBlanks:
			p.state.Clear()
			for i := 0; i < p.state.BufferSize(); i++ {
				p.state.SetCellAt(display.BufferAddress(i), display.Cell{Char: 0x40})
			}
		}
		return nil, nil
	default:
		// Unknown structured field IDs are ignored, mirroring the
		// 3270 processor's skip-by-length behavior.
		return nil, nil
	}
}

// buildQueryCommandReply reports this device's capability block: begins
// with SFSetReplyMode (0x85) per spec §8 scenario 4, followed by the
// screen geometry and language feature code.
func (p *Processor) buildQueryCommandReply() []byte {
	out := []byte{SFSetReplyMode, byte(p.rows), byte(p.cols)}
	out = append(out, []byte(p.language)...)
	return out
}

// buildInputReply constructs the Read Input Fields / Read MDT Fields
// reply: AID, 1-based cursor (row, col), then for each relevant field
// an SBA order plus the field's non-null EBCDIC bytes.
func (p *Processor) buildInputReply(aid byte) []byte {
	row, col := p.addressToRowCol(p.state.Cursor())
	out := []byte{aid, byte(row), byte(col)}
	for _, f := range p.state.ModifiedFields() {
		frow, fcol := p.addressToRowCol(f.Address)
		out = append(out, ESC, OrderSBA, byte(frow), byte(fcol))
		for off := 0; off < f.Length-1; off++ {
			addr := display.BufferAddress((int(f.Address) + 1 + off) % p.state.BufferSize())
			ch := p.state.CellAt(addr).Char
			if ch != 0x00 {
				out = append(out, ch)
			}
		}
	}
	return out
}

// BuildAIDReply builds the input-transmission reply for a pressed AID
// key, identical in framing to the unsolicited Read MDT Fields
// response.
func (p *Processor) BuildAIDReply(aid byte) []byte {
	return p.buildInputReply(aid)
}
