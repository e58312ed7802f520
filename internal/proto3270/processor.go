package proto3270

import (
	"github.com/ibmterm/emucore/internal/display"
	"github.com/ibmterm/emucore/internal/field"
	"github.com/ibmterm/emucore/internal/proto"
)

// Processor implements the 3270 command/order/structured-field
// interpreter described in spec §4.5. It owns no state of its own
// beyond addressing mode and device capability flags; the display and
// field data live in the shared *proto.State.
type Processor struct {
	state *proto.State
	mode  AddressMode
	color bool

	violations int
}

// NewProcessor creates a Processor over state, using the given buffer
// addressing mode and color capability (reported in Query Reply).
func NewProcessor(state *proto.State, mode AddressMode, color bool) *Processor {
	return &Processor{state: state, mode: mode, color: color}
}

// Name identifies this processor variant, satisfying the spec §9
// processor capability set (process_bytes, build_aid_reply, name).
func (p *Processor) Name() string { return "3270" }

// Violations returns the running count of protocol violations on this
// connection (addressed cells beyond the buffer, etc.), consulted by
// internal/recovery's per-connection threshold.
func (p *Processor) Violations() int { return p.violations }

// ProcessBytes dispatches one top-level command and returns any bytes
// that must be written back to the host immediately (a read-command or
// structured-field reply). A non-nil error is one of the
// InvalidCommandError/InvalidOrderError/IncompleteDataError/
// InvalidCursorPositionError family; callers decide whether to
// translate it into a DSNR, count a violation, or disconnect.
func (p *Processor) ProcessBytes(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &IncompleteDataError{Expected: 1, Got: 0}
	}
	cmd := data[0]
	body := data[1:]
	switch cmd {
	case CmdWrite:
		return nil, p.processWrite(body, false)
	case CmdEraseWrite:
		return nil, p.processWrite(body, true)
	case CmdEraseWriteAlternate:
		p.state.Resize(alternateGeometry(p.state.Geometry()))
		return nil, p.processWrite(body, true)
	case CmdReadBuffer:
		return p.buildReadBuffer(AIDNoAID), nil
	case CmdReadModified:
		return p.buildReadModified(AIDNoAID, false), nil
	case CmdReadModifiedAll:
		return p.buildReadModified(AIDNoAID, true), nil
	case CmdEraseAllUnprotected:
		p.state.ClearUnprotected()
		p.state.UnlockKeyboard()
		return nil, nil
	case CmdWriteStructuredField:
		return p.processStructuredFields(body)
	default:
		return nil, &InvalidCommandError{Code: cmd}
	}
}

// alternateGeometry picks the larger companion geometry for Erase/Write
// Alternate; a host that negotiated Model2 and requests an alternate
// screen gets Model3, otherwise the current geometry is kept.
func alternateGeometry(current display.Geometry) display.Geometry {
	if current == display.Model2 {
		return display.Model3
	}
	return current
}

func (p *Processor) processWrite(data []byte, eraseFirst bool) error {
	if eraseFirst {
		p.state.Clear()
	}
	if len(data) == 0 {
		return &IncompleteDataError{Expected: 1, Got: 0}
	}
	wcc := data[0]
	if wcc&WCCReset != 0 {
		p.state.SetAlarm(false)
		p.state.ResetMDTAll()
	}
	if wcc&WCCResetMDT != 0 {
		p.state.ResetMDTAll()
	}
	if wcc&WCCAlarm != 0 {
		p.state.SetAlarm(true)
	}
	if wcc&WCCRestore != 0 {
		p.state.UnlockKeyboard()
	}
	return p.processOrders(data[1:])
}

func (p *Processor) processOrders(data []byte) error {
	i := 0
	for i < len(data) {
		b := data[i]
		if !isOrder(b) {
			p.state.WriteHost(b)
			i++
			continue
		}
		n, err := p.applyOrder(b, data[i+1:])
		if err != nil {
			return err
		}
		i += 1 + n
	}
	return nil
}

// applyValidation decodes f's Field Validation extended attribute (if
// present) into the AutoEnter/Trigger/Mandatory behavior flags: Mandatory
// Fill drives field-full auto-advance, Trigger synthesizes an Enter AID
// once the field is full, Mandatory Entry is the exit-empty check.
func applyValidation(f *field.Field) {
	if f == nil || !f.Extended.Validation.Set {
		return
	}
	v := f.Extended.Validation.Value
	f.AutoEnter = v&field.ValidationMandatoryFill != 0
	f.Trigger = v&field.ValidationTrigger != 0
	f.Mandatory = v&field.ValidationMandatoryEntry != 0
}

// applyOrder executes one order given its code and the bytes following
// it, returning how many of those bytes it consumed.
func (p *Processor) applyOrder(code byte, rest []byte) (int, error) {
	switch code {
	case OrderSF:
		if len(rest) < 1 {
			return 0, &IncompleteDataError{Expected: 1, Got: len(rest)}
		}
		f := p.state.StartField(rest[0], field.ExtendedAttrs{})
		applyValidation(f)
		return 1, nil

	case OrderSFE:
		if len(rest) < 1 {
			return 0, &IncompleteDataError{Expected: 1, Got: len(rest)}
		}
		count := int(rest[0])
		need := 1 + count*2
		if len(rest) < need {
			return 0, &IncompleteDataError{Expected: need, Got: len(rest)}
		}
		var baseAttr byte
		var ext field.ExtendedAttrs
		for i := 0; i < count; i++ {
			t := rest[1+i*2]
			v := rest[1+i*2+1]
			if t == field.XAAll {
				baseAttr = v
			} else {
				ext.ApplyPair(t, v)
			}
		}
		f := p.state.StartField(baseAttr, ext)
		applyValidation(f)
		return need, nil

	case OrderSBA:
		if len(rest) < 2 {
			return 0, &IncompleteDataError{Expected: 2, Got: len(rest)}
		}
		addr := DecodeAddress(p.mode, rest[0], rest[1])
		if int(addr) >= p.state.BufferSize() {
			p.violations++
			return 2, &InvalidCursorPositionError{Addr: int(addr)}
		}
		p.state.SetCursor(addr)
		return 2, nil

	case OrderSA:
		if len(rest) < 2 {
			return 0, &IncompleteDataError{Expected: 2, Got: len(rest)}
		}
		if f := p.state.FieldAt(p.state.Cursor()); f != nil {
			f.Extended.ApplyPair(rest[0], rest[1])
			applyValidation(f)
		}
		return 2, nil

	case OrderMF:
		if len(rest) < 1 {
			return 0, &IncompleteDataError{Expected: 1, Got: len(rest)}
		}
		count := int(rest[0])
		need := 1 + count*2
		if len(rest) < need {
			return 0, &IncompleteDataError{Expected: need, Got: len(rest)}
		}
		f := p.state.FieldAt(p.state.Cursor())
		for i := 0; i < count; i++ {
			t := rest[1+i*2]
			v := rest[1+i*2+1]
			if f != nil {
				f.Extended.ApplyPair(t, v)
			}
		}
		if f != nil {
			applyValidation(f)
		}
		return need, nil

	case OrderIC:
		return 0, nil

	case OrderPT:
		if addr, ok := p.state.NextUnprotected(p.state.Cursor()); ok {
			p.state.SetCursor(addr)
		}
		return 0, nil

	case OrderRA:
		if len(rest) < 3 {
			return 0, &IncompleteDataError{Expected: 3, Got: len(rest)}
		}
		target := DecodeAddress(p.mode, rest[0], rest[1])
		if int(target) >= p.state.BufferSize() {
			p.violations++
			return 3, &InvalidCursorPositionError{Addr: int(target)}
		}
		p.state.RepeatTo(rest[2], target)
		return 3, nil

	case OrderEUA:
		if len(rest) < 2 {
			return 0, &IncompleteDataError{Expected: 2, Got: len(rest)}
		}
		target := DecodeAddress(p.mode, rest[0], rest[1])
		if int(target) >= p.state.BufferSize() {
			p.violations++
			return 2, &InvalidCursorPositionError{Addr: int(target)}
		}
		p.state.EraseUnprotectedTo(target)
		return 2, nil

	case OrderGE:
		if len(rest) < 1 {
			return 0, &IncompleteDataError{Expected: 1, Got: len(rest)}
		}
		p.state.WriteHost(rest[0])
		return 1, nil

	default:
		return 0, &InvalidOrderError{Code: code}
	}
}

func (p *Processor) processStructuredFields(data []byte) ([]byte, error) {
	sfs, err := ParseStructuredFields(data)
	if err != nil {
		return nil, err
	}
	var reply []byte
	for _, sf := range sfs {
		switch sf.ID {
		case SFReadPartition:
			reply = append(reply, BuildQueryReply(QueryReplyCapabilities{
				Rows:  p.state.Geometry().Rows,
				Cols:  p.state.Geometry().Cols,
				Color: p.color,
			})...)
		default:
			// Unknown SF IDs are skipped by length; nothing to do.
		}
	}
	return reply, nil
}

// buildReadBuffer constructs the Read Buffer reply: AID, cursor
// address, then the entire buffer as raw bytes (field-attribute bytes
// inline), per spec §4.5.
func (p *Processor) buildReadBuffer(aid byte) []byte {
	addr := p.state.Cursor()
	out := make([]byte, 0, 3+p.state.BufferSize())
	out = append(out, aid, byte(addr>>8), byte(addr&0xFF))
	for i := 0; i < p.state.BufferSize(); i++ {
		out = append(out, p.state.CellAt(display.BufferAddress(i)).Char)
	}
	return out
}

// buildReadModified constructs the Read Modified / Read Modified All
// reply: AID, cursor address, then for each relevant field an SBA order
// plus the field's non-null bytes.
func (p *Processor) buildReadModified(aid byte, all bool) []byte {
	addr := p.state.Cursor()
	out := []byte{aid, byte(addr >> 8), byte(addr & 0xFF)}

	var fields []*field.Field
	if all {
		fields = p.state.AllFields()
	} else {
		fields = p.state.ModifiedFields()
	}

	for _, f := range fields {
		hi, lo := EncodeAddress(p.mode, f.Address)
		out = append(out, OrderSBA, hi, lo)
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
// key: identical framing to Read Modified (spec §4.5/§6), since a
// terminal's own keystroke transmission and a host's Read Modified poll
// share the same wire format.
func (p *Processor) BuildAIDReply(aid byte) []byte {
	return p.buildReadModified(aid, false)
}
