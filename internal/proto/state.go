// Package proto implements the bridging layer shared by Processor3270
// and Processor5250: a composite State that owns a Display and a
// field.Table and exposes operations spanning both, so neither
// processor needs independently mutable references to the two (spec
// §9, "Cross-borrowing of display and field table").
package proto

import (
	"github.com/ibmterm/emucore/internal/display"
	"github.com/ibmterm/emucore/internal/field"
)

// State is the display+field-table pair one protocol processor
// operates on. It is not safe for concurrent use; the session
// controller (package session) is responsible for serializing access.
type State struct {
	disp   *display.Display
	fields *field.Table
}

// NewState creates a State sized for the given geometry.
func NewState(g display.Geometry) *State {
	return &State{
		disp:   display.New(g),
		fields: field.NewTable(g.Size()),
	}
}

// Geometry returns the current screen geometry.
func (s *State) Geometry() display.Geometry { return s.disp.Geometry() }

// Resize switches screen geometry (Erase/Write Alternate), clearing the
// buffer and field table to match.
func (s *State) Resize(g display.Geometry) {
	s.disp.Resize(g)
	s.fields.SetBufferSize(g.Size())
	s.fields.Clear()
}

// Clear performs a full erase: zero buffer, cursor to 0, drop all
// fields.
func (s *State) Clear() {
	s.disp.Clear()
	s.fields.Clear()
}

// ClearUnprotected zeroes data cells inside unprotected fields and
// resets their MDT, per Erase All Unprotected / clear_unprotected.
func (s *State) ClearUnprotected() {
	s.disp.ClearUnprotected(s.isProtected)
	for _, f := range s.fields.Fields() {
		if !f.Protected() {
			f.SetModified(false)
		}
	}
}

func (s *State) isProtected(a display.BufferAddress) bool {
	f := s.fields.At(a)
	return f != nil && f.Protected()
}

// Cursor returns the current cursor address.
func (s *State) Cursor() display.BufferAddress { return s.disp.Cursor() }

// SetCursor moves the cursor.
func (s *State) SetCursor(a display.BufferAddress) { s.disp.SetCursor(a) }

// CursorPosition returns the cursor as a 0-based Position.
func (s *State) CursorPosition() display.Position {
	return display.FromAddress(s.disp.Cursor(), s.disp.Geometry())
}

// StartField creates a field descriptor at the current cursor address,
// turns that cell into a field-attribute cell, and advances the
// cursor by one (spec §4.5 "Start Field behavior").
func (s *State) StartField(baseAttr byte, ext field.ExtendedAttrs) *field.Field {
	addr := s.disp.Cursor()
	f := s.fields.Insert(addr, baseAttr, ext)
	s.disp.SetCellAt(addr, display.Cell{IsFieldAttr: true, Char: baseAttr})
	s.disp.SetCursor(display.BufferAddress((int(addr) + 1) % s.disp.Size()))
	return f
}

// WriteHost writes one EBCDIC byte at the cursor as host data: no MDT
// side effect, since MDT only tracks user input (spec §3 invariant).
func (s *State) WriteHost(ch byte) { s.disp.Write(ch) }

// WriteUser writes one EBCDIC byte at the cursor as user keystroke
// data, setting the containing field's MDT if it is unprotected.
// Returns field.ErrCursorProtected without writing if the cursor sits
// in a protected field, field.ErrNoActiveField if there is no field at
// all.
func (s *State) WriteUser(ch byte) error {
	addr := s.disp.Cursor()
	f := s.fields.At(addr)
	if f == nil {
		return field.ErrNoActiveField
	}
	if f.Protected() {
		return field.ErrCursorProtected
	}
	s.disp.Write(ch)
	f.SetModified(true)
	return nil
}

// RepeatTo writes ch from the cursor through target inclusive.
func (s *State) RepeatTo(ch byte, target display.BufferAddress) {
	s.disp.RepeatTo(ch, target)
}

// EraseUnprotectedTo nulls unprotected cells from the cursor through
// target inclusive.
func (s *State) EraseUnprotectedTo(target display.BufferAddress) {
	s.disp.EraseUnprotectedTo(target, s.isProtected)
}

// NextUnprotected returns the address of the next unprotected field's
// first data cell after cursor, per field.Table.NextUnprotected.
func (s *State) NextUnprotected(cursor display.BufferAddress) (display.BufferAddress, bool) {
	return s.fields.NextUnprotected(cursor)
}

// FieldAt returns the field governing addr, or nil if no field exists.
func (s *State) FieldAt(addr display.BufferAddress) *field.Field {
	return s.fields.At(addr)
}

// ModifiedFields returns the fields with MDT set, in address order.
func (s *State) ModifiedFields() []*field.Field {
	return s.fields.Modified()
}

// AllFields returns every field in address order, regardless of MDT
// (used by Read Modified All).
func (s *State) AllFields() []*field.Field {
	return s.fields.Fields()
}

// ResetMDTAll clears every field's MDT bit.
func (s *State) ResetMDTAll() { s.fields.ResetMDTAll() }

// LockKeyboard, UnlockKeyboard, IsLocked, SetAlarm, IsAlarm delegate
// directly to the Display; they involve no field-table interaction.
func (s *State) LockKeyboard()    { s.disp.LockKeyboard() }
func (s *State) UnlockKeyboard()  { s.disp.UnlockKeyboard() }
func (s *State) IsLocked() bool   { return s.disp.IsLocked() }
func (s *State) SetAlarm(on bool) { s.disp.SetAlarm(on) }
func (s *State) IsAlarm() bool    { return s.disp.IsAlarm() }

// CellAt returns the raw cell at addr (read-only access for reply
// construction).
func (s *State) CellAt(addr display.BufferAddress) display.Cell {
	return s.disp.CellAt(addr)
}

// SetCellAt overwrites the raw cell at addr with no field-table or MDT
// side effects. Used by tests and by replies that need to seed the
// buffer directly.
func (s *State) SetCellAt(addr display.BufferAddress, c display.Cell) {
	s.disp.SetCellAt(addr, c)
}

// BufferSize returns the total cell count.
func (s *State) BufferSize() int { return s.disp.Size() }

// Row renders one row as text for screen_text()/UI consumption.
func (s *State) Row(i int, toASCII func(byte) rune) (string, bool) {
	return s.disp.Row(i, toASCII)
}
