// Package field implements the field descriptor table shared by the
// 3270 and 5250 processors: ordered field storage, navigation, and the
// per-category input-validation rules applied to keystrokes.
package field

import (
	"sort"

	"github.com/ibmterm/emucore/internal/display"
)

// Field is one field descriptor: address, base attribute byte,
// extended attributes, computed length, and MDT state.
type Field struct {
	Address   display.BufferAddress
	BaseAttr  byte
	Extended  ExtendedAttrs
	Length    int
	MDT       bool
	Category  Category
	Bypass    bool // tab-stop skip, independent of Category
	AutoEnter bool // field-full ⇒ advance to next navigable field, no AID
	Trigger   bool // field-full ⇒ synthesize an Enter AID
	Mandatory bool // field-exit validation: must not be left empty
}

// Protected reports whether the field rejects user input.
func (f *Field) Protected() bool { return IsProtected(f.BaseAttr) }

// Numeric reports whether the field carries the numeric display bit.
func (f *Field) Numeric() bool { return IsNumeric(f.BaseAttr) }

// SetModified sets or clears the field's MDT, keeping BaseAttr's MDT
// bit in sync (3270 reads MDT off the attribute byte itself).
func (f *Field) SetModified(on bool) {
	f.MDT = on
	f.BaseAttr = WithMDT(f.BaseAttr, on)
}

// Table is the ordered field-descriptor collection for one Display,
// keyed by buffer address.
type Table struct {
	fields     []*Field
	bufferSize int
}

// NewTable creates an empty field table for a buffer of the given size.
func NewTable(bufferSize int) *Table {
	return &Table{bufferSize: bufferSize}
}

// SetBufferSize updates the buffer size used by length recalculation,
// e.g. after Erase/Write Alternate changes geometry.
func (t *Table) SetBufferSize(n int) { t.bufferSize = n }

// Insert adds a field descriptor at addr, replacing any existing field
// there, then recomputes every field's Length from its neighbors.
func (t *Table) Insert(addr display.BufferAddress, baseAttr byte, ext ExtendedAttrs) *Field {
	for _, f := range t.fields {
		if f.Address == addr {
			f.BaseAttr = baseAttr
			f.Extended = ext
			f.Category = CategoryFromAttrs(baseAttr)
			t.recalculateLengths()
			return f
		}
	}
	f := &Field{
		Address:  addr,
		BaseAttr: baseAttr,
		Extended: ext,
		Category: CategoryFromAttrs(baseAttr),
	}
	t.fields = append(t.fields, f)
	sort.Slice(t.fields, func(i, j int) bool { return t.fields[i].Address < t.fields[j].Address })
	t.recalculateLengths()
	return f
}

func (t *Table) recalculateLengths() {
	n := len(t.fields)
	for i, f := range t.fields {
		var end int
		if i+1 < n {
			end = int(t.fields[i+1].Address)
		} else {
			end = t.bufferSize
		}
		length := end - int(f.Address)
		if length < 0 {
			length += t.bufferSize
		}
		f.Length = length
	}
}

// Clear drops every field descriptor.
func (t *Table) Clear() { t.fields = nil }

// Fields returns the fields in address order. The caller must not
// mutate the slice; mutate fields through Table methods.
func (t *Table) Fields() []*Field {
	out := make([]*Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// At returns the field whose address is the greatest address <= addr,
// wrapping to the last field if addr precedes the first one. Returns
// nil if the table is empty.
func (t *Table) At(addr display.BufferAddress) *Field {
	if len(t.fields) == 0 {
		return nil
	}
	var best *Field
	for _, f := range t.fields {
		if f.Address <= addr {
			best = f
		}
	}
	if best == nil {
		// addr precedes every field's address: wrap to the last field,
		// per spec §3 "greatest address ≤ cell's address, with
		// wraparound for pre-first-field cells".
		best = t.fields[len(t.fields)-1]
	}
	return best
}

// NextUnprotected scans forward from cursor (exclusive), wrapping once,
// for the first unprotected, non-bypass field, returning the address of
// the first data cell inside it (one past the field-attribute cell).
// Returns (0, false) if no such field exists.
func (t *Table) NextUnprotected(cursor display.BufferAddress) (display.BufferAddress, bool) {
	n := len(t.fields)
	if n == 0 {
		return 0, false
	}
	start := -1
	for i, f := range t.fields {
		if f.Address > cursor {
			start = i
			break
		}
	}
	if start == -1 {
		start = 0
	}
	for i := 0; i < n; i++ {
		f := t.fields[(start+i)%n]
		if !f.Protected() && !f.Bypass {
			addr := display.BufferAddress((int(f.Address) + 1) % t.bufferSize)
			return addr, true
		}
	}
	return 0, false
}

// Modified yields the fields with MDT set, in address order.
func (t *Table) Modified() []*Field {
	var out []*Field
	for _, f := range t.fields {
		if f.MDT {
			out = append(out, f)
		}
	}
	return out
}

// ResetMDTAll clears every field's MDT bit.
func (t *Table) ResetMDTAll() {
	for _, f := range t.fields {
		f.SetModified(false)
	}
}
