// Package display implements the character-cell screen buffer shared by
// the 3270 and 5250 data-stream processors: cells, cursor, keyboard
// lock, alarm, and row rendering.
package display

import "fmt"

// Geometry is one of the four screen sizes a negotiated device may use.
type Geometry struct {
	Rows int
	Cols int
}

// Standard screen geometries (spec §3, "Screen geometry").
var (
	Model2 = Geometry{Rows: 24, Cols: 80}
	Model3 = Geometry{Rows: 32, Cols: 80}
	Model4 = Geometry{Rows: 43, Cols: 80}
	Model5 = Geometry{Rows: 27, Cols: 132}
)

// Size returns the total cell count, rows*cols.
func (g Geometry) Size() int { return g.Rows * g.Cols }

// Address converts a 0-based (row, col) pair into a buffer address.
func (g Geometry) Address(row, col int) BufferAddress {
	return BufferAddress(row*g.Cols + col)
}

// BufferAddress is a 0-based, row-major offset into a Display's cell
// buffer.
type BufferAddress uint16

// Row returns the 0-based row this address falls on, for the given
// geometry.
func (a BufferAddress) Row(g Geometry) int { return int(a) / g.Cols }

// Col returns the 0-based column this address falls on, for the given
// geometry.
func (a BufferAddress) Col(g Geometry) int { return int(a) % g.Cols }

// Position is a (row, col) pair. Internally 0-based; UI exposes the
// 1-based form the controller façade reports to callers.
type Position struct {
	Row int
	Col int
}

// UI returns the 1-based (row, col) external representation.
func (p Position) UI() (row, col int) { return p.Row + 1, p.Col + 1 }

// FromAddress converts a buffer address to a 0-based Position.
func FromAddress(a BufferAddress, g Geometry) Position {
	return Position{Row: a.Row(g), Col: a.Col(g)}
}

// Address converts this Position back to a buffer address.
func (p Position) Address(g Geometry) BufferAddress {
	return g.Address(p.Row, p.Col)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}
