package display

// Cell is one position in the screen buffer. It is either a data cell
// (holding an EBCDIC byte) or a field-attribute cell (IsFieldAttr true,
// in which case Char holds the raw attribute byte rather than
// displayable data).
type Cell struct {
	Char         byte
	IsFieldAttr  bool
	ExtendedAttr byte
}

// Blank reports whether the cell is a null (unwritten) data cell.
func (c Cell) Blank() bool { return !c.IsFieldAttr && c.Char == 0x00 }
