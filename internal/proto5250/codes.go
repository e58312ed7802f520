// Package proto5250 implements the IBM 5250 data-stream command/order
// interpreter (spec §4.6): every command is prefixed with ESC (0x04),
// cursor addressing in SBA orders is (row, col) 1-based rather than a
// 12/14-bit linear address, AID keys are distinct from 3270's, and
// structured fields carry a fixed class discriminator byte.
package proto5250

// ESC precedes every 5250 command byte.
const ESC byte = 0x04

// Command bytes, following the ESC prefix.
const (
	CmdWriteToDisplay        byte = 0x11
	CmdClearUnit             byte = 0x40
	CmdClearUnitAlternate    byte = 0x20
	CmdClearFormatTable      byte = 0x50
	CmdReadInputFields       byte = 0x42
	CmdReadMDTFields         byte = 0x52
	CmdReadMDTFieldsAlternate byte = 0x82
	CmdReadScreenImmediate   byte = 0x72
	CmdWriteStructuredField  byte = 0xF3
	CmdWriteErrorCode        byte = 0x21
	CmdSavePendingOperations byte = 0x24
)

// Order bytes within a Write to Display payload.
const (
	OrderSBA            byte = 0x11 // Set Buffer Address: ESC SBA row col, when encountered as an in-stream order
	OrderStartOfField   byte = 0x1D // SOH-style start-of-field marker, followed by the field format word
	OrderRepeatToAddr   byte = 0x02
	OrderEraseToAddr    byte = 0x03
	OrderInsertCursor   byte = 0x13
)

// Field format word bits. FFWBypass/FFWDupEnable/FFWModified/
// FFWMandatoryFill are the first format-word byte (ffw1); FFWAutoEnter
// is the second (ffw2), per spec §4.6/§4.7: a field whose ffw2
// Auto-Enter bit is set moves focus to the next navigable field once
// full, with no AID synthesized.
const (
	FFWBypass        byte = 0x20
	FFWDupEnable     byte = 0x04
	FFWModified      byte = 0x01
	FFWMandatoryFill byte = 0x08
	FFWAutoEnter     byte = 0x02
)

// Attribute byte values (the byte at a field's attribute position,
// analogous to 3270's base attribute byte but 5250-specific).
// AttrAutoEnter, despite its historical 5250 name, sends an Enter AID
// when the field fills — it maps onto field.Field.Trigger, not
// field.Field.AutoEnter.
const (
	AttrProtected   byte = 0x20
	AttrNumericOnly byte = 0x30
	AttrAutoEnter   byte = 0x22
)

// AID (Attention ID) key values. Function keys beyond F12 and command
// keys transmit as a 2-byte sequence [0x31+n, 0xF1] in some
// implementations; this core treats the AID byte alone as authoritative
// once the session layer has resolved any such sequence to a single
// logical key.
const (
	AIDEnter   byte = 0x0D
	AIDClear   byte = 0xBD
	AIDPF1     byte = 0x31
	AIDPF2     byte = 0x32
	AIDPF3     byte = 0x33
	AIDPF12    byte = 0x3C
	AIDPF13    byte = 0xB1
	AIDPF24    byte = 0xBC
	AIDHelp    byte = 0xF3
	AIDRollUp  byte = 0xF5
	AIDRollDown byte = 0xF4
	AIDNoAID   byte = 0x00
)

// FKeySequence reports the 2-byte transmission [0x30+n, 0xF1] for
// function key n (1-24), i.e. the [0x31+k, 0xF1] scheme with a 0-based
// key index k, for keys beyond the single-byte AID range.
func FKeySequence(n int) (byte, byte) {
	return byte(0x30 + n), 0xF1
}

// Structured field class discriminator. A Write Structured Field
// payload whose class byte is not this value is rejected with
// InvalidSFClassError.
const SFClass byte = 0xD9

// Structured field IDs within the 0xD9-class payload.
const (
	SFQueryCommand byte = 0x84
	SFSetReplyMode byte = 0x85
	SFEraseReset   byte = 0x00
	SFDefineROI    byte = 0x09
)

// Erase/Reset structured-field codes (the byte following SFEraseReset's
// ID, per spec §9.1 "Erase/Reset SF codes").
const (
	EraseResetToNull   byte = 0x00
	EraseResetToBlanks byte = 0x01
)
