// Package proto3270 implements the IBM 3270 data-stream processor:
// command dispatch, order decoding, buffer addressing, structured
// fields, and AID reply construction (RFC 1205/2355).
package proto3270

// Command codes (host -> terminal), spec §4.5.
const (
	CmdWrite                  byte = 0x01
	CmdEraseWrite             byte = 0x05
	CmdEraseWriteAlternate    byte = 0x0D
	CmdReadBuffer             byte = 0x02
	CmdReadModified           byte = 0x06
	CmdReadModifiedAll        byte = 0x0E
	CmdEraseAllUnprotected    byte = 0x0F
	CmdWriteStructuredField   byte = 0x11
)

// Order codes, embedded in Write/Erase-Write data streams.
const (
	OrderSF  byte = 0x1D
	OrderSFE byte = 0x29
	OrderSBA byte = 0x11
	OrderSA  byte = 0x28
	OrderMF  byte = 0x2C
	OrderIC  byte = 0x13
	OrderPT  byte = 0x05
	OrderRA  byte = 0x3C
	OrderEUA byte = 0x12
	OrderGE  byte = 0x08
)

// isOrder reports whether b is a recognized order code.
func isOrder(b byte) bool {
	switch b {
	case OrderSF, OrderSFE, OrderSBA, OrderSA, OrderMF, OrderIC, OrderPT, OrderRA, OrderEUA, OrderGE:
		return true
	default:
		return false
	}
}

// WCC (Write Control Character) bits.
const (
	WCCReset    byte = 0x40
	WCCAlarm    byte = 0x04
	WCCRestore  byte = 0x02
	WCCResetMDT byte = 0x01
)

// AID (Attention Identifier) bytes.
const (
	AIDNoAID          byte = 0x60
	AIDStructuredField byte = 0x88
	AIDReadPartition  byte = 0x61
	AIDTrigger        byte = 0x7F
	AIDPF1            byte = 0xF1
	AIDPF2            byte = 0xF2
	AIDPF3            byte = 0xF3
	AIDPF4            byte = 0xF4
	AIDPF5            byte = 0xF5
	AIDPF6            byte = 0xF6
	AIDPF7            byte = 0xF7
	AIDPF8            byte = 0xF8
	AIDPF9            byte = 0xF9
	AIDPF10           byte = 0x7A
	AIDPF11           byte = 0x7B
	AIDPF12           byte = 0x7C
	AIDPF13           byte = 0xC1
	AIDPF14           byte = 0xC2
	AIDPF15           byte = 0xC3
	AIDPF16           byte = 0xC4
	AIDPF17           byte = 0xC5
	AIDPF18           byte = 0xC6
	AIDPF19           byte = 0xC7
	AIDPF20           byte = 0xC8
	AIDPF21           byte = 0xC9
	AIDPF22           byte = 0x4A
	AIDPF23           byte = 0x4B
	AIDPF24           byte = 0x4C
	AIDPA1            byte = 0x6C
	AIDPA2            byte = 0x6E
	AIDPA3            byte = 0x6B
	AIDClear          byte = 0x6D
	AIDEnter          byte = 0x7D
	AIDSysReq         byte = 0xF0
)

// DSNR sense codes, spec §7 "DSNR sense codes (3270)".
const (
	SenseInvCursPos byte = 0x08
	SenseInvSFA     byte = 0x0C
	SenseWrtEOD     byte = 0x04
	SenseFldEOD     byte = 0x03
)

// BuildDSNR constructs a Data Stream Negative Response:
// [0x04, 0x21, <sense code>, <message truncated to 100 bytes>].
func BuildDSNR(sense byte, message string) []byte {
	const maxMessage = 100
	if len(message) > maxMessage {
		message = message[:maxMessage]
	}
	out := make([]byte, 0, 3+len(message))
	out = append(out, 0x04, 0x21, sense)
	out = append(out, message...)
	return out
}
