package proto3270

// Structured field IDs this core recognizes within a Write Structured
// Field payload (spec §4.5, "Known IDs include Query Reply, Read
// Partition, Set Reply Mode, Erase/Reset, Outbound 3270DS").
const (
	SFReadPartition    byte = 0x01
	SFEraseReset       byte = 0x03
	SFOutbound3270DS   byte = 0x40
	SFSetReplyMode     byte = 0x09
	SFQueryReply       byte = 0x81
)

// StructuredField is one decoded (length, id, data) entry from a WSF
// payload.
type StructuredField struct {
	ID   byte
	Data []byte
}

// ParseStructuredFields splits a Write Structured Field payload into
// its (length, id, data) entries. Length is 2 bytes big-endian and
// counts the whole SF, including the length field itself and the ID
// byte. An SF whose length field extends past the payload yields
// IncompleteDataError.
func ParseStructuredFields(data []byte) ([]StructuredField, error) {
	var out []StructuredField
	i := 0
	for i < len(data) {
		if len(data)-i < 3 {
			return out, &IncompleteDataError{Expected: 3, Got: len(data) - i}
		}
		length := int(data[i])<<8 | int(data[i+1])
		if length < 3 {
			return out, &IncompleteDataError{Expected: 3, Got: length}
		}
		if i+length > len(data) {
			return out, &IncompleteDataError{Expected: length, Got: len(data) - i}
		}
		id := data[i+2]
		payload := data[i+3 : i+length]
		out = append(out, StructuredField{ID: id, Data: payload})
		i += length
	}
	return out, nil
}

// QueryReplyCapabilities describes the device-capability block reported
// in response to a Read Partition Query.
type QueryReplyCapabilities struct {
	Rows  int
	Cols  int
	Color bool
}

// BuildQueryReply constructs a Query Reply SF reporting the device's
// screen geometry and color capability, as expected after a Read
// Partition Query request.
func BuildQueryReply(caps QueryReplyCapabilities) []byte {
	var colorByte byte
	if caps.Color {
		colorByte = 1
	}
	data := []byte{
		SFQueryReply,
		0x81, // QueryReply summary reply type: Usable Area
		byte(caps.Rows),
		byte(caps.Cols),
		colorByte,
	}
	length := len(data) + 2
	out := make([]byte, 0, length)
	out = append(out, byte(length>>8), byte(length&0xFF))
	out = append(out, data...)
	return out
}
