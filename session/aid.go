package session

import (
	"github.com/ibmterm/emucore/internal/proto3270"
	"github.com/ibmterm/emucore/internal/proto5250"
)

// AIDKey is the façade's protocol-independent attention-key
// enumeration (spec §6, send_aid(key)); the controller translates it
// to the active processor's wire byte.
type AIDKey int

const (
	AIDEnter AIDKey = iota
	AIDClear
	AIDPF1
	AIDPF2
	AIDPF3
	AIDPF4
	AIDPF5
	AIDPF6
	AIDPF7
	AIDPF8
	AIDPF9
	AIDPF10
	AIDPF11
	AIDPF12
	AIDPA1
	AIDPA2
	AIDPA3
)

var three270AID = map[AIDKey]byte{
	AIDEnter: proto3270.AIDEnter,
	AIDClear: proto3270.AIDClear,
	AIDPF1:   proto3270.AIDPF1,
	AIDPF2:   proto3270.AIDPF2,
	AIDPF3:   proto3270.AIDPF3,
	AIDPF4:   proto3270.AIDPF4,
	AIDPF5:   proto3270.AIDPF5,
	AIDPF6:   proto3270.AIDPF6,
	AIDPF7:   proto3270.AIDPF7,
	AIDPF8:   proto3270.AIDPF8,
	AIDPF9:   proto3270.AIDPF9,
	AIDPF10:  proto3270.AIDPF10,
	AIDPF11:  proto3270.AIDPF11,
	AIDPF12:  proto3270.AIDPF12,
	AIDPA1:   proto3270.AIDPA1,
	AIDPA2:   proto3270.AIDPA2,
	AIDPA3:   proto3270.AIDPA3,
}

var five250AID = map[AIDKey]byte{
	AIDEnter: proto5250.AIDEnter,
	AIDClear: proto5250.AIDClear,
	AIDPF1:   proto5250.AIDPF1,
	AIDPF2:   proto5250.AIDPF2,
	AIDPF3:   proto5250.AIDPF3,
	AIDPF12:  proto5250.AIDPF12,
	AIDPA1:   proto5250.AIDPF13, // 5250 has no PA keys; PA1 maps to the nearest function key band
	AIDPA2:   proto5250.AIDPF13,
	AIDPA3:   proto5250.AIDPF13,
}
