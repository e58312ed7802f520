package telnet

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// OptionState is one side (local or remote) of an option's negotiated
// state, per the simplified Q-method in spec §4.3.
type OptionState int

const (
	Disabled OptionState = iota
	Wanting
	Enabled
	Disabling
)

type optionPair struct {
	local  OptionState
	remote OptionState
}

// SessionState is the TN3270E negotiation state machine (spec §3,
// "Session state (TN3270E)"). Transitions are monotonic except
// Bound<->Unbound.
type SessionState int

const (
	NotConnected SessionState = iota
	TN3270ENegotiated
	DeviceNegotiated
	Bound
	Unbound
)

func (s SessionState) String() string {
	switch s {
	case NotConnected:
		return "NotConnected"
	case TN3270ENegotiated:
		return "TN3270ENegotiated"
	case DeviceNegotiated:
		return "DeviceNegotiated"
	case Bound:
		return "Bound"
	case Unbound:
		return "Unbound"
	default:
		return "Unknown"
	}
}

// EngineConfig configures an Engine's advertised capabilities.
type EngineConfig struct {
	// TerminalTypes is the ordered list of terminal-type strings offered
	// in response to successive TTYPE SEND requests (a host may ask more
	// than once to cycle through a client's supported list).
	TerminalTypes []string

	// EnvVars is the NEW-ENVIRON variable set reported on SEND (§4.3):
	// USER, DEVNAME, IBMRSEED, etc.
	EnvVars map[string]string
}

// Engine drives telnet option negotiation and the TN3270E device-type/
// BIND subnegotiation flow described in spec §4.3.
type Engine struct {
	cfg EngineConfig

	options map[byte]*optionPair

	// localOffer is the set of options we will proactively WILL/DO and
	// accept DO/WILL for. All seven are supported by this core.
	localOffer map[byte]bool

	termIndex int

	state      SessionState
	deviceCode byte
	device     DeviceType
	luName     string

	// bindSeq counts BIND/UNBIND subcommands seen, folded into the
	// correlation ID so repeated binds of the same LU don't collide.
	bindSeq         int
	bindCorrelation string

	// OnUnknownSubnegotiation, if set, is invoked for subnegotiations this
	// engine does not recognize (logged, not surfaced as an error) rather
	// than silently dropped.
	OnUnknownSubnegotiation func(option byte, payload []byte)
}

// NewEngine creates a negotiation engine that accepts DO and WILL alike
// for BINARY, ECHO, SGA, TTYPE, EOR, NEW-ENVIRON and TN3270E (Start
// picks which of them it proactively offers).
func NewEngine(cfg EngineConfig) *Engine {
	if len(cfg.TerminalTypes) == 0 {
		cfg.TerminalTypes = []string{"IBM-3179-2", "IBM-3278-2"}
	}
	e := &Engine{
		cfg:     cfg,
		options: make(map[byte]*optionPair),
		localOffer: map[byte]bool{
			OptBinary: true, OptEOR: true, OptSGA: true,
			OptTTYPE: true, OptNewEnviron: true, OptTN3270E: true,
			OptEcho: true,
		},
		state: NotConnected,
	}
	return e
}

func (e *Engine) pair(opt byte) *optionPair {
	p, ok := e.options[opt]
	if !ok {
		p = &optionPair{}
		e.options[opt] = p
	}
	return p
}

// Start returns the initial negotiation sequence: local WILL for
// BINARY/EOR/SGA/TTYPE/NEW-ENVIRON/TN3270E, local DO for
// BINARY/EOR/SGA/ECHO.
func (e *Engine) Start() []byte {
	var out []byte
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA, OptTTYPE, OptNewEnviron, OptTN3270E} {
		p := e.pair(opt)
		p.local = Wanting
		out = append(out, BuildWill(opt)...)
	}
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA, OptEcho} {
		p := e.pair(opt)
		p.remote = Wanting
		out = append(out, BuildDo(opt)...)
	}
	return out
}

// IsComplete reports whether negotiation has reached a usable steady
// state: BINARY, EOR, SGA enabled both ways, and either TN3270E is
// disabled or the session is Bound.
func (e *Engine) IsComplete() bool {
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA} {
		p := e.pair(opt)
		if p.local != Enabled || p.remote != Enabled {
			return false
		}
	}
	tn3270e := e.pair(OptTN3270E)
	if tn3270e.local == Enabled || tn3270e.remote == Enabled {
		return e.state == Bound
	}
	return true
}

// State returns the current TN3270E session state.
func (e *Engine) State() SessionState { return e.state }

// LUName returns the bound LU name, or "" if not Bound.
func (e *Engine) LUName() string { return e.luName }

// Device returns the negotiated device type, valid once State() is at
// least DeviceNegotiated.
func (e *Engine) Device() DeviceType { return e.device }

// BindCorrelationID returns the correlation ID computed for the most
// recent BIND or UNBIND subcommand, or "" if none has occurred yet.
// Session-layer code tags telemetry/log events for a bind cycle with
// this so a Bound and its matching Unbound can be joined without
// exposing the raw LU name.
func (e *Engine) BindCorrelationID() string { return e.bindCorrelation }

// HandleCommand processes one parsed Command and returns any bytes that
// must be written back to the host.
func (e *Engine) HandleCommand(cmd Command) ([]byte, error) {
	switch cmd.Kind {
	case KindNegotiation:
		return e.handleNegotiation(cmd.Cmd, cmd.Option), nil
	case KindSubnegotiation:
		return e.handleSubnegotiation(cmd.Option, cmd.Payload)
	default:
		return nil, fmt.Errorf("telnet: unknown command kind %d", cmd.Kind)
	}
}

// handleNegotiation implements the simplified Q-method response policy
// from spec §4.3. It never re-acknowledges an option already in its
// target state, which is what prevents WILL/DO negotiation loops.
func (e *Engine) handleNegotiation(cmd, opt byte) []byte {
	p := e.pair(opt)

	switch cmd {
	case DO:
		if p.local == Enabled {
			return nil
		}
		if e.localOffer[opt] {
			p.local = Enabled
			return BuildWill(opt)
		}
		p.local = Disabled
		return BuildWont(opt)

	case DONT:
		if p.local == Disabled {
			return nil
		}
		p.local = Disabled
		return BuildWont(opt)

	case WILL:
		if p.remote == Enabled {
			return nil
		}
		if e.localOffer[opt] {
			p.remote = Enabled
			if opt == OptTN3270E {
				e.advanceTN3270E(TN3270ENegotiated)
			}
			return BuildDo(opt)
		}
		p.remote = Disabled
		return BuildDont(opt)

	case WONT:
		if p.remote == Disabled {
			return nil
		}
		p.remote = Disabled
		return BuildDont(opt)
	}
	return nil
}

// advanceTN3270E moves the session-state machine forward; transitions
// other than Bound<->Unbound are monotonic, so a backward request is
// ignored rather than rejected.
func (e *Engine) advanceTN3270E(next SessionState) {
	if next == Bound || next == Unbound {
		e.state = next
		return
	}
	if next > e.state {
		e.state = next
	}
}

func (e *Engine) handleSubnegotiation(opt byte, payload []byte) ([]byte, error) {
	switch opt {
	case OptTTYPE:
		return e.handleTTYPE(payload)
	case OptNewEnviron:
		return e.handleNewEnviron(payload)
	case OptTN3270E:
		return e.handleTN3270E(payload)
	default:
		if e.OnUnknownSubnegotiation != nil {
			e.OnUnknownSubnegotiation(opt, payload)
		}
		return nil, nil
	}
}

// handleTTYPE replies to TTYPE SEND with IS <terminal-type>, cycling
// through the configured list on repeated requests.
func (e *Engine) handleTTYPE(payload []byte) ([]byte, error) {
	if len(payload) == 0 || payload[0] != SEND {
		return nil, nil
	}
	termType := e.cfg.TerminalTypes[e.termIndex]
	if e.termIndex < len(e.cfg.TerminalTypes)-1 {
		e.termIndex++
	}
	reply := append([]byte{IS}, []byte(termType)...)
	return BuildSB(OptTTYPE, reply), nil
}

// handleNewEnviron replies to SEND with IS followed by VAR name/VALUE
// value pairs for every configured variable. Names are restricted to
// ASCII identifiers <= 32 chars, per spec §4.3.
func (e *Engine) handleNewEnviron(payload []byte) ([]byte, error) {
	if len(payload) == 0 || payload[0] != SEND {
		return nil, nil
	}
	reply := []byte{IS}
	for name, value := range e.cfg.EnvVars {
		if !validEnvVarName(name) {
			continue
		}
		reply = append(reply, EnvVar)
		reply = append(reply, []byte(name)...)
		reply = append(reply, EnvValue)
		reply = append(reply, []byte(value)...)
	}
	return BuildSB(OptNewEnviron, reply), nil
}

func validEnvVarName(name string) bool {
	if len(name) == 0 || len(name) > 32 {
		return false
	}
	for _, c := range name {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

// handleTN3270E dispatches DEVICE-TYPE/BIND/UNBIND subcommands (§4.3).
func (e *Engine) handleTN3270E(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	switch payload[0] {
	case TN3270EDeviceType:
		return e.handleDeviceType(payload[1:])
	case tn3270eBind:
		e.luName = string(payload[1:])
		e.bindSeq++
		e.bindCorrelation = computeBindDigest(e.luName, e.bindSeq)
		e.advanceTN3270E(Bound)
		return buildTN3270EBindResponse(true), nil
	case tn3270eUnbind:
		e.bindCorrelation = computeBindDigest(e.luName, e.bindSeq)
		e.luName = ""
		e.advanceTN3270E(Unbound)
		return nil, nil
	default:
		if e.OnUnknownSubnegotiation != nil {
			e.OnUnknownSubnegotiation(OptTN3270E, payload)
		}
		return nil, nil
	}
}

// handleDeviceType processes DEVICE-TYPE REQUEST <code>, replying
// DEVICE-TYPE IS <code> and transitioning to DeviceNegotiated.
func (e *Engine) handleDeviceType(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != TN3270ERequest {
		return nil, nil
	}
	code := data[1]
	dt, ok := LookupDeviceType(code)
	if !ok {
		// Unknown device code: negative-acknowledge with DEVICE-TYPE
		// REJECT (no REASON code is sent).
		return buildTN3270EDeviceReject(), nil
	}
	e.deviceCode = code
	e.device = dt
	e.advanceTN3270E(DeviceNegotiated)
	reply := []byte{TN3270EDeviceType, TN3270EIs, code}
	return BuildSB(OptTN3270E, reply), nil
}

// These two subcommand values are not part of the simplified RFC 2355
// dispatch table above (TN3270E* consts cover negotiation housekeeping
// subcommands); BIND and UNBIND are modeled as their own constants
// because spec §4.3 treats them as first-class subcommands alongside
// DEVICE-TYPE.
const (
	tn3270eBind   byte = 0x20
	tn3270eUnbind byte = 0x21
)

func buildTN3270EBindResponse(positive bool) []byte {
	code := TN3270EIs
	if !positive {
		code = TN3270ERejectCmd
	}
	return BuildSB(OptTN3270E, []byte{tn3270eBind, code})
}

func buildTN3270EDeviceReject() []byte {
	return BuildSB(OptTN3270E, []byte{TN3270EDeviceType, TN3270ERejectCmd})
}

// computeBindDigest folds the LU name and bind sequence number into a
// short blake2b digest, truncated to 12 hex characters: long enough to
// disambiguate concurrent sessions, short enough to drop into a log
// line without dominating it.
func computeBindDigest(lu string, seq int) string {
	data := append([]byte(lu), byte(seq), byte(seq>>8))
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
