package telnet

import (
	"bytes"
	"testing"
)

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{
		TerminalTypes: []string{"IBM-3179-2"},
		EnvVars:       map[string]string{"USER": "OPER1", "DEVNAME": "DISPLAY1"},
	})
}

func TestEngineStartOffersCoreOptions(t *testing.T) {
	e := newTestEngine()
	out := e.Start()
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA, OptTTYPE, OptNewEnviron, OptTN3270E} {
		if !bytes.Contains(out, BuildWill(opt)) {
			t.Errorf("Start() missing WILL for option %d", opt)
		}
	}
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA, OptEcho} {
		if !bytes.Contains(out, BuildDo(opt)) {
			t.Errorf("Start() missing DO for option %d", opt)
		}
	}
}

func TestEngineAcceptsSupportedOptionDO(t *testing.T) {
	e := newTestEngine()
	reply, err := e.HandleCommand(Command{Kind: KindNegotiation, Cmd: DO, Option: OptBinary})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(reply, BuildWill(OptBinary)) {
		t.Fatalf("reply = % X, want WILL BINARY", reply)
	}
}

func TestEngineRejectsUnsupportedOptionDO(t *testing.T) {
	e := newTestEngine()
	reply, err := e.HandleCommand(Command{Kind: KindNegotiation, Cmd: DO, Option: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(reply, BuildWont(99)) {
		t.Fatalf("reply = % X, want WONT 99", reply)
	}
}

func TestEngineDoesNotReacknowledgeEnabledOption(t *testing.T) {
	e := newTestEngine()
	if _, err := e.HandleCommand(Command{Kind: KindNegotiation, Cmd: DO, Option: OptBinary}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply, err := e.HandleCommand(Command{Kind: KindNegotiation, Cmd: DO, Option: OptBinary})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != nil {
		t.Fatalf("expected no reply for repeated DO, got % X", reply)
	}
}

func TestEngineWillFromRemoteEnablesRemoteSide(t *testing.T) {
	e := newTestEngine()
	reply, err := e.HandleCommand(Command{Kind: KindNegotiation, Cmd: WILL, Option: OptSGA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(reply, BuildDo(OptSGA)) {
		t.Fatalf("reply = % X, want DO SGA", reply)
	}
	p := e.pair(OptSGA)
	if p.remote != Enabled {
		t.Fatalf("remote state = %v, want Enabled", p.remote)
	}
}

func TestEngineIsCompleteWithoutTN3270E(t *testing.T) {
	e := newTestEngine()
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA} {
		e.pair(opt).local = Enabled
		e.pair(opt).remote = Enabled
	}
	if !e.IsComplete() {
		t.Fatal("expected IsComplete() true once core options enabled and TN3270E untouched")
	}
}

func TestEngineIsCompleteRequiresBoundWhenTN3270EEnabled(t *testing.T) {
	e := newTestEngine()
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA} {
		e.pair(opt).local = Enabled
		e.pair(opt).remote = Enabled
	}
	e.pair(OptTN3270E).local = Enabled
	e.pair(OptTN3270E).remote = Enabled
	if e.IsComplete() {
		t.Fatal("expected IsComplete() false before BIND")
	}
	e.advanceTN3270E(Bound)
	if !e.IsComplete() {
		t.Fatal("expected IsComplete() true once Bound")
	}
}

func TestEngineTTYPESendRepliesIS(t *testing.T) {
	e := newTestEngine()
	reply, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTTYPE, Payload: []byte{SEND}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := BuildSB(OptTTYPE, append([]byte{IS}, []byte("IBM-3179-2")...))
	if !bytes.Equal(reply, want) {
		t.Fatalf("reply = % X, want % X", reply, want)
	}
}

func TestEngineNewEnvironSendRepliesWithVars(t *testing.T) {
	e := newTestEngine()
	reply, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptNewEnviron, Payload: []byte{SEND}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply) == 0 {
		t.Fatal("expected non-empty reply")
	}
	if !bytes.Contains(reply, []byte("OPER1")) {
		t.Fatalf("reply missing USER value: % X", reply)
	}
	if !bytes.Contains(reply, []byte("DISPLAY1")) {
		t.Fatalf("reply missing DEVNAME value: % X", reply)
	}
}

func TestEngineDeviceTypeRequestNegotiatesAndReplies(t *testing.T) {
	e := newTestEngine()
	payload := []byte{TN3270EDeviceType, TN3270ERequest, 0x02}
	reply, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTN3270E, Payload: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := BuildSB(OptTN3270E, []byte{TN3270EDeviceType, TN3270EIs, 0x02})
	if !bytes.Equal(reply, want) {
		t.Fatalf("reply = % X, want % X", reply, want)
	}
	if e.State() != DeviceNegotiated {
		t.Fatalf("state = %v, want DeviceNegotiated", e.State())
	}
	if e.Device().Name != "IBM-3179-2" {
		t.Fatalf("device = %+v", e.Device())
	}
}

func TestEngineDeviceTypeRequestRejectsUnknownCode(t *testing.T) {
	e := newTestEngine()
	payload := []byte{TN3270EDeviceType, TN3270ERequest, 0xEE}
	reply, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTN3270E, Payload: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := BuildSB(OptTN3270E, []byte{TN3270EDeviceType, TN3270ERejectCmd})
	if !bytes.Equal(reply, want) {
		t.Fatalf("reply = % X, want % X", reply, want)
	}
	if e.State() == DeviceNegotiated {
		t.Fatal("state should not advance on rejected device type")
	}
}

func TestEngineBindTransitionsToBoundWithLUName(t *testing.T) {
	e := newTestEngine()
	payload := append([]byte{tn3270eBind}, []byte("LU0001")...)
	reply, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTN3270E, Payload: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.State() != Bound {
		t.Fatalf("state = %v, want Bound", e.State())
	}
	if e.LUName() != "LU0001" {
		t.Fatalf("luName = %q, want LU0001", e.LUName())
	}
	if len(reply) == 0 {
		t.Fatal("expected a BIND acknowledgement reply")
	}
}

func TestEngineUnbindTransitionsToUnbound(t *testing.T) {
	e := newTestEngine()
	e.advanceTN3270E(Bound)
	e.luName = "LU0001"
	_, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTN3270E, Payload: []byte{tn3270eUnbind}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.State() != Unbound {
		t.Fatalf("state = %v, want Unbound", e.State())
	}
	if e.LUName() != "" {
		t.Fatalf("luName = %q, want empty after UNBIND", e.LUName())
	}
}

func TestEngineBindCorrelationIDSetOnBindAndUnbind(t *testing.T) {
	e := newTestEngine()
	if e.BindCorrelationID() != "" {
		t.Fatalf("BindCorrelationID before any BIND = %q, want empty", e.BindCorrelationID())
	}

	payload := append([]byte{tn3270eBind}, []byte("LU0001")...)
	if _, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTN3270E, Payload: payload}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bound := e.BindCorrelationID()
	if bound == "" {
		t.Fatal("BindCorrelationID after BIND is empty")
	}

	if _, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTN3270E, Payload: []byte{tn3270eUnbind}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unbound := e.BindCorrelationID()
	if unbound != bound {
		t.Fatalf("BindCorrelationID changed across UNBIND of the same bind cycle: bound=%q unbound=%q", bound, unbound)
	}

	payload2 := append([]byte{tn3270eBind}, []byte("LU0001")...)
	if _, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTN3270E, Payload: payload2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.BindCorrelationID() == bound {
		t.Fatal("BindCorrelationID did not change across a second BIND of the same LU")
	}
}

func TestEngineUnknownSubnegotiationCallsHook(t *testing.T) {
	e := newTestEngine()
	var gotOpt byte
	var gotPayload []byte
	e.OnUnknownSubnegotiation = func(opt byte, payload []byte) {
		gotOpt = opt
		gotPayload = append([]byte(nil), payload...)
	}
	_, err := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: 200, Payload: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOpt != 200 || !bytes.Equal(gotPayload, []byte{1, 2, 3}) {
		t.Fatalf("hook not invoked correctly: opt=%d payload=% X", gotOpt, gotPayload)
	}
}

func TestEngineTTYPECyclesThroughMultipleTypes(t *testing.T) {
	e := NewEngine(EngineConfig{TerminalTypes: []string{"IBM-3179-2", "IBM-3278-2"}})
	first, _ := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTTYPE, Payload: []byte{SEND}})
	second, _ := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTTYPE, Payload: []byte{SEND}})
	if bytes.Equal(first, second) {
		t.Fatal("expected distinct terminal types on successive SEND requests")
	}
	third, _ := e.HandleCommand(Command{Kind: KindSubnegotiation, Option: OptTTYPE, Payload: []byte{SEND}})
	if !bytes.Equal(second, third) {
		t.Fatal("expected terminal-type cycling to stick on the last entry")
	}
}
