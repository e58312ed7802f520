// Package session implements the SessionController façade (spec §4.9):
// it owns the TCP/TLS connection, the telnet negotiation engine, the
// active data-stream processor, the display/field state, and a
// background worker driving the read/negotiate/dispatch loop. The
// worker/coarse-lock/backpressure shape is grounded on the teacher's
// network.TCPClient (one worker goroutine per live connection, a
// mutex-guarded "current connection" pointer, atomic stats).
package session

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ibmterm/emucore/internal/detect"
	"github.com/ibmterm/emucore/internal/display"
	"github.com/ibmterm/emucore/internal/proto"
	"github.com/ibmterm/emucore/internal/proto3270"
	"github.com/ibmterm/emucore/internal/proto5250"
	"github.com/ibmterm/emucore/internal/recovery"
	"github.com/ibmterm/emucore/internal/telnet"
	"github.com/ibmterm/emucore/timer"
)

// processor is the capability set both Processor3270 and Processor5250
// satisfy (spec §9, "two processors sharing a display via a capability
// interface").
type processor interface {
	Name() string
	ProcessBytes(data []byte) ([]byte, error)
	BuildAIDReply(aid byte) []byte
	Violations() int
}

// FieldInfo is one entry of the façade's fields() snapshot.
type FieldInfo struct {
	Label   string
	Content string
	Active  bool
	Row     int
	Col     int
	Length  int
}

// Controller is the thread-safe façade described in spec §4.9/§5. All
// exported methods may be called from any goroutine; the connection's
// read loop runs on a single dedicated worker. The lock is held only
// for state snapshots and brief mutations, never across blocking I/O.
type Controller struct {
	cfg Config

	// sessionID correlates this connection's sink events across a
	// reconnect sequence; it is regenerated on every successful dial.
	sessionID string

	mu          sync.Mutex
	conn        net.Conn
	codec       *telnet.Codec
	neg         *telnet.Engine
	detector    *detect.Detector
	state       *proto.State
	active      processor
	connected   bool
	lastErr     error
	pendingAID  bool

	violations   *recovery.ViolationTracker
	seqValidator *recovery.SequenceValidator
	logLimiter   *recovery.RateLimiter

	// breaker/retry persist across reconnect attempts; they are created
	// once in New and reused for the controller's whole lifetime.
	breaker     *recovery.CircuitBreaker
	retry       *recovery.RetryPolicy
	reconnecting atomic.Bool

	connecting    atomic.Bool
	cancelConnect atomic.Bool

	idle      *timer.Service
	idleEvt   chan timer.Event
	idleID    int
	keepaliveID int

	workerDone chan struct{}
}

// New creates a Controller from cfg. Call Connect or ConnectAsync to
// establish the session.
func New(cfg Config) *Controller {
	c := &Controller{cfg: cfg}
	c.idleEvt = make(chan timer.Event, 4)
	c.idle = timer.NewService(c.idleEvt)
	c.logLimiter = recovery.NewRateLimiter(5, 10*time.Second)
	if cfg.AutoReconnect {
		c.breaker = recovery.NewCircuitBreaker(3, 30*time.Second)
		c.retry = recovery.NewRetryPolicy(time.Second, cfg.ReconnectBackoffMultiplier, 60*time.Second, cfg.MaxReconnectAttempts)
	}
	return c
}

// Connect performs a synchronous connect: dial (optionally TLS) within
// cfg.ConnectTimeout, send the initial negotiation sequence and start
// the worker. It returns once the worker is running; it does not wait
// for negotiation to complete.
func (c *Controller) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	if !c.connecting.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return ErrConnecting
	}
	c.mu.Unlock()
	defer c.connecting.Store(false)

	return c.dialAndRun()
}

// ConnectAsync spawns the connect + negotiation sequence on its own
// goroutine and returns immediately. Progress is observed through
// IsConnecting/IsConnected/TakeLastError; CancelConnect requests
// cooperative abort.
func (c *Controller) ConnectAsync() {
	c.mu.Lock()
	already := c.connected
	c.mu.Unlock()
	if already {
		c.setLastErr(ErrAlreadyConnected)
		return
	}
	if !c.connecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.connecting.Store(false)
		if err := c.dialAndRun(); err != nil {
			c.setLastErr(err)
		}
	}()
}

// CancelConnect requests that an in-flight ConnectAsync abort. It is
// idempotent; once the worker is past the point of return the caller
// will observe IsConnected() true and must call Disconnect().
func (c *Controller) CancelConnect() {
	c.cancelConnect.Store(true)
}

func (c *Controller) dialAndRun() error {
	c.cancelConnect.Store(false)
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	if c.cancelConnect.Load() {
		return ErrCancelled
	}

	rawConn, err := net.DialTimeout("tcp", addr, c.cfg.ConnectTimeout)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return ErrTimeout
		}
		return err
	}

	if c.cancelConnect.Load() {
		rawConn.Close()
		return ErrCancelled
	}

	conn := net.Conn(rawConn)
	if c.cfg.TLS {
		tlsConn := tls.Client(rawConn, &tls.Config{
			ServerName:         c.cfg.Host,
			InsecureSkipVerify: c.cfg.TLSInsecure,
		})
		deadline := time.Now().Add(c.cfg.ConnectTimeout)
		tlsConn.SetDeadline(deadline)
		if err := tlsConn.Handshake(); err != nil {
			rawConn.Close()
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return ErrTimeout
			}
			return err
		}
		tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}

	if c.cancelConnect.Load() {
		conn.Close()
		return ErrCancelled
	}

	neg := telnet.NewEngine(telnet.EngineConfig{
		TerminalTypes: []string{c.cfg.TerminalType},
		EnvVars:       map[string]string{"USER": "EMUCORE"},
	})

	g := c.cfg.ScreenSize
	if g == (display.Geometry{}) {
		g = display.Model2
	}

	c.mu.Lock()
	c.sessionID = uuid.New().String()
	c.conn = conn
	c.codec = telnet.NewCodec()
	c.neg = neg
	c.detector = nil
	c.state = proto.NewState(g)
	c.active = nil
	c.violations = recovery.NewViolationTracker(c.cfg.ViolationThreshold)
	c.seqValidator = recovery.NewSequenceValidator()
	c.seqValidator.OnOutOfOrder = func(got, expected byte) {
		c.cfg.sink().RecordEvent("5250", "out-of-order", fmt.Sprintf("got %d expected %d", got, expected))
	}
	c.connected = true
	c.workerDone = make(chan struct{})
	c.mu.Unlock()

	if initial := neg.Start(); len(initial) > 0 {
		conn.Write(initial)
	}

	go c.readLoop(conn)
	c.mu.Lock()
	c.scheduleIdle()
	c.scheduleKeepalive()
	c.mu.Unlock()
	go c.idleLoop()

	c.cfg.sink().RecordEvent("session", "connect", fmt.Sprintf("%s [%s]", addr, c.sessionID))
	return nil
}

// SessionID returns the correlation ID generated for the current (or
// most recent) successful dial, for matching sink events across a
// reconnect sequence.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// readLoop is the dedicated I/O worker for one connection (spec §5
// "one dedicated worker thread per connected session"), grounded on
// TCPClient.readLoop's shape.
func (c *Controller) readLoop(conn net.Conn) {
	defer close(c.workerDone)
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			c.teardown(err)
			return
		}
		if n == 0 {
			continue
		}
		c.idle.CancelAll()

		c.mu.Lock()
		c.scheduleIdle()
		c.scheduleKeepalive()
		prevState := c.neg.State()
		data, cmds, cerr := c.codec.Feed(buf[:n])
		var writeBack []byte
		for _, cmd := range cmds {
			resp, err := c.neg.HandleCommand(cmd)
			if err != nil {
				if c.logLimiter.Allow("telnet:malformed") {
					c.cfg.sink().RecordEvent("telnet", "malformed", err.Error())
				}
				continue
			}
			writeBack = append(writeBack, resp...)
		}
		if len(data) > 0 {
			writeBack = append(writeBack, c.dispatchData(data)...)
		}
		newState := c.neg.State()
		correlation := c.neg.BindCorrelationID()
		c.mu.Unlock()

		if newState != prevState && (newState == telnet.Bound || newState == telnet.Unbound) {
			kind := "bind"
			if newState == telnet.Unbound {
				kind = "unbind"
			}
			c.cfg.sink().RecordEvent("telnet", kind, correlation)
		}

		if cerr != nil && c.logLimiter.Allow("telnet:codec") {
			c.cfg.sink().RecordEvent("telnet", "malformed", cerr.Error())
		}
		if len(writeBack) > 0 {
			conn.Write(writeBack)
		}
	}
}

// dispatchData routes application-layer bytes (telnet framing already
// stripped) to the active processor, selecting one via ProtocolDetector
// the first time enough signal has arrived. Must be called with c.mu
// held.
func (c *Controller) dispatchData(data []byte) []byte {
	if c.active == nil {
		c.selectProcessor(data)
	}
	if c.active == nil {
		return nil
	}

	// 5250 records carry a leading sequence byte ahead of the ESC-prefixed
	// command (spec §9, "sequence validator"); out-of-order arrivals are
	// logged, never dropped.
	if c.active.Name() == "5250" && len(data) >= 2 && data[0] != proto5250.ESC {
		c.seqValidator.Observe(data[0])
		data = data[1:]
	}

	reply, err := c.active.ProcessBytes(data)
	if err != nil {
		if c.logLimiter.Allow(c.active.Name() + ":violation") {
			c.cfg.sink().RecordEvent(c.active.Name(), "violation", err.Error())
		}
		if c.violations.Record() {
			c.cfg.sink().RecordEvent("session", "disconnect", "violation threshold reached")
			go c.Disconnect()
		}
		return nil
	}
	return reply
}

func (c *Controller) selectProcessor(data []byte) {
	mode := c.cfg.ProtocolMode
	if mode == AutoDetect {
		if c.detector == nil {
			// Tie-break reflects negotiation outcome at the moment
			// classification actually happens, not at dial time (TN3270E
			// negotiation may still have been in flight then).
			c.detector = detect.NewDetector(c.neg.State() == telnet.Bound)
		}
		switch c.detector.Classify(data) {
		case detect.TN3270:
			mode = ModeTN3270
		case detect.TN5250:
			mode = ModeTN5250
		default:
			return
		}
	}

	switch mode {
	case ModeTN3270:
		dt := c.neg.Device()
		g := display.Model2
		color := c.cfg.DeviceColor
		if dt.Rows > 0 {
			g = display.Geometry{Rows: dt.Rows, Cols: dt.Cols}
			color = dt.Color
		}
		c.state.Resize(g)
		c.active = proto3270.NewProcessor(c.state, proto3270.Mode12Bit, color)
	case ModeTN5250:
		g := c.state.Geometry()
		c.active = proto5250.NewProcessor(c.state, g.Rows, g.Cols, "ENU")
	}
}

// teardown marks the connection closed and records the final error.
func (c *Controller) teardown(err error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.idle.CancelAll()
	if wasConnected {
		c.setLastErr(err)
		c.cfg.sink().RecordEvent("session", "disconnect", err.Error())
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		if c.cfg.AutoReconnect {
			go c.attemptReconnect()
		}
	}
}

// attemptReconnect retries dialAndRun with exponential backoff (spec §5,
// session.autoReconnect) and respects the circuit breaker: once it trips
// open, the loop records a "circuit open" event and stops. Only one
// reconnect loop runs at a time.
func (c *Controller) attemptReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	for attempt := 1; c.retry.ShouldRetry(attempt); attempt++ {
		if c.breaker != nil && !c.breaker.Allow() {
			c.cfg.sink().RecordEvent("session", "reconnect", "circuit open, giving up")
			return
		}
		time.Sleep(c.retry.Delay(attempt))
		if c.cancelConnect.Load() {
			return
		}
		if err := c.dialAndRun(); err != nil {
			c.setLastErr(err)
			if c.breaker != nil {
				c.breaker.RecordFailure()
			}
			c.cfg.sink().RecordEvent("session", "reconnect", fmt.Sprintf("attempt %d failed: %v", attempt, err))
			continue
		}
		if c.breaker != nil {
			c.breaker.RecordSuccess()
		}
		c.cfg.sink().RecordEvent("session", "reconnect", fmt.Sprintf("succeeded on attempt %d", attempt))
		return
	}
	c.cfg.sink().RecordEvent("session", "reconnect", "max attempts exhausted")
}

func (c *Controller) setLastErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// TakeLastError returns and clears the most recent connect/network
// error observed by the worker.
func (c *Controller) TakeLastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.lastErr
	c.lastErr = nil
	return err
}

// IsConnecting reports whether a Connect/ConnectAsync is in flight.
func (c *Controller) IsConnecting() bool { return c.connecting.Load() }

// IsConnected reports whether the session has a live connection.
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect closes the connection if one is open. Safe to call when
// already disconnected.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.idle.CancelAll()
	if wasConnected {
		c.cfg.sink().RecordEvent("session", "disconnect", "user request")
	}
}

func (c *Controller) scheduleIdle() {
	c.idleID = c.idle.After(c.cfg.IdleTimeout)
}

func (c *Controller) scheduleKeepalive() {
	if c.cfg.KeepaliveInterval > 0 {
		c.keepaliveID = c.idle.Every(c.cfg.KeepaliveInterval)
	}
}

// idleLoop watches for the idle-timeout/keepalive timer service's
// events: the idle timer firing tears the session down; a repeating
// keepalive timer sends a telnet NOP.
func (c *Controller) idleLoop() {
	for {
		select {
		case ev, ok := <-c.idleEvt:
			if !ok {
				return
			}
			c.mu.Lock()
			connected := c.connected
			conn := c.conn
			isIdle := ev.ID == c.idleID
			isKeepalive := ev.ID == c.keepaliveID
			c.mu.Unlock()
			if !connected {
				return
			}
			if isIdle {
				c.teardown(ErrIdleTimeout)
				return
			}
			if isKeepalive && conn != nil {
				conn.Write([]byte{telnet.IAC, telnet.NOP})
			}
		case <-c.workerDone:
			return
		}
	}
}
