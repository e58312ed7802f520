package session

import (
	"time"

	"github.com/ibmterm/emucore/internal/display"
	"github.com/ibmterm/emucore/internal/monitor"
)

// ProtocolMode selects how the controller picks a data-stream processor
// for a new connection (spec §6 configuration, terminal.protocolMode).
type ProtocolMode int

const (
	AutoDetect ProtocolMode = iota
	ModeTN5250
	ModeTN3270
	ModeNVT
)

// Config collects every externally tunable knob the controller façade
// reads at connect time. Persistence and validation of these values
// against a config file is out of scope (spec §1); the caller is
// expected to have already produced a valid Config.
type Config struct {
	Host string
	Port uint16

	TLS             bool
	TLSInsecure     bool
	TLSCABundlePath string

	ProtocolMode ProtocolMode
	ScreenSize   display.Geometry
	TerminalType string
	DeviceColor  bool

	ConnectTimeout    time.Duration
	IdleTimeout       time.Duration
	KeepaliveInterval time.Duration

	AutoReconnect              bool
	MaxReconnectAttempts       int
	ReconnectBackoffMultiplier float64

	ViolationThreshold int

	// Sink receives notable lifecycle/protocol events; defaults to
	// monitor.NoopSink when left nil.
	Sink monitor.Sink
}

// DefaultConfig returns the documented defaults (spec §5, §6): 10s
// connect timeout, 900s idle timeout, TLS on for the standard TN3270/
// TN5250-over-TLS port 992 left to the caller to select explicitly.
func DefaultConfig() Config {
	return Config{
		Port:                       23,
		ProtocolMode:               AutoDetect,
		ScreenSize:                 display.Model2,
		TerminalType:               "IBM-3179-2",
		ConnectTimeout:             10 * time.Second,
		IdleTimeout:                900 * time.Second,
		KeepaliveInterval:          60 * time.Second,
		MaxReconnectAttempts:       5,
		ReconnectBackoffMultiplier: 2.0,
		ViolationThreshold:         10,
		Sink:                       monitor.NoopSink{},
	}
}

func (c Config) sink() monitor.Sink {
	if c.Sink == nil {
		return monitor.NoopSink{}
	}
	return c.Sink
}
