package session

import "errors"

// Session-level errors (spec §7 taxonomy, "Session" category) and the
// façade operation errors layered on top of the lower packages'
// Network/Telnet/Protocol/FieldInput errors.
var (
	ErrNotConnected   = errors.New("session: not connected")
	ErrAlreadyConnected = errors.New("session: already connected")
	ErrTimeout        = errors.New("session: connect timed out")
	ErrConnecting     = errors.New("session: connect already in progress")
	ErrCancelled      = errors.New("session: connect cancelled")
	ErrIdleTimeout    = errors.New("session: idle timeout")
	ErrRateLimited    = errors.New("session: rate limited")
	ErrCommandTooLarge = errors.New("session: command too large")
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrNoTriggeringAID replaces the teacher-observed "placeholder AID
	// 0x60" bug (spec §9 Open Question resolution): a Read Modified
	// reply built without a real AID key press is refused rather than
	// sent with a fabricated AID byte.
	ErrNoTriggeringAID = errors.New("session: read-modified reply requested without a triggering AID key")

	ErrInvalidPosition = errors.New("session: invalid cursor position")
	ErrLocked          = errors.New("session: keyboard locked")
	ErrNoActiveProcessor = errors.New("session: protocol not yet detected")
)
