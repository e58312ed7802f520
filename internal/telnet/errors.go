package telnet

import "errors"

// ErrMalformedCommand is returned when a subnegotiation is not closed by
// IAC SE within maxSubnegotiationPayload bytes.
var ErrMalformedCommand = errors.New("telnet: malformed command")

// ErrUnterminatedSubnegotiation names a partial subnegotiation that
// remains buffered with no chance of completion. No function in this
// package returns it; Codec.Pending reports buffered input instead.
var ErrUnterminatedSubnegotiation = errors.New("telnet: unterminated subnegotiation")
