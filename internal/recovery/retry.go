package recovery

import "time"

// RetryPolicy computes exponential backoff delays with a max-delay cap
// and a max-attempts limit, for the controller's auto-reconnect loop
// (spec §5, session.autoReconnect / reconnectBackoffMultiplier).
type RetryPolicy struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	MaxAttempts int
}

// NewRetryPolicy creates a policy with the given base delay, backoff
// multiplier, delay cap, and attempt limit.
func NewRetryPolicy(base time.Duration, multiplier float64, maxDelay time.Duration, maxAttempts int) *RetryPolicy {
	return &RetryPolicy{
		BaseDelay:   base,
		Multiplier:  multiplier,
		MaxDelay:    maxDelay,
		MaxAttempts: maxAttempts,
	}
}

// Delay returns the backoff delay before attempt (1-based: the delay
// preceding the first retry, i.e. the second overall attempt, is
// Delay(1)).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt-1; i++ {
		d *= p.Multiplier
		if time.Duration(d) >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// ShouldRetry reports whether another attempt is permitted.
func (p *RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}
