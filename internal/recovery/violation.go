package recovery

import "sync"

// ViolationTracker counts protocol violations on one connection
// (invalid cursor positions, invalid commands, malformed structured
// fields) and reports when the configured disconnect threshold has been
// reached (spec §4.5 "Write failure semantics", §9 "protocol-violation
// tracker").
type ViolationTracker struct {
	threshold int

	mu    sync.Mutex
	count int
}

// NewViolationTracker creates a tracker that trips after threshold
// violations.
func NewViolationTracker(threshold int) *ViolationTracker {
	return &ViolationTracker{threshold: threshold}
}

// Record increments the violation count and reports whether the
// threshold has now been reached (the connection should be torn down).
func (v *ViolationTracker) Record() (shouldDisconnect bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.count++
	return v.count >= v.threshold
}

// Count returns the current violation count.
func (v *ViolationTracker) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.count
}

// Reset clears the violation count, e.g. after a successful
// reconnection.
func (v *ViolationTracker) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.count = 0
}
