package recovery

import (
	"testing"
	"time"
)

func TestRateLimiterSuppressesBeyondLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("timeout") {
			t.Fatalf("event %d should be allowed", i)
		}
	}
	if rl.Allow("timeout") {
		t.Fatal("4th event within window should be suppressed")
	}
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := NewRateLimiter(1, time.Millisecond)
	base := time.Now()
	rl.now = func() time.Time { return base }
	if !rl.Allow("x") {
		t.Fatal("first event should be allowed")
	}
	rl.now = func() time.Time { return base.Add(time.Second) }
	if !rl.Allow("x") {
		t.Fatal("event after window expiry should be allowed again")
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if cb.State() != Closed {
			t.Fatalf("state after %d failures = %v, want Closed", i+1, cb.State())
		}
	}
	cb.RecordFailure()
	if cb.State() != Open {
		t.Fatalf("state after 3rd failure = %v, want Open", cb.State())
	}
	if cb.Allow() {
		t.Fatal("Allow() should be false while Open")
	}
}

func TestCircuitBreakerHalfOpenAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	base := time.Now()
	cb.now = func() time.Time { return base }
	cb.RecordFailure()
	if cb.State() != Open {
		t.Fatal("expected Open immediately after tripping")
	}
	cb.now = func() time.Time { return base.Add(20 * time.Millisecond) }
	if cb.State() != HalfOpen {
		t.Fatal("expected HalfOpen after cooldown elapses")
	}
	cb.RecordSuccess()
	if cb.State() != Closed {
		t.Fatal("expected Closed after success in HalfOpen")
	}
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	base := time.Now()
	cb.now = func() time.Time { return base }
	cb.RecordFailure()
	cb.now = func() time.Time { return base.Add(20 * time.Millisecond) }
	_ = cb.State() // transitions to HalfOpen
	cb.RecordFailure()
	if cb.State() != Open {
		t.Fatal("expected Open again after HalfOpen trial failure")
	}
}

func TestRetryPolicyExponentialBackoffWithCap(t *testing.T) {
	p := NewRetryPolicy(100*time.Millisecond, 2.0, time.Second, 5)
	if got := p.Delay(1); got != 100*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 100ms", got)
	}
	if got := p.Delay(2); got != 200*time.Millisecond {
		t.Errorf("Delay(2) = %v, want 200ms", got)
	}
	if got := p.Delay(3); got != 400*time.Millisecond {
		t.Errorf("Delay(3) = %v, want 400ms", got)
	}
	if got := p.Delay(10); got != time.Second {
		t.Errorf("Delay(10) = %v, want capped at 1s", got)
	}
}

func TestRetryPolicyShouldRetry(t *testing.T) {
	p := NewRetryPolicy(time.Millisecond, 2.0, time.Second, 3)
	if !p.ShouldRetry(2) {
		t.Fatal("ShouldRetry(2) should be true with MaxAttempts 3")
	}
	if p.ShouldRetry(3) {
		t.Fatal("ShouldRetry(3) should be false with MaxAttempts 3")
	}
}

func TestViolationTrackerTripsAtThreshold(t *testing.T) {
	v := NewViolationTracker(3)
	if v.Record() {
		t.Fatal("1st violation should not trip")
	}
	if v.Record() {
		t.Fatal("2nd violation should not trip")
	}
	if !v.Record() {
		t.Fatal("3rd violation should trip disconnect")
	}
}

func TestViolationTrackerReset(t *testing.T) {
	v := NewViolationTracker(2)
	v.Record()
	v.Reset()
	if v.Count() != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", v.Count())
	}
}

func TestSequenceValidatorInOrder(t *testing.T) {
	v := NewSequenceValidator()
	if !v.Observe(0) {
		t.Fatal("first observation is always in order")
	}
	if !v.Observe(1) {
		t.Fatal("expected in order")
	}
}

func TestSequenceValidatorOutOfOrderStillReported(t *testing.T) {
	v := NewSequenceValidator()
	var gotBad, gotExpected byte
	v.OnOutOfOrder = func(got, expected byte) {
		gotBad, gotExpected = got, expected
	}
	v.Observe(5)
	if v.Observe(7) {
		t.Fatal("expected out-of-order detection")
	}
	if gotBad != 7 || gotExpected != 6 {
		t.Fatalf("OnOutOfOrder(%d,%d), want (7,6)", gotBad, gotExpected)
	}
}

func TestSequenceValidatorWrapsModulo256(t *testing.T) {
	v := NewSequenceValidator()
	v.Observe(255)
	if !v.Observe(0) {
		t.Fatal("255 -> 0 should be in order (mod 256)")
	}
}
