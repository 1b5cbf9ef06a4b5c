package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	t.Run("opens after threshold failures", func(t *testing.T) {
		cb := NewCircuitBreaker(3, 100*time.Millisecond, 1)

		assert.Equal(t, CircuitClosed, cb.State())

		cb.RecordFailure()
		cb.RecordFailure()
		assert.Equal(t, CircuitClosed, cb.State())

		cb.RecordFailure()
		assert.Equal(t, CircuitOpen, cb.State())
	})

	t.Run("denies requests when open", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 100*time.Millisecond, 1)

		cb.RecordFailure()
		assert.Equal(t, CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})

	t.Run("transitions to half-open after timeout", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond, 1)

		cb.RecordFailure()
		assert.Equal(t, CircuitOpen, cb.State())

		time.Sleep(20 * time.Millisecond)
		assert.True(t, cb.Allow())
		assert.Equal(t, CircuitHalfOpen, cb.State())
	})

	t.Run("closes after success in half-open", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond, 1)

		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)
		cb.Allow() // transition to half-open

		cb.RecordSuccess()
		assert.Equal(t, CircuitClosed, cb.State())
	})

	t.Run("returns to open on failure in half-open", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond, 1)

		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)
		cb.Allow() // transition to half-open

		cb.RecordFailure()
		assert.Equal(t, CircuitOpen, cb.State())
	})

	t.Run("limits requests in half-open state", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond, 3)

		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)

		// First call transitions from open to half-open and counts as 1.
		assert.True(t, cb.Allow())
		assert.Equal(t, CircuitHalfOpen, cb.State())

		assert.True(t, cb.Allow()) // count = 2
		assert.True(t, cb.Allow()) // count = 3

		assert.False(t, cb.Allow())
	})

	t.Run("reset returns to closed", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 100*time.Millisecond, 1)

		cb.RecordFailure()
		assert.Equal(t, CircuitOpen, cb.State())

		cb.Reset()
		assert.Equal(t, CircuitClosed, cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("success resets failure streak", func(t *testing.T) {
		cb := NewCircuitBreaker(3, 100*time.Millisecond, 1)

		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()
		cb.RecordFailure()
		assert.Equal(t, CircuitClosed, cb.State())
		assert.Equal(t, 2, cb.Failures())
	})

	t.Run("zero parameters fall back to defaults", func(t *testing.T) {
		cb := NewCircuitBreaker(0, 0, 0)
		assert.Equal(t, DefaultCircuitThreshold, cb.threshold)
		assert.Equal(t, DefaultCircuitTimeout, cb.timeout)
		assert.Equal(t, DefaultCircuitHalfOpenMax, cb.halfOpenMax)
	})
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Second, 1)

	cb.RecordSuccess()
	cb.RecordSuccess()
	cb.RecordFailure()

	stats := cb.Stats()
	assert.Equal(t, CircuitClosed, stats.State)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.TotalSuccesses)
	assert.Equal(t, int64(1), stats.TotalFailures)
	assert.False(t, stats.LastFailure.IsZero())
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state    CircuitState
		expected string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestBreakerGroup(t *testing.T) {
	t.Run("same name returns same breaker", func(t *testing.T) {
		group := NewBreakerGroup(3, time.Second, 1)

		a := group.GetOrCreate("bbc-world")
		b := group.GetOrCreate("bbc-world")
		assert.Same(t, a, b)
	})

	t.Run("breakers are independent", func(t *testing.T) {
		group := NewBreakerGroup(1, time.Minute, 1)

		dead := group.GetOrCreate("dead-feed")
		dead.RecordFailure()

		alive := group.GetOrCreate("alive-feed")
		assert.Equal(t, CircuitOpen, dead.State())
		assert.Equal(t, CircuitClosed, alive.State())
		assert.True(t, alive.Allow())
	})

	t.Run("states snapshot", func(t *testing.T) {
		group := NewBreakerGroup(1, time.Minute, 1)
		group.GetOrCreate("one").RecordFailure()
		group.GetOrCreate("two")

		states := group.States()
		assert.Equal(t, CircuitOpen, states["one"])
		assert.Equal(t, CircuitClosed, states["two"])
	})

	t.Run("reset all", func(t *testing.T) {
		group := NewBreakerGroup(1, time.Minute, 1)
		group.GetOrCreate("one").RecordFailure()
		group.GetOrCreate("two").RecordFailure()

		group.ResetAll()
		for _, state := range group.States() {
			assert.Equal(t, CircuitClosed, state)
		}
	})
}
