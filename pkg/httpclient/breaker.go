package httpclient

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements the circuit breaker pattern: after threshold
// consecutive failures the circuit opens and requests are refused until
// timeout elapses, then a limited number of probes decide whether to close.
type CircuitBreaker struct {
	mu              sync.RWMutex
	state           CircuitState
	failures        int // consecutive failures
	halfOpenCount   int
	lastFailureTime time.Time

	threshold   int
	timeout     time.Duration
	halfOpenMax int

	// Total counters, never reset, surfaced by the health endpoint.
	totalRequests  int64
	totalSuccesses int64
	totalFailures  int64
}

// NewCircuitBreaker creates a new circuit breaker with the given parameters.
// Zero or negative parameters fall back to the package defaults.
func NewCircuitBreaker(threshold int, timeout time.Duration, halfOpenMax int) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultCircuitThreshold
	}
	if timeout <= 0 {
		timeout = DefaultCircuitTimeout
	}
	if halfOpenMax <= 0 {
		halfOpenMax = DefaultCircuitHalfOpenMax
	}
	return &CircuitBreaker{
		state:       CircuitClosed,
		threshold:   threshold,
		timeout:     timeout,
		halfOpenMax: halfOpenMax,
	}
}

// Allow returns true if the request should be allowed to proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.timeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenCount = 1 // this request is the first probe
			return true
		}
		return false

	case CircuitHalfOpen:
		if cb.halfOpenCount < cb.halfOpenMax {
			cb.halfOpenCount++
			return true
		}
		return false

	default:
		return false
	}
}

// RecordSuccess records a successful request. A success while half-open
// closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	cb.totalSuccesses++

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
	}
	cb.failures = 0
}

// RecordFailure records a failed request. Crossing the threshold while
// closed, or any failure while half-open, opens the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()
	cb.totalRequests++
	cb.totalFailures++

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.threshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.halfOpenCount = 0
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// CircuitBreakerStats holds statistics about a circuit breaker.
type CircuitBreakerStats struct {
	State          CircuitState `json:"state"`
	Failures       int          `json:"failures"`
	TotalRequests  int64        `json:"total_requests"`
	TotalSuccesses int64        `json:"total_successes"`
	TotalFailures  int64        `json:"total_failures"`
	LastFailure    time.Time    `json:"last_failure,omitempty"`
}

// Stats returns current statistics for this circuit breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		State:          cb.state,
		Failures:       cb.failures,
		TotalRequests:  cb.totalRequests,
		TotalSuccesses: cb.totalSuccesses,
		TotalFailures:  cb.totalFailures,
		LastFailure:    cb.lastFailureTime,
	}
}

// BreakerGroup hands out named circuit breakers that share one set of
// parameters. The feed collector keeps one breaker per source so a single
// dead feed cannot open the circuit for the rest.
type BreakerGroup struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker

	threshold   int
	timeout     time.Duration
	halfOpenMax int
}

// NewBreakerGroup creates a group whose breakers use the given parameters.
func NewBreakerGroup(threshold int, timeout time.Duration, halfOpenMax int) *BreakerGroup {
	return &BreakerGroup{
		breakers:    make(map[string]*CircuitBreaker),
		threshold:   threshold,
		timeout:     timeout,
		halfOpenMax: halfOpenMax,
	}
}

// GetOrCreate returns the breaker for name, creating it on first use.
// Repeated calls with the same name return the same instance.
func (g *BreakerGroup) GetOrCreate(name string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if breaker, ok := g.breakers[name]; ok {
		return breaker
	}
	breaker := NewCircuitBreaker(g.threshold, g.timeout, g.halfOpenMax)
	g.breakers[name] = breaker
	return breaker
}

// States returns the current state of every breaker in the group.
func (g *BreakerGroup) States() map[string]CircuitState {
	g.mu.Lock()
	defer g.mu.Unlock()

	states := make(map[string]CircuitState, len(g.breakers))
	for name, breaker := range g.breakers {
		states[name] = breaker.State()
	}
	return states
}

// ResetAll resets every breaker in the group to closed state.
func (g *BreakerGroup) ResetAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, breaker := range g.breakers {
		breaker.Reset()
	}
}
