package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without invoking it.
// Callers can tell "didn't try" apart from a real call failure with errors.Is.
var ErrOpen = errors.New("circuit open")

type State int8

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker guards one remote dependency. State transitions:
//
//	CLOSED    -> (failures >= threshold)        -> OPEN
//	OPEN      -> (recovery timeout elapsed)     -> HALF_OPEN, one trial call
//	HALF_OPEN -> (success) -> CLOSED, (failure) -> OPEN
//
// The lock covers the state check and the outcome bookkeeping only; the
// wrapped operation runs unlocked so independent calls do not serialize.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailureAt time.Time
	probing       bool
}

func New(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 300 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Call executes op unless the breaker is open. While a half-open trial call is
// in flight every other caller is rejected, so exactly one probe runs per
// recovery window.
func (b *CircuitBreaker) Call(op func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := op()
	b.afterCall(err)
	return err
}

func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *CircuitBreaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		remaining := b.recoveryTimeout - time.Since(b.lastFailureAt)
		if remaining > 0 {
			return fmt.Errorf("%w: %s, recovery in %s", ErrOpen, b.name, remaining.Round(time.Second))
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return fmt.Errorf("%w: %s, trial call in flight", ErrOpen, b.name)
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *CircuitBreaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failureCount = 0
		b.state = StateClosed
		b.probing = false
		return
	}

	b.failureCount++
	b.lastFailureAt = time.Now()
	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.probing = false
		return
	}
	if b.failureCount >= b.failureThreshold {
		b.state = StateOpen
	}
}
