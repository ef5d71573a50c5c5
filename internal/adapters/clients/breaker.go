package clients

import (
	"sync"
	"time"

	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
)

// State is the position of a Breaker.
type State int32

const (
	// StateClosed lets every call through.
	StateClosed State = iota

	// StateOpen rejects calls until the cool-down has passed.
	StateOpen

	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// Breaker guards one upstream API. After MaxFailures consecutive failures it
// opens and rejects calls for Timeout. It then admits HalfOpenLimit trial
// calls: that many successes close it again, a single failure reopens it.
type Breaker struct {
	maxFailures int
	trialLimit  int
	coolDown    time.Duration
	onChange    func(from, to State)
	now         func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	trials    int
	openedAt  time.Time
}

// NewBreaker returns a closed breaker. onChange, if not nil, is called after
// every transition, outside the lock.
func NewBreaker(cfg config.CircuitBreakerConfig, onChange func(from, to State)) *Breaker {
	return &Breaker{
		maxFailures: max(cfg.MaxFailures, 1),
		trialLimit:  max(cfg.HalfOpenLimit, 1),
		coolDown:    cfg.Timeout,
		onChange:    onChange,
		now:         time.Now,
	}
}

// Allow reports whether a call may go out. Every admitted call must be
// followed by exactly one Record.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	from := b.state
	allowed := b.allow()
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)

	return allowed
}

func (b *Breaker) allow() bool {
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.coolDown {
			return false
		}

		b.setState(StateHalfOpen)
	}

	if b.state == StateHalfOpen {
		if b.trials >= b.trialLimit {
			return false
		}

		b.trials++
	}

	return true
}

// Record reports the outcome of an admitted call.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	from := b.state
	b.record(success)
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *Breaker) record(success bool) {
	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}

		b.failures++
		if b.failures >= b.maxFailures {
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		b.trials = max(b.trials-1, 0)

		if !success {
			b.setState(StateOpen)
			return
		}

		b.successes++
		if b.successes >= b.trialLimit {
			b.setState(StateClosed)
		}

	case StateOpen:
		// A call admitted before the breaker opened; its outcome changes nothing.
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// setState must be called with mu held.
func (b *Breaker) setState(s State) {
	b.state = s
	b.failures = 0
	b.successes = 0
	b.trials = 0

	if s == StateOpen {
		b.openedAt = b.now()
	}
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
