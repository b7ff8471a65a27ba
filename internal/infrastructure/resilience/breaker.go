package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while the breaker is rejecting calls outright.
	ErrOpen = errors.New("resilience: circuit open")
	// ErrProbeBudget is returned when the half-open probe budget is spent.
	ErrProbeBudget = errors.New("resilience: probe budget exhausted")
)

// State is the breaker's position in its trip cycle.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Settings tunes one breaker. Zero fields take the defaults below.
type Settings struct {
	// TripAfter is how many consecutive failures open the circuit.
	TripAfter uint32
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// Probes is how many trial calls half-open admits; that many
	// consecutive successes close the circuit again.
	Probes uint32
	// OnStateChange, when set, observes every transition.
	OnStateChange func(name string, from, to State)
}

const (
	defaultTripAfter = 5
	defaultCooldown  = 15 * time.Second
	defaultProbes    = 1
)

// Breaker fails fast once its guarded call keeps failing. A tripped
// breaker rejects calls for the cooldown period, then lets a bounded
// number of probes through; one failed probe re-opens it.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	failures   uint32
	probesSent uint32
	probesOK   uint32
	reopenAt   time.Time
}

// New creates a breaker in the closed state.
func New(name string, settings Settings) *Breaker {
	if settings.TripAfter == 0 {
		settings.TripAfter = defaultTripAfter
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = defaultCooldown
	}
	if settings.Probes == 0 {
		settings.Probes = defaultProbes
	}
	return &Breaker{name: name, settings: settings}
}

// Name identifies the breaker in state-change notifications.
func (b *Breaker) Name() string { return b.name }

// State reports the current state, applying any due cooldown expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state
}

// Execute runs fn under the breaker. Calls rejected by the breaker
// return ErrOpen or ErrProbeBudget without invoking fn. A panic in fn
// counts as a failure and is re-raised.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	gen, err := b.admit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			b.record(gen, false)
			panic(r)
		}
	}()

	result, err := fn()
	b.record(gen, err == nil)
	return result, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())

	switch b.state {
	case Open:
		return b.generation, ErrOpen
	case HalfOpen:
		if b.probesSent >= b.settings.Probes {
			return b.generation, ErrProbeBudget
		}
		b.probesSent++
	}
	return b.generation, nil
}

func (b *Breaker) record(gen uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())
	if gen != b.generation {
		// The circuit moved on while this call was in flight; its
		// outcome belongs to a finished cycle.
		return
	}

	switch {
	case success && b.state == HalfOpen:
		b.probesOK++
		if b.probesOK >= b.settings.Probes {
			b.transition(Closed)
		}
	case success:
		b.failures = 0
	case b.state == HalfOpen:
		b.transition(Open)
	default:
		b.failures++
		if b.failures >= b.settings.TripAfter {
			b.transition(Open)
		}
	}
}

// refresh moves an open breaker to half-open once its cooldown lapses.
// Callers hold b.mu.
func (b *Breaker) refresh(now time.Time) {
	if b.state == Open && now.After(b.reopenAt) {
		b.transition(HalfOpen)
	}
}

// transition changes state and resets cycle-local counters. Callers
// hold b.mu.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.generation++
	b.failures = 0
	b.probesSent = 0
	b.probesOK = 0
	if to == Open {
		b.reopenAt = time.Now().Add(b.settings.Cooldown)
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
