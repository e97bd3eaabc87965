package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a call is rejected because the breaker
// is open.
var ErrCircuitOpen = eris.New("resilience: circuit breaker is open")

// Breaker is a consecutive-failure circuit breaker for a single remote
// service. After Threshold consecutive trip-worthy failures it rejects
// calls for Cooldown, then allows a single probe.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	trips     func(err error) bool

	mu       sync.Mutex
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a breaker. A non-positive threshold defaults to 5,
// a non-positive cooldown to 30s. If trips is nil, IsTransient failures
// count toward the threshold.
func NewBreaker(threshold int, cooldown time.Duration, trips func(err error) bool) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if trips == nil {
		trips = IsTransient
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		trips:     trips,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. During cooldown it returns
// ErrCircuitOpen; after cooldown a single probe is let through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.threshold {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		return ErrCircuitOpen
	}
	// Half-open: let one probe through by pretending we're one failure
	// short of the threshold. A failed probe reopens the breaker.
	b.failures = b.threshold - 1
	return nil
}

// Record feeds a call outcome into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil || !b.trips(err) {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures == b.threshold {
		b.openedAt = b.now()
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && b.now().Sub(b.openedAt) < b.cooldown
}
