package resilience

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// DefaultMaxAttempts is the retry ceiling for transient failures. An
	// operation that has failed this many times is terminal.
	DefaultMaxAttempts = 5

	defaultBaseDelay      = 30 * time.Second
	defaultMaxDelay       = 8 * time.Minute
	defaultJitterFraction = 0.10
)

// Backoff computes requeue delays for retry attempts. It never sleeps: the
// caller returns the delay to its scheduler and gets re-invoked later, which
// keeps worker pools free and retries cancellable.
type Backoff struct {
	// BaseDelay is the pre-jitter delay for attempt 0.
	BaseDelay time.Duration
	// MaxDelay caps the pre-jitter delay.
	MaxDelay time.Duration
	// JitterFraction is the symmetric jitter applied to the computed delay,
	// e.g. 0.10 for ±10%. Jitter prevents synchronized retry storms when many
	// resources fail against the same dependency at once.
	JitterFraction float64
	// MaxAttempts is the retry ceiling; NextDelay must not be called for
	// attempt >= MaxAttempts.
	MaxAttempts int

	mu   sync.Mutex
	rand *rand.Rand
}

// DefaultBackoff returns the schedule used by the reconciliation controllers:
// 30s doubling to a 8min cap with ±10% jitter, five attempts.
func DefaultBackoff() *Backoff {
	return &Backoff{
		BaseDelay:      defaultBaseDelay,
		MaxDelay:       defaultMaxDelay,
		JitterFraction: defaultJitterFraction,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// NextDelay returns the delay before the retry following the given attempt
// number (0-based): base*2^attempt capped at MaxDelay, with symmetric jitter.
func (b *Backoff) NextDelay(attempt int) time.Duration {
	delay := b.baseDelay(attempt)
	if b.JitterFraction <= 0 {
		return delay
	}
	jitter := time.Duration(float64(delay) * b.JitterFraction * b.uniform())
	return delay + jitter
}

// Exhausted reports whether the attempt count has reached the retry ceiling.
func (b *Backoff) Exhausted(attempts int) bool {
	return attempts >= b.maxAttempts()
}

func (b *Backoff) maxAttempts() int {
	if b.MaxAttempts > 0 {
		return b.MaxAttempts
	}
	return DefaultMaxAttempts
}

// baseDelay is the pre-jitter schedule: pure in the attempt number.
func (b *Backoff) baseDelay(attempt int) time.Duration {
	base := b.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	max := b.MaxDelay
	if max <= 0 {
		max = defaultMaxDelay
	}

	delay := base
	for i := 0; i < attempt && delay < max; i++ {
		delay *= 2
	}
	if delay > max {
		delay = max
	}
	return delay
}

// uniform draws from U(-1, 1) using a mutex-guarded source so concurrent
// reconciliation workers can share one scheduler.
func (b *Backoff) uniform() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rand == nil {
		b.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return 2*b.rand.Float64() - 1
}
