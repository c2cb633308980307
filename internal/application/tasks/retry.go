package tasks

import (
	"math/rand"
	"sync"
	"time"
)

// RetryPolicy is the bounded retry budget expressed as data. The
// orchestrator consumes it; the analysis logic never sees it.
type RetryPolicy struct {
	// MaxAttempts caps total attempts per task (default 3).
	MaxAttempts int
	// BaseBackoff is the delay before the second attempt (default 2s).
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential growth (default 30s).
	MaxBackoff time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

// DefaultRetryPolicy matches the configured defaults.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// Backoff returns the exponential delay after the given attempt number
// (1-based), with up to 25% random jitter added to avoid thundering herds.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BaseBackoff
	if base <= 0 {
		base = 2 * time.Second
	}
	maxB := p.MaxBackoff
	if maxB <= 0 {
		maxB = 30 * time.Second
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxB {
			d = maxB
			break
		}
	}

	p.mu.Lock()
	if p.rand == nil {
		// Dedicated source to avoid contention on the global one.
		p.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := time.Duration(p.rand.Int63n(int64(d)/4 + 1))
	p.mu.Unlock()

	return d + jitter
}

func (p *RetryPolicy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return 3
	}
	return p.MaxAttempts
}
