package frame

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Sponsored mint limits.
const (
	DefaultMintInterval = 10 * time.Minute // per social id
	DefaultMintRate     = 1.0              // per second, across all callers
	DefaultMintBurst    = 5

	// maxTrackedCallers bounds the per-caller table; it is reset when full.
	maxTrackedCallers = 10000
)

// MintLimiter throttles sponsored mints per social id and in total.
// A zero interval or rate disables that limit.
type MintLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	callers  map[uint64]*rate.Limiter
	global   *rate.Limiter
}

// NewMintLimiter creates a limiter allowing one mint per social id every
// interval and at most ratePerSec mints per second overall.
func NewMintLimiter(interval time.Duration, ratePerSec float64, burst int) *MintLimiter {
	global := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		if burst < 1 {
			burst = 1
		}
		global = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &MintLimiter{
		interval: interval,
		callers:  make(map[uint64]*rate.Limiter),
		global:   global,
	}
}

// Allow reports whether socialID may receive a sponsored mint now, and
// consumes the allowance if so.
func (l *MintLimiter) Allow(socialID uint64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var caller *rate.Limiter
	if l.interval > 0 {
		caller = l.callers[socialID]
		if caller == nil {
			if len(l.callers) >= maxTrackedCallers {
				l.callers = make(map[uint64]*rate.Limiter)
			}
			caller = rate.NewLimiter(rate.Every(l.interval), 1)
			l.callers[socialID] = caller
		}
		if caller.TokensAt(now) < 1 {
			return false
		}
	}

	if !l.global.AllowN(now, 1) {
		return false
	}
	if caller != nil {
		caller.AllowN(now, 1)
	}
	return true
}
