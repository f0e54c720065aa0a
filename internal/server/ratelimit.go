package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket for control requests whose limit can be
// changed on reload. A limit of 0 or less means unlimited.
//
// Burst equals the per-minute limit so a full minute's capacity can be used
// at once and then refills gradually.
type RateLimiter struct {
	limiter *rate.Limiter
	rpm     int
	mu      sync.RWMutex
}

// NewRateLimiter creates a RateLimiter allowing rpm requests per minute.
func NewRateLimiter(rpm int) *RateLimiter {
	l := &RateLimiter{}
	l.SetLimit(rpm)
	return l
}

// SetLimit replaces the limit. Unchanged limits keep the current bucket.
func (l *RateLimiter) SetLimit(rpm int) {
	if rpm < 0 {
		rpm = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limiter != nil && rpm == l.rpm {
		return
	}
	l.rpm = rpm
	if rpm == 0 {
		l.limiter = nil
		return
	}
	l.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
}

// Limit returns the configured requests per minute, 0 when unlimited.
func (l *RateLimiter) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rpm
}

// Allow consumes one token. When none is available it reports how long
// until one will be.
func (l *RateLimiter) Allow() (bool, time.Duration) {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()

	if limiter == nil {
		return true, 0
	}

	now := time.Now()
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Minute
	}
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}
