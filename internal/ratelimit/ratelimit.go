// Package ratelimit provides the process-wide limit on outbound lookup calls.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Default policy for the NCBI Variation Services API.
const (
	DefaultCalls  = 5
	DefaultWindow = time.Second
)

// Limiter admits at most Calls calls in any trailing Window.
//
// Calls are spaced Window/Calls apart with a burst of one, so a window of
// length Window can never contain more than Calls admissions. A single
// Limiter is shared by every client that talks to the same service.
type Limiter struct {
	limiter *rate.Limiter
	calls   int
	window  time.Duration
}

// New creates a limiter admitting calls per window.
func New(calls int, window time.Duration) (*Limiter, error) {
	if calls <= 0 {
		return nil, fmt.Errorf("rate limit calls must be positive, got %d", calls)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", window)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(calls)), 1),
		calls:   calls,
		window:  window,
	}, nil
}

// NewDefault creates a limiter with the default NCBI policy.
func NewDefault() *Limiter {
	l, _ := New(DefaultCalls, DefaultWindow)
	return l
}

// Wait blocks until a call is admitted or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// ReserveAt reserves a call as of now and returns how long the caller
// must wait before making it.
func (l *Limiter) ReserveAt(now time.Time) time.Duration {
	return l.limiter.ReserveN(now, 1).DelayFrom(now)
}

// String describes the policy, e.g. "5 calls/1s".
func (l *Limiter) String() string {
	return fmt.Sprintf("%d calls/%s", l.calls, l.window)
}
