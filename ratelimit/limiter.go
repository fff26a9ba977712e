// Package ratelimit throttles interactive test calls per endpoint with a
// token bucket, so a dashboard cannot hammer a receiver by mashing the
// test button.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/id"
)

// Limiter applies per-endpoint token-bucket rate limiting. Buckets start
// full with a burst size equal to the per-second rate.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastFill time.Time
	rate     float64 // tokens per second
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates an empty Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether one call for the endpoint may proceed now,
// consuming a token if so. A perSecond of 0 or less means unlimited.
func (l *Limiter) Allow(webhookID id.ID, perSecond int) bool {
	if perSecond <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucket(webhookID.String(), float64(perSecond))
	b.refill(l.now())

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is cancelled.
// A perSecond of 0 or less returns immediately.
func (l *Limiter) Wait(ctx context.Context, webhookID id.ID, perSecond int) error {
	if perSecond <= 0 {
		return nil
	}

	for {
		if l.Allow(webhookID, perSecond) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second / time.Duration(perSecond)):
		}
	}
}

// Reset clears the bucket for an endpoint, e.g. after its configured
// rate changes.
func (l *Limiter) Reset(webhookID id.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, webhookID.String())
}

func (l *Limiter) bucket(key string, rate float64) *bucket {
	b, ok := l.buckets[key]
	if !ok || b.rate != rate {
		b = &bucket{tokens: rate, lastFill: l.now(), rate: rate}
		l.buckets[key] = b
	}
	return b
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * b.rate
	if b.tokens > b.rate {
		b.tokens = b.rate
	}
	b.lastFill = now
}
