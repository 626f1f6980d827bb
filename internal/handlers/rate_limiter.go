package handlers

import (
	"net"
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// sourceRateLimiter buckets callers per source host inside a fixed window.
// Gateways retry callbacks from a stable set of IPs, so the port part of a
// remote address is stripped before keying.
type sourceRateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]rateBucket
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func newSourceRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &sourceRateLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]rateBucket),
	}
}

func (l *sourceRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = normalizeSourceKey(key)

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.resetAt) {
		l.dropExpiredLocked(now)
		l.buckets[key] = rateBucket{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	if bucket.count >= l.limit {
		return false
	}
	bucket.count++
	l.buckets[key] = bucket
	return true
}

func (l *sourceRateLimiter) dropExpiredLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if now.After(bucket.resetAt) {
			delete(l.buckets, key)
		}
	}
}

func normalizeSourceKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(key); err == nil && host != "" {
		return host
	}
	return key
}
