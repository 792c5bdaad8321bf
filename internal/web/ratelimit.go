package web

import (
	"sync"
	"time"
)

// RateLimiter is a sliding window request counter per client.
type RateLimiter struct {
	requests    map[string][]time.Time
	mutex       sync.Mutex
	maxRequests int
	window      time.Duration
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
	}
}

func (rl *RateLimiter) Allow(client string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	// Remove old requests
	var validRequests []time.Time
	for _, reqTime := range rl.requests[client] {
		if reqTime.After(cutoff) {
			validRequests = append(validRequests, reqTime)
		}
	}

	if len(validRequests) >= rl.maxRequests {
		rl.requests[client] = validRequests
		return false
	}

	rl.requests[client] = append(validRequests, now)
	return true
}
