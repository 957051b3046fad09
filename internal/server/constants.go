// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection sliding-window rate limit
	RateLimitMessages = 30          // Max messages per connection per window
	RateLimitWindow   = time.Second // Sliding window duration

	// Default artifact count for list responses when no limit is given
	DefaultListLimit = 50
)
