package services

import (
	"sync/atomic"
)

// Stats tracks process-wide counters exposed on the health surface
type Stats struct {
	receivedMessages atomic.Int64
}

// NewStats creates a Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementReceived adds n to the received-message counter
func (s *Stats) IncrementReceived(n int) {
	if n > 0 {
		s.receivedMessages.Add(int64(n))
	}
}

// ReceivedMessages returns the current received-message count
func (s *Stats) ReceivedMessages() int64 {
	return s.receivedMessages.Load()
}
