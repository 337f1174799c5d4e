package application

import (
	"sync"
	"time"
)

// Status is a point-in-time snapshot of the poll loop's progress, served by
// the HTTP status endpoints.
type Status struct {
	LastTick      time.Time
	LastTickError string
	TickCount     int64
	UnreadSeen    int64
	Forwarded     int64
	MarkedRead    int64
}

// StatusService aggregates counters from the poll loop for the status and
// health endpoints.
type StatusService struct {
	mu            sync.Mutex
	lastTick      time.Time
	lastTickError string
	tickCount     int64
	unreadSeen    int64
	forwarded     int64
	markedRead    int64
}

// NewStatusService creates an empty StatusService.
func NewStatusService() *StatusService {
	return &StatusService{}
}

// RecordTick notes a completed tick and its terminal error, if any.
func (s *StatusService) RecordTick(at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = at
	s.tickCount++
	if err != nil {
		s.lastTickError = err.Error()
	} else {
		s.lastTickError = ""
	}
}

// AddUnreadSeen adds n to the running count of unread items returned by the
// provider.
func (s *StatusService) AddUnreadSeen(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreadSeen += int64(n)
}

// RecordForward counts one successful webhook delivery.
func (s *StatusService) RecordForward() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwarded++
}

// RecordMarkRead counts one item successfully marked read.
func (s *StatusService) RecordMarkRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markedRead++
}

// Snapshot returns a copy of the current counters.
func (s *StatusService) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		LastTick:      s.lastTick,
		LastTickError: s.lastTickError,
		TickCount:     s.tickCount,
		UnreadSeen:    s.unreadSeen,
		Forwarded:     s.forwarded,
		MarkedRead:    s.markedRead,
	}
}
