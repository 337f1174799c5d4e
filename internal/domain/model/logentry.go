package model

import "time"

// LogEntry is one line of the in-memory observability buffer.
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// String renders the entry in the fixed "timestamp LEVEL message" layout the
// /logs endpoint serves.
func (e LogEntry) String() string {
	return e.Time.UTC().Format(time.RFC3339) + " " + e.Level + " " + e.Message
}
