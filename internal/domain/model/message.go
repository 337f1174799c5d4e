package model

import (
	"strings"
	"time"
)

// Placeholder values substituted when a fetched message is missing the
// corresponding field.
const (
	NoSubject     = "No Subject"
	UnknownSender = "Unknown Sender"
	NoBodyContent = "No Body Content"
)

// Message is the decoded content of a single mail item. ID is the provider's
// opaque message identifier. Subject, Sender, and Body are never empty: the
// mail adapter substitutes the placeholder constants when a field is absent.
type Message struct {
	ID       string
	ThreadID string
	Subject  string
	Sender   string
	Body     string
	Received time.Time
}

// MatchesMarker reports whether the message subject contains the marker
// substring. The comparison is case-sensitive.
func (m Message) MatchesMarker(marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(m.Subject, marker)
}
