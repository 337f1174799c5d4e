package driven

import (
	"context"
	"strconv"

	"mailwatch/internal/domain/model"
)

// Forwarder defines the driven port for delivering a matched message to the
// chat webhook. Forwarding is best-effort: the poll loop logs failures and
// still marks the item read.
type Forwarder interface {
	Forward(ctx context.Context, msg model.Message) error
}

// ForwardError reports a failed webhook delivery. Status is the HTTP status
// returned by the webhook, zero when the request never completed.
type ForwardError struct {
	Status int
	Err    error
}

func (e *ForwardError) Error() string {
	if e.Err != nil {
		return "forward message: " + e.Err.Error()
	}
	return "forward message: webhook returned status " + strconv.Itoa(e.Status)
}

func (e *ForwardError) Unwrap() error { return e.Err }
