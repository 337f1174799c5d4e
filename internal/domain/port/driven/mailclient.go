package driven

import (
	"context"
	"errors"

	"mailwatch/internal/domain/model"
)

// ErrUnauthorized is wrapped into mail client errors when the provider
// rejects the access token. It triggers the poll loop's one-shot
// refresh-and-retry.
var ErrUnauthorized = errors.New("mail provider rejected credentials")

// MailClient defines the driven port for reading and mutating the watched
// mailbox. A client is bound to the credential it was built with; after a
// refresh the caller must obtain a new client from the factory.
//
// Errors wrapping ErrUnauthorized abort the poll pass for a refresh; any
// other error from FetchMessage is transient, skipping that item only.
type MailClient interface {
	// ListUnread returns the IDs of unread messages, at most limit.
	ListUnread(ctx context.Context, limit int) ([]string, error)

	// FetchMessage retrieves and decodes the full message content. Missing
	// fields are substituted with the model placeholder constants.
	FetchMessage(ctx context.Context, id string) (model.Message, error)

	// MarkRead removes the unread marker from the message. Idempotent at the
	// provider.
	MarkRead(ctx context.Context, id string) error
}

// MailClientFactory builds a MailClient bound to a credential. The
// credential manager calls it after every exchange or refresh so the poll
// loop always sees a client carrying the newest token.
type MailClientFactory interface {
	NewClient(ctx context.Context, cred model.Credential) (MailClient, error)
}
