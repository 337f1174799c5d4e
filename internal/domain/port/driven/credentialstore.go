package driven

import (
	"context"
	"errors"

	"mailwatch/internal/domain/model"
)

// ErrCredentialNotFound is returned by CredentialStore.Load when no
// credential has been persisted yet.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore defines the driven port for credential persistence. The
// process keeps at most one credential; Save overwrites it and the result is
// visible to the next Load.
type CredentialStore interface {
	// Load returns the persisted credential, or ErrCredentialNotFound when
	// none exists.
	Load(ctx context.Context) (model.Credential, error)

	// Save idempotently overwrites the persisted credential.
	Save(ctx context.Context, cred model.Credential) error
}
