package driven

import (
	"context"
	"errors"

	"mailwatch/internal/domain/model"
)

// ErrNoRefreshToken is the cause carried by a RefreshError when the stored
// credential has no refresh token to redeem.
var ErrNoRefreshToken = errors.New("credential has no refresh token")

// IdentityProvider defines the driven port for the provider's OAuth2
// authorization-code flow.
type IdentityProvider interface {
	// AuthorizeURL builds the consent URL for the configured client and
	// scopes. state is an opaque nonce echoed back on the callback.
	AuthorizeURL(state string) string

	// Exchange trades a one-time authorization code for a fresh credential.
	// Failures are reported as *ExchangeError.
	Exchange(ctx context.Context, code string) (model.Credential, error)

	// Refresh redeems the credential's refresh token for a new access token.
	// The returned credential carries only what the provider issued; merging
	// onto the prior record is the caller's responsibility. Failures are
	// reported as *RefreshError.
	Refresh(ctx context.Context, cred model.Credential) (model.Credential, error)
}

// ExchangeError reports a failed authorization-code exchange, typically an
// invalid or expired code.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return "exchange authorization code: " + e.Err.Error()
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// RefreshError reports a failed token refresh: either no refresh token was
// present (wraps ErrNoRefreshToken) or the provider rejected it.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "refresh access token: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }
