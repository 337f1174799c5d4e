package model

// AuthState represents where the credential manager sits in the
// authorization lifecycle.
type AuthState string

const (
	// AuthStateUnauthorized means no usable credential exists; polling is
	// inactive until the consent flow completes.
	AuthStateUnauthorized AuthState = "unauthorized"
	// AuthStateAuthorizing means a consent URL has been issued and the
	// callback has not arrived yet.
	AuthStateAuthorizing AuthState = "authorizing"
	// AuthStateAuthorized means a credential is held and a mail client is
	// published.
	AuthStateAuthorized AuthState = "authorized"
	// AuthStateRefreshing means a token refresh is in flight after the
	// provider rejected the current access token.
	AuthStateRefreshing AuthState = "refreshing"
)
