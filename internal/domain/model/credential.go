package model

import "time"

// Credential holds the OAuth2 token bundle authorizing calls to the mail
// provider. AccessToken is always present on a stored credential; the
// remaining fields are optional and depend on what the provider returned.
// ExpiryDate is the absolute access-token expiry as epoch milliseconds,
// zero when the provider did not report one.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	TokenType    string
	ExpiryDate   int64
}

// Merge layers the fields of a newly issued credential onto the receiver.
// The refreshed access token and expiry always win; an existing refresh
// token, scope, or token type is kept unless the provider supplied a
// replacement. The receiver is not modified.
func (c Credential) Merge(fresh Credential) Credential {
	merged := c
	merged.AccessToken = fresh.AccessToken
	merged.ExpiryDate = fresh.ExpiryDate

	if fresh.RefreshToken != "" {
		merged.RefreshToken = fresh.RefreshToken
	}
	if fresh.Scope != "" {
		merged.Scope = fresh.Scope
	}
	if fresh.TokenType != "" {
		merged.TokenType = fresh.TokenType
	}

	return merged
}

// ExpiresAt converts ExpiryDate to a time.Time. Returns the zero time when
// no expiry was recorded.
func (c Credential) ExpiresAt() time.Time {
	if c.ExpiryDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.ExpiryDate)
}
