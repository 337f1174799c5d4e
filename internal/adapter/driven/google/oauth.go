// Package google implements the driven adapters for Google's OAuth2
// authorization-code flow and the Gmail REST API.
package google

import (
	"context"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.IdentityProvider  = (*Provider)(nil)
	_ driven.MailClientFactory = (*Provider)(nil)
)

// Provider implements the IdentityProvider and MailClientFactory ports
// against Google. It holds the static OAuth2 client configuration; the
// credential itself lives with the credential manager.
type Provider struct {
	cfg *oauth2.Config
}

// NewProvider creates a Provider for the given OAuth2 client against
// Google's endpoints.
func NewProvider(clientID, clientSecret, redirectURL string, scopes []string) *Provider {
	return NewProviderWithEndpoint(clientID, clientSecret, redirectURL, scopes, googleoauth.Endpoint)
}

// NewProviderWithEndpoint creates a Provider against a custom OAuth2
// endpoint. Tests use it to point the token flows at a local server.
func NewProviderWithEndpoint(clientID, clientSecret, redirectURL string, scopes []string, endpoint oauth2.Endpoint) *Provider {
	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
}

// AuthorizeURL builds the consent URL. AccessTypeOffline requests a refresh
// token; ApprovalForce makes Google reissue one even when the user already
// consented, so re-authorization always yields a refreshable credential.
func (p *Provider) AuthorizeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades a one-time authorization code for a fresh credential.
func (p *Provider) Exchange(ctx context.Context, code string) (model.Credential, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return model.Credential{}, &driven.ExchangeError{Err: err}
	}
	return credentialFromToken(tok), nil
}

// Refresh redeems the credential's refresh token for a new access token.
// The source is seeded with only the refresh token so the token endpoint is
// always consulted, even when the rejected access token has not expired by
// the local clock.
func (p *Provider) Refresh(ctx context.Context, cred model.Credential) (model.Credential, error) {
	if cred.RefreshToken == "" {
		return model.Credential{}, &driven.RefreshError{Err: driven.ErrNoRefreshToken}
	}

	src := p.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return model.Credential{}, &driven.RefreshError{Err: err}
	}
	return credentialFromToken(tok), nil
}

// credentialFromToken maps an oauth2 token to the domain credential. The
// scope arrives via the token's extra fields when Google reports it.
func credentialFromToken(tok *oauth2.Token) model.Credential {
	cred := model.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		cred.ExpiryDate = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	return cred
}

func tokenFromCredential(cred model.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.ExpiresAt(),
	}
}
