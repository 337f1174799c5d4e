package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// AuthService is the credential manager. It owns the persisted credential's
// lifecycle (consent URL, code exchange, token refresh), tracks the
// authorization state machine, and publishes a mail client bound to the
// newest access token through the MailProvider.
type AuthService struct {
	store    driven.CredentialStore
	identity driven.IdentityProvider
	clients  driven.MailClientFactory
	mail     *MailProvider

	mu           sync.Mutex
	state        model.AuthState
	pendingState string

	refreshGroup singleflight.Group
}

// NewAuthService creates an AuthService starting in the Unauthorized state.
func NewAuthService(
	store driven.CredentialStore,
	identity driven.IdentityProvider,
	clients driven.MailClientFactory,
	mail *MailProvider,
) *AuthService {
	return &AuthService{
		store:    store,
		identity: identity,
		clients:  clients,
		mail:     mail,
		state:    model.AuthStateUnauthorized,
	}
}

// State returns the current authorization state.
func (s *AuthService) State() model.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *AuthService) setState(state model.AuthState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Ready reports whether a mail client is published, i.e. whether polling can
// make progress.
func (s *AuthService) Ready() bool {
	return s.mail.HasClient()
}

// Restore loads a previously persisted credential and publishes a client
// bound to it. It returns false when no credential has been stored yet.
func (s *AuthService) Restore(ctx context.Context) (bool, error) {
	cred, err := s.store.Load(ctx)
	if errors.Is(err, driven.ErrCredentialNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load stored credential: %w", err)
	}

	client, err := s.clients.NewClient(ctx, cred)
	if err != nil {
		return false, fmt.Errorf("build mail client: %w", err)
	}

	s.mail.Replace(client)
	s.setState(model.AuthStateAuthorized)
	slog.Info("stored credential restored",
		"has_refresh_token", cred.RefreshToken != "",
		"expires_at", cred.ExpiresAt())
	return true, nil
}

// AuthorizeURL issues a consent URL carrying a fresh state nonce and moves
// the manager to Authorizing. Issuing a new URL invalidates any earlier
// pending nonce.
func (s *AuthService) AuthorizeURL() string {
	nonce := uuid.NewString()

	s.mu.Lock()
	s.pendingState = nonce
	s.state = model.AuthStateAuthorizing
	s.mu.Unlock()

	return s.identity.AuthorizeURL(nonce)
}

// ConsumeState checks a callback state nonce against the pending one and
// clears it. A nonce matches at most once.
func (s *AuthService) ConsumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == "" || state != s.pendingState {
		return false
	}
	s.pendingState = ""
	return true
}

// Exchange trades an authorization code for a credential, persists it,
// publishes a client bound to it, and moves to Authorized. Any failure
// leaves the manager Unauthorized.
func (s *AuthService) Exchange(ctx context.Context, code string) (model.Credential, error) {
	cred, err := s.identity.Exchange(ctx, code)
	if err != nil {
		s.setState(model.AuthStateUnauthorized)
		return model.Credential{}, err
	}

	if err := s.store.Save(ctx, cred); err != nil {
		s.setState(model.AuthStateUnauthorized)
		return model.Credential{}, fmt.Errorf("persist credential: %w", err)
	}

	client, err := s.clients.NewClient(ctx, cred)
	if err != nil {
		s.setState(model.AuthStateUnauthorized)
		return model.Credential{}, fmt.Errorf("build mail client: %w", err)
	}

	s.mail.Replace(client)
	s.setState(model.AuthStateAuthorized)
	slog.Info("authorization complete",
		"scope", cred.Scope,
		"has_refresh_token", cred.RefreshToken != "")
	return cred, nil
}

// Refresh redeems the stored refresh token for a new access token, persists
// the merged credential, and publishes a client bound to it. Concurrent
// callers share a single in-flight refresh. Any failure leaves the manager
// Unauthorized; the stored credential is only overwritten on success.
func (s *AuthService) Refresh(ctx context.Context) (model.Credential, error) {
	v, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return model.Credential{}, err
	}
	return v.(model.Credential), nil
}

func (s *AuthService) refresh(ctx context.Context) (model.Credential, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return model.Credential{}, fmt.Errorf("load credential for refresh: %w", err)
	}

	s.setState(model.AuthStateRefreshing)

	fresh, err := s.identity.Refresh(ctx, current)
	if err != nil {
		s.setState(model.AuthStateUnauthorized)
		return model.Credential{}, err
	}

	merged := current.Merge(fresh)
	if err := s.store.Save(ctx, merged); err != nil {
		s.setState(model.AuthStateUnauthorized)
		return model.Credential{}, fmt.Errorf("persist refreshed credential: %w", err)
	}

	client, err := s.clients.NewClient(ctx, merged)
	if err != nil {
		s.setState(model.AuthStateUnauthorized)
		return model.Credential{}, fmt.Errorf("build mail client: %w", err)
	}

	s.mail.Replace(client)
	s.setState(model.AuthStateAuthorized)
	slog.Info("credential refreshed", "expires_at", merged.ExpiresAt())
	return merged, nil
}
