package application

import (
	"sync"

	"mailwatch/internal/domain/port/driven"
)

// MailProvider enables runtime hot-swapping of the mail client. A credential
// exchange or refresh publishes a client bound to the new token here, and the
// poll loop picks it up on its next tick without a restart.
type MailProvider struct {
	mu     sync.RWMutex
	client driven.MailClient
}

// NewMailProvider creates a provider holding the given initial client.
// client may be nil when no credential is available at startup.
func NewMailProvider(client driven.MailClient) *MailProvider {
	return &MailProvider{client: client}
}

// Get returns the current mail client. Callers must handle nil while
// authorization is still pending.
func (p *MailProvider) Get() driven.MailClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps in a new client. The next Get returns it.
func (p *MailProvider) Replace(client driven.MailClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient reports whether a non-nil client is currently published.
func (p *MailProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
