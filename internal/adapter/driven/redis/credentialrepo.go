// Package redis implements the credential store adapter backed by a remote
// Redis key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// defaultKey is where the credential blob lives when no key is configured.
const defaultKey = "mailwatch:credential"

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// record is the stored JSON layout, shared with the file store convention.
type record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`
}

// CredentialRepo persists the credential as a JSON blob at a fixed key. The
// blob carries no TTL: expiry is a credential-manager concern, and a refresh
// needs the stored refresh token even after the access token lapsed.
type CredentialRepo struct {
	client *redis.Client
	key    string
}

// NewCredentialRepo creates a CredentialRepo on the given client. key may be
// empty to use the default.
func NewCredentialRepo(client *redis.Client, key string) *CredentialRepo {
	if key == "" {
		key = defaultKey
	}
	return &CredentialRepo{client: client, key: key}
}

// Load fetches and decodes the credential blob. A missing key maps to
// driven.ErrCredentialNotFound.
func (r *CredentialRepo) Load(ctx context.Context) (model.Credential, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Credential{}, driven.ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential key: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Credential{}, fmt.Errorf("decode credential blob: %w", err)
	}

	return model.Credential(rec), nil
}

// Save overwrites the credential blob. Redis SET is atomic, so a concurrent
// Load sees either the old or the new blob, never a torn write.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) error {
	data, err := json.Marshal(record(cred))
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set credential key: %w", err)
	}
	return nil
}
