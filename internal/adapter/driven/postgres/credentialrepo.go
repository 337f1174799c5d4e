// Package postgres implements the credential store adapter backed by a
// relational table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the Postgres implementation of the CredentialStore port.
// The table holds at most one row (id = 1); Save upserts it.
type CredentialRepo struct {
	pool *pgxpool.Pool
}

// NewCredentialRepo creates a CredentialRepo on the given pool.
func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// EnsureSchema creates the credentials table when it does not exist yet.
// Called once at startup.
func (r *CredentialRepo) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS credentials (
			id            INT PRIMARY KEY CHECK (id = 1),
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			scope         TEXT NOT NULL DEFAULT '',
			token_type    TEXT NOT NULL DEFAULT '',
			expiry_date   BIGINT NOT NULL DEFAULT 0,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

// Load returns the persisted credential, or driven.ErrCredentialNotFound
// when the table is empty.
func (r *CredentialRepo) Load(ctx context.Context) (model.Credential, error) {
	const query = `
		SELECT access_token, refresh_token, scope, token_type, expiry_date
		FROM credentials WHERE id = 1`

	var cred model.Credential
	err := r.pool.QueryRow(ctx, query).Scan(
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.Scope,
		&cred.TokenType,
		&cred.ExpiryDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Credential{}, driven.ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("load credential: %w", err)
	}

	return cred, nil
}

// Save upserts the single credential row.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) error {
	const query = `
		INSERT INTO credentials (id, access_token, refresh_token, scope, token_type, expiry_date, updated_at)
		VALUES (1, @access_token, @refresh_token, @scope, @token_type, @expiry_date, now())
		ON CONFLICT (id) DO UPDATE SET
			access_token  = @access_token,
			refresh_token = @refresh_token,
			scope         = @scope,
			token_type    = @token_type,
			expiry_date   = @expiry_date,
			updated_at    = now()`

	args := pgx.NamedArgs{
		"access_token":  cred.AccessToken,
		"refresh_token": cred.RefreshToken,
		"scope":         cred.Scope,
		"token_type":    cred.TokenType,
		"expiry_date":   cred.ExpiryDate,
	}

	if _, err := r.pool.Exec(ctx, query, args); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
