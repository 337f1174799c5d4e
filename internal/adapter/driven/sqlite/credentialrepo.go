package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// The table holds at most one row (id = 1); Save overwrites it in place.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a CredentialRepo on the given database.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Load returns the persisted credential, or driven.ErrCredentialNotFound
// when the table is empty.
func (r *CredentialRepo) Load(ctx context.Context) (model.Credential, error) {
	const query = `
		SELECT access_token, refresh_token, scope, token_type, expiry_date
		FROM credentials WHERE id = 1`

	var cred model.Credential
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.Scope,
		&cred.TokenType,
		&cred.ExpiryDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, driven.ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("load credential: %w", err)
	}

	return cred, nil
}

// Save overwrites the persisted credential. The write goes through the
// single writer connection, so a Load issued right after sees the new row.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) error {
	const query = `
		INSERT OR REPLACE INTO credentials
			(id, access_token, refresh_token, scope, token_type, expiry_date, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		cred.AccessToken,
		cred.RefreshToken,
		cred.Scope,
		cred.TokenType,
		cred.ExpiryDate,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
