// Package file implements the credential store adapter backed by a local
// JSON file.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// record is the on-disk credential layout. Field names follow the
// provider's token file convention so a file written by other tooling
// loads unchanged.
type record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`
}

// CredentialRepo persists the credential as a single JSON file.
type CredentialRepo struct {
	path string
}

// NewCredentialRepo creates a CredentialRepo writing to path.
func NewCredentialRepo(path string) *CredentialRepo {
	return &CredentialRepo{path: path}
}

// Load reads and decodes the credential file. A missing file maps to
// driven.ErrCredentialNotFound.
func (r *CredentialRepo) Load(_ context.Context) (model.Credential, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return model.Credential{}, driven.ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("read credential file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Credential{}, fmt.Errorf("decode credential file: %w", err)
	}

	return model.Credential(rec), nil
}

// Save writes the credential with an atomic replace so a crash mid-write
// never leaves a truncated file behind.
func (r *CredentialRepo) Save(_ context.Context, cred model.Credential) error {
	data, err := json.MarshalIndent(record(cred), "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if err := atomic.WriteFile(r.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}
