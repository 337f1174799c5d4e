package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

func TestCredentialRepo_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	cred := model.Credential{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		Scope:        "https://www.googleapis.com/auth/gmail.modify",
		TokenType:    "Bearer",
		ExpiryDate:   1756200000000,
	}

	err := repo.Save(ctx, cred)
	require.NoError(t, err)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)
}

func TestCredentialRepo_LoadMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, driven.ErrCredentialNotFound)
}

func TestCredentialRepo_SaveOverwritesSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	err := repo.Save(ctx, model.Credential{AccessToken: "at-old", RefreshToken: "rt-1"})
	require.NoError(t, err)

	err = repo.Save(ctx, model.Credential{AccessToken: "at-new", RefreshToken: "rt-2"})
	require.NoError(t, err)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at-new", got.AccessToken)
	assert.Equal(t, "rt-2", got.RefreshToken)

	var count int
	err = db.Reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM credentials").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCredentialRepo_EmptyOptionalFieldsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	cred := model.Credential{AccessToken: "at-only"}

	err := repo.Save(ctx, cred)
	require.NoError(t, err)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)
	assert.Empty(t, got.RefreshToken)
	assert.Zero(t, got.ExpiryDate)
}
